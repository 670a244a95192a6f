package engine

// servicePlatformNotifier, consolePlatformNotifier and controllerNotifier
// adapt the three backend notifier interfaces onto Engine. They exist
// because ServicePlatformNotifier and ConsolePlatformNotifier both
// declare Started/FailedToStart/Stopped/EventReceived: Engine cannot
// implement both interfaces directly with a single method set, so each
// gets its own thin adapter instead.
type servicePlatformNotifier struct{ e *Engine }
type consolePlatformNotifier struct{ e *Engine }
type controllerNotifier struct{ e *Engine }

func (n *servicePlatformNotifier) Started() {
	n.e.proceeding = ProceedStarted
	n.e.scheduleAdvance()
}

func (n *servicePlatformNotifier) FailedToStart(err *ServiceError) {
	n.e.proceeding = ProceedFailed
	n.e.scheduleAdvance()
}

func (n *servicePlatformNotifier) ConfigurationRetrieved(cfg ServiceConfiguration) {
	n.e.configuration = &cfg
	n.e.proceeding = ProceedStarted
	n.e.scheduleAdvance()
}

func (n *servicePlatformNotifier) FailedToRetrieveConfiguration(err *ServiceError) {
	if err != nil {
		n.e.log.Warn("Failed to retrieve service configuration.", F("error", err.Error()))
	}
	n.e.proceeding = ProceedFailed
	n.e.scheduleAdvance()
}

func (n *servicePlatformNotifier) StateServingSet() {
	n.e.proceeding = ProceedStarted
	n.e.scheduleAdvance()
}

func (n *servicePlatformNotifier) FailedToSetStateServing(err *ServiceError) {
	n.e.proceeding = ProceedFailed
	n.e.scheduleAdvance()
}

func (n *servicePlatformNotifier) StateStoppingSet() {
	n.e.proceeding = ProceedStarted
	n.e.scheduleAdvance()
}

func (n *servicePlatformNotifier) StateStoppedSet() {
	n.e.proceeding = ProceedStarted
	n.e.scheduleAdvance()
}

func (n *servicePlatformNotifier) Stopped() {
	n.e.proceeding = ProceedStopped
	n.e.scheduleAdvance()
}

func (n *servicePlatformNotifier) EventReceived(ev SystemEvent) {
	n.e.DeliverSystemEvent(ev)
}

func (n *consolePlatformNotifier) Started() {
	n.e.proceeding = ProceedStarted
	n.e.scheduleAdvance()
}

func (n *consolePlatformNotifier) FailedToStart(err *ServiceError) {
	n.e.proceeding = ProceedFailed
	n.e.scheduleAdvance()
}

func (n *consolePlatformNotifier) Stopped() {
	n.e.proceeding = ProceedStopped
	n.e.scheduleAdvance()
}

func (n *consolePlatformNotifier) EventReceived(ev SystemEvent) {
	n.e.DeliverSystemEvent(ev)
}

// Exiting latches exitingAbruptly idempotently (SPEC_FULL.md §4.7): a
// host that fires its unexpected-exit notification more than once — some
// do, on the way down — must not re-enter shutdown or re-log the warning.
func (n *controllerNotifier) Exiting() {
	e := n.e
	if e.state.Stopped() || (e.stoppingStep != StopNone && e.stoppingStep >= StopExitApplication) {
		return
	}
	if e.exitingAbruptly {
		return
	}
	e.exitingAbruptly = true
	e.log.Warn("Host event loop is exiting unexpectedly; shutting down.")
	if e.state.Target != TargetStopped {
		e.state.Target = TargetStopped
	}
	e.scheduleAdvance()
}
