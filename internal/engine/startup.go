package engine

import "context"

// stepStarting dispatches the current startingStep to its handler. Each
// handler either completes synchronously and advances startingStep
// (returning true), issues an async backend command and returns false to
// wait, or consumes a previously-resolved Proceeding value left by a
// notifier callback.
func (e *Engine) stepStarting() bool {
	switch e.startingStep {
	case StartNone:
		return e.doSetUpController()
	case StartSetUpServicePlatform:
		return e.doSetUpServicePlatform()
	case StartStartServicePlatform:
		return e.doStartServicePlatform()
	case StartRetrieveConfiguration:
		return e.doRetrieveConfiguration()
	case StartServing:
		return e.doStartServing(true)
	case StartSetServiceStateServing:
		return e.doSetServiceStateServing()
	case StartSetUpConsolePlatform:
		return e.doSetUpConsolePlatform()
	case StartStartConsolePlatform:
		return e.doStartConsolePlatform()
	case StartServingConsole:
		return e.doStartServing(false)
	case StartSetStateServing:
		return e.doSetStateServing()
	default:
		return false
	}
}

func (e *Engine) doSetUpController() bool {
	e.log.Info("Starting...")
	if factory := e.registry.SelectEventLoopController(); factory != nil {
		e.controller = factory.Create()
		e.controller.Subscribe(e.ctlNotifier)
	}
	e.startingStep = StartSetUpServicePlatform
	return true
}

func (e *Engine) doSetUpServicePlatform() bool {
	if e.opts.NoRunningAsService {
		return e.fallbackToConsole()
	}
	factory := e.registry.SelectServicePlatform()
	if factory == nil {
		e.latchError(NewServiceError(ErrFailedToRun, "no service platform backend detected on this host"), e.startingStep)
		return true
	}
	e.servicePlatform = factory.Create()
	e.startingStep = StartStartServicePlatform
	return true
}

func (e *Engine) doStartServicePlatform() bool {
	if e.proceeding == ProceedNone {
		e.proceeding = ProceedStarting
		e.servicePlatform.Start(context.Background(), e.svcNotifier)
		return false
	}
	if !e.resolved() {
		return false
	}
	outcome := e.proceeding
	e.proceeding = ProceedNone
	if outcome == ProceedFailed {
		e.servicePlatform = nil
		e.latchError(NewServiceError(ErrFailedToRun, "failed to start service platform"), e.startingStep)
		return true
	}
	if !e.servicePlatform.Check() {
		e.servicePlatform = nil
		e.latchError(NewServiceError(ErrNotSystemService, "process was not launched by the service manager"), e.startingStep)
		return true
	}
	e.startingStep = StartRetrieveConfiguration
	return true
}

func (e *Engine) doRetrieveConfiguration() bool {
	if e.opts.NoRetrievingConfiguration {
		e.startingStep = StartServing
		return true
	}
	if e.proceeding == ProceedNone {
		e.proceeding = ProceedStarting
		e.servicePlatform.RetrieveConfiguration(context.Background())
		return false
	}
	if !e.resolved() {
		return false
	}
	outcome := e.proceeding
	e.proceeding = ProceedNone
	e.startingStep = StartServing
	if outcome == ProceedFailed {
		e.latchError(NewServiceError(ErrFailedToRetrieveConfiguration, "failed to retrieve service configuration"), StartRetrieveConfiguration)
	}
	return true
}

// doStartServing runs the start_serving step for either branch: as a
// service (asService true) or as a console application.
func (e *Engine) doStartServing(asService bool) bool {
	if e.proceeding == ProceedNone {
		e.state.Phase = PhaseStarting
		e.runningAsService = asService
		e.proceeding = ProceedStarting
		handled := e.obs.OnStart(asService)
		if !e.token.Alive() {
			return false
		}
		if !handled {
			e.proceeding = ProceedStarted
		} else {
			return false
		}
	}
	if !e.resolved() {
		return false
	}
	outcome := e.proceeding
	e.proceeding = ProceedNone
	if outcome == ProceedFailed {
		// Halted mid-startup; state.Target was already flipped to
		// stopped by SetFailedToStart. Shutdown's re-entry table takes
		// it from here.
		return true
	}
	if asService {
		e.startingStep = StartSetServiceStateServing
	} else {
		e.startingStep = StartSetStateServing
	}
	return true
}

func (e *Engine) doSetServiceStateServing() bool {
	if e.proceeding == ProceedNone {
		e.proceeding = ProceedStarting
		e.servicePlatform.SetStateServing(context.Background())
		return false
	}
	if !e.resolved() {
		return false
	}
	outcome := e.proceeding
	e.proceeding = ProceedNone
	if outcome == ProceedFailed {
		e.latchError(NewServiceError(ErrFailedToRun, "failed to report serving state to the service manager"), e.startingStep)
		return true
	}
	e.startingStep = StartSetStateServing
	return true
}

func (e *Engine) doSetStateServing() bool {
	e.state.Phase = PhaseServing
	e.state.Target = TargetNone
	e.log.Info("Serving...")
	e.startingStep = StartDone
	e.obs.OnStateChanged(e.state)
	return true
}

// fallbackToConsole drops the service platform and routes startup into
// the console branch, spec.md §4.1.1's alternate path.
func (e *Engine) fallbackToConsole() bool {
	e.servicePlatform = nil
	e.startingStep = StartSetUpConsolePlatform
	return true
}

func (e *Engine) doSetUpConsolePlatform() bool {
	if e.opts.NoRunningAsConsoleApplication {
		e.latchError(NewServiceError(ErrFailedToRun, "no service platform available and console fallback is disabled"), e.startingStep)
		return true
	}
	factory := e.registry.SelectConsolePlatform()
	if factory == nil {
		e.latchError(NewServiceError(ErrFailedToRun, "no console platform backend detected on this host"), e.startingStep)
		return true
	}
	e.consolePlatform = factory.Create()
	e.startingStep = StartStartConsolePlatform
	return true
}

func (e *Engine) doStartConsolePlatform() bool {
	if e.proceeding == ProceedNone {
		e.proceeding = ProceedStarting
		e.consolePlatform.Start(context.Background(), e.conNotifier)
		return false
	}
	if !e.resolved() {
		return false
	}
	outcome := e.proceeding
	e.proceeding = ProceedNone
	if outcome == ProceedFailed {
		e.consolePlatform = nil
		e.latchError(NewServiceError(ErrFailedToRun, "failed to start console platform"), e.startingStep)
		return true
	}
	e.startingStep = StartServingConsole
	return true
}
