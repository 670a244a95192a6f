package engine

import (
	"context"
	"fmt"
)

// enterStopping runs once, the first time target settles on stopped. It
// flips the observable phase to stopping and starts the stopping_step
// sequence; doStopSetUpController computes where in that sequence to
// resume from, based on whatever startingStep shutdown interrupted
// (spec.md §4.1.2's re-entry table).
func (e *Engine) enterStopping() {
	if e.state.Phase != PhaseStopped {
		e.state.Phase = PhaseStopping
	}
	e.stoppingStep = StopSetUpController
}

func (e *Engine) stepStopping() bool {
	switch e.stoppingStep {
	case StopSetUpController:
		return e.doStopSetUpController()
	case stopAwaitServicePlatformStart:
		return e.doAwaitServicePlatformStart()
	case stopAwaitConsolePlatformStart:
		return e.doAwaitConsolePlatformStart()
	case stopAwaitConfigThenStopped:
		return e.doAwaitConfigThenStopped()
	case stopAwaitStartCompletion:
		return e.doAwaitStartCompletion()
	case StopSetServiceStateStopping:
		return e.doStopSetServiceStateStopping()
	case StopStopServing:
		return e.doStopStopServing()
	case StopSetServiceStateStopped:
		return e.doStopSetServiceStateStopped()
	case StopStopServicePlatform:
		return e.doStopStopServicePlatform()
	case StopStopConsolePlatform:
		return e.doStopStopConsolePlatform()
	case StopExitApplication:
		return e.doStopExitApplication()
	case StopSetStateStopped:
		return e.doStopSetStateStopped()
	default:
		return false
	}
}

// doStopSetUpController ensures a controller handle exists (needed only
// when shutdown is reached before Run ever ran set_up_controller), then
// resolves the re-entry table: where the normal top-to-bottom stopping
// sequence should actually resume, given how far startup got.
func (e *Engine) doStopSetUpController() bool {
	if e.controller == nil {
		if factory := e.registry.SelectEventLoopController(); factory != nil {
			e.controller = factory.Create()
			e.controller.Subscribe(e.ctlNotifier)
		}
	}

	switch e.startingStep {
	case StartNone, StartSetUpServicePlatform, StartSetUpConsolePlatform:
		// Nothing was ever engaged; skip straight to exit.
		e.stoppingStep = StopExitApplication

	case StartStartServicePlatform:
		if e.proceeding == ProceedNone {
			// Start was never issued, or its outcome (a failure, or a
			// failed Check) was already consumed: nothing is engaged.
			e.servicePlatform = nil
			e.stoppingStep = StopExitApplication
			break
		}
		if e.resolved() {
			return e.doAwaitServicePlatformStart()
		}
		e.stoppingStep = stopAwaitServicePlatformStart

	case StartRetrieveConfiguration:
		if e.resolved() {
			return e.doAwaitConfigThenStopped()
		}
		e.stoppingStep = stopAwaitConfigThenStopped

	case StartStartConsolePlatform:
		if e.proceeding == ProceedNone {
			e.consolePlatform = nil
			e.stoppingStep = StopExitApplication
			break
		}
		if e.resolved() {
			return e.doAwaitConsolePlatformStart()
		}
		e.stoppingStep = stopAwaitConsolePlatformStart

	case StartServing, StartServingConsole:
		if e.opts.WithStopStarting || e.resolved() {
			e.proceeding = ProceedNone
			if e.runningAsService {
				e.stoppingStep = StopSetServiceStateStopping
			} else {
				e.stoppingStep = StopStopServing
			}
		} else {
			e.stoppingStep = stopAwaitStartCompletion
		}

	case StartSetServiceStateServing:
		e.stoppingStep = StopSetServiceStateStopping

	default: // StartSetStateServing, StartDone
		e.stoppingStep = StopStopServing
	}
	return true
}

func (e *Engine) doAwaitServicePlatformStart() bool {
	if !e.resolved() {
		return false
	}
	outcome := e.proceeding
	e.proceeding = ProceedNone
	if outcome == ProceedFailed {
		e.servicePlatform = nil
		e.stoppingStep = StopExitApplication
	} else {
		e.stoppingStep = StopSetServiceStateStopped
	}
	return true
}

func (e *Engine) doAwaitConsolePlatformStart() bool {
	if !e.resolved() {
		return false
	}
	outcome := e.proceeding
	e.proceeding = ProceedNone
	if outcome == ProceedFailed {
		e.consolePlatform = nil
		e.stoppingStep = StopExitApplication
	} else {
		e.stoppingStep = StopStopConsolePlatform
	}
	return true
}

func (e *Engine) doAwaitConfigThenStopped() bool {
	if !e.resolved() {
		return false
	}
	e.proceeding = ProceedNone
	e.stoppingStep = StopSetServiceStateStopped
	return true
}

func (e *Engine) doAwaitStartCompletion() bool {
	if !e.resolved() {
		return false
	}
	e.proceeding = ProceedNone
	if e.runningAsService {
		e.stoppingStep = StopSetServiceStateStopping
	} else {
		e.stoppingStep = StopStopServing
	}
	return true
}

func (e *Engine) doStopSetServiceStateStopping() bool {
	if e.servicePlatform == nil {
		e.stoppingStep = StopStopServing
		return true
	}
	if e.proceeding == ProceedNone {
		e.proceeding = ProceedStarting
		e.servicePlatform.SetStateStopping(context.Background())
		return false
	}
	if !e.resolved() {
		return false
	}
	e.proceeding = ProceedNone
	e.stoppingStep = StopStopServing
	return true
}

func (e *Engine) doStopStopServing() bool {
	if e.proceeding == ProceedNone {
		e.proceeding = ProceedStarting
		handled := e.obs.OnStop()
		if !e.token.Alive() {
			return false
		}
		if !handled {
			e.proceeding = ProceedStopped
		} else {
			return false
		}
	}
	if !e.resolved() {
		return false
	}
	e.proceeding = ProceedNone
	e.stoppingStep = StopSetServiceStateStopped
	return true
}

func (e *Engine) doStopSetServiceStateStopped() bool {
	if e.servicePlatform == nil {
		e.stoppingStep = e.pickStopBackendStep()
		return true
	}
	if e.proceeding == ProceedNone {
		e.proceeding = ProceedStarting
		e.servicePlatform.SetStateStopped(context.Background(), e.exitCode)
		return false
	}
	if !e.resolved() {
		return false
	}
	e.proceeding = ProceedNone
	e.stoppingStep = e.pickStopBackendStep()
	return true
}

func (e *Engine) pickStopBackendStep() StoppingStep {
	switch {
	case e.servicePlatform != nil:
		return StopStopServicePlatform
	case e.consolePlatform != nil:
		return StopStopConsolePlatform
	default:
		return StopExitApplication
	}
}

func (e *Engine) doStopStopServicePlatform() bool {
	if e.proceeding == ProceedNone {
		e.proceeding = ProceedStarting
		e.servicePlatform.Stop(context.Background())
		return false
	}
	if !e.resolved() {
		return false
	}
	e.proceeding = ProceedNone
	e.servicePlatform = nil
	e.stoppingStep = StopExitApplication
	return true
}

func (e *Engine) doStopStopConsolePlatform() bool {
	if e.proceeding == ProceedNone {
		e.proceeding = ProceedStarting
		e.consolePlatform.Stop(context.Background())
		return false
	}
	if !e.resolved() {
		return false
	}
	e.proceeding = ProceedNone
	e.consolePlatform = nil
	e.stoppingStep = StopExitApplication
	return true
}

func (e *Engine) doStopExitApplication() bool {
	e.eventQueue = nil
	if !e.exitingAbruptly && e.controller != nil {
		if e.exitCode == 0 {
			e.log.Info("Exit.")
		} else {
			e.log.Info(fmt.Sprintf("Exit with the result: %d", e.exitCode))
		}
		e.controller.Exit(e.exitCode)
	}
	e.stoppingStep = StopSetStateStopped
	return true
}

func (e *Engine) doStopSetStateStopped() bool {
	e.state.Phase = PhaseStopped
	e.state.Target = TargetNone
	e.log.Info("Stopped.")
	e.stoppingStep = StopDone
	e.obs.OnStateChanged(e.state)
	return true
}
