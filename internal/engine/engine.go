// Package engine is the reentrancy-safe lifecycle state machine at the
// heart of backgroundsvc: spec.md §4.1. Every exported symbol here is
// re-exported (mostly by alias) through the root backgroundsvc package;
// engine itself never imports it, so that the façade can wrap the engine
// without an import cycle.
package engine

import "backgroundsvc/internal/liveness"

// StartingStep enumerates spec.md §3's starting_step sequence.
type StartingStep int

const (
	StartNone StartingStep = iota
	StartSetUpServicePlatform
	StartStartServicePlatform
	StartRetrieveConfiguration
	StartServing        // start_serving, as a service
	StartSetServiceStateServing
	StartSetUpConsolePlatform
	StartStartConsolePlatform
	StartServingConsole // start_serving, as a console application
	StartSetStateServing
	StartDone
)

// StoppingStep enumerates spec.md §3's stopping_step sequence.
type StoppingStep int

const (
	StopNone StoppingStep = iota
	StopSetUpController

	// The four steps below only ever exist for a heartbeat: they are
	// re-entry holding points computed by doStopSetUpController from whichever
	// startingStep shutdown interrupted (spec.md §4.1.2's re-entry table),
	// not steps of the normal top-to-bottom sequence.
	stopAwaitServicePlatformStart
	stopAwaitConsolePlatformStart
	stopAwaitConfigThenStopped
	stopAwaitStartCompletion

	StopSetServiceStateStopping
	StopStopServing
	StopSetServiceStateStopped
	StopStopServicePlatform
	StopStopConsolePlatform
	StopExitApplication
	StopSetStateStopped
	StopDone
)

// Proceeding enumerates spec.md §3's proceeding status.
type Proceeding int

const (
	ProceedNone Proceeding = iota
	ProceedStarting
	ProceedStarted
	ProceedStopping
	ProceedStopped
	ProceedFailed
)

// Control enumerates spec.md §3's control guard.
type Control int

const (
	ControlIdle Control = iota
	ControlQueueing
	ControlProcessing
)

// Observer is the façade's callback surface: the four user-visible
// events of spec.md §2 and §4.1.
type Observer interface {
	// OnStart reports handled=false if no embedder listener is actually
	// registered, in which case the engine proceeds as though SetStarted
	// had been called synchronously (spec.md §4.1.1 step 5).
	OnStart(runningAsService bool) (handled bool)
	// OnStop follows the same no-listener convention as OnStart, for the
	// symmetric reason: a service with no stop listener would otherwise
	// wait forever for a SetStopped that can never arrive.
	OnStop() (handled bool)
	OnStateChanged(state ServingState)
	// OnFailed is called synchronously with a latched, classified error.
	// It reports handled=false if no listener is registered, in which
	// case the error is treated as not ignored. If the handler wants to
	// ignore a recoverable error it calls Engine.IgnoreError before
	// returning; the engine checks the flag immediately after this call
	// returns.
	OnFailed(err *ServiceError, recoverable bool) (handled bool)
}

// Options holds every option-setter flag from spec.md §6, fixed once
// Run is called.
type Options struct {
	WithStopStarting               bool
	WithRunningAsConsoleApplication bool
	NoRunningAsService              bool
	NoRetrievingConfiguration       bool
	NoRunningAsConsoleApplication   bool
}

// Engine is the lifecycle state machine. The zero value is not usable;
// construct with New. An Engine has no locks: per spec.md §5 it assumes
// it is only ever entered from the single thread its backends have
// agreed to marshal onto.
type Engine struct {
	opts     Options
	registry *Registry
	obs      Observer
	log      LogSink
	token    *liveness.Token

	startingStep StartingStep
	stoppingStep StoppingStep
	proceeding   Proceeding
	control      Control
	regainControl bool

	eventQueue []SystemEvent

	servicePlatform ServicePlatform
	consolePlatform ConsolePlatform
	controller      EventLoopController

	runningAsService bool
	configuration    *ServiceConfiguration

	pendingError *rawError
	userError    *ServiceError
	processingRecoverableError bool
	errorIgnored bool

	exitingAbruptly bool
	exitCode        int

	state ServingState

	svcNotifier  ServicePlatformNotifier
	conNotifier  ConsolePlatformNotifier
	ctlNotifier  EventLoopControllerNotifier
}

// rawError pairs a latched backend error with the startup step it was
// raised during, since classification (spec.md §4.1.3) is keyed on both.
type rawError struct {
	err  *ServiceError
	step StartingStep
}

// New constructs an Engine. token is the liveness cell the façade owns;
// the engine never calls back into obs or a backend once token.Alive()
// is false.
func New(registry *Registry, obs Observer, log LogSink, token *liveness.Token, opts Options) *Engine {
	if log == nil {
		log = NoopSink{}
	}
	e := &Engine{
		opts:     opts,
		registry: registry,
		obs:      obs,
		log:      withComponent(log, "engine"),
		token:    token,
		state:    ServingState{Phase: PhaseNone, Target: TargetNone},
	}
	e.svcNotifier = &servicePlatformNotifier{e: e}
	e.conNotifier = &consolePlatformNotifier{e: e}
	e.ctlNotifier = &controllerNotifier{e: e}
	return e
}

// State returns the current observable ServingState.
func (e *Engine) State() ServingState {
	return e.state
}

// Configuration returns the retrieved service configuration, or nil.
func (e *Engine) Configuration() *ServiceConfiguration {
	return e.configuration
}

// RunningAsService reports whether the engine settled into service mode
// (as opposed to console mode) for the current run.
func (e *Engine) RunningAsService() bool {
	return e.runningAsService
}

// SetExitCode stores the code passed to the controller at exit. Valid at
// any time, per spec.md §4.1.
func (e *Engine) SetExitCode(code int) {
	e.exitCode = code
}

// Run sets target to serving and schedules an advance. A no-op unless
// state is (none, none).
func (e *Engine) Run() {
	if !e.state.None() {
		return
	}
	e.state.Target = TargetServing
	e.scheduleAdvance()
}

// ShutDown sets target to stopped and schedules an advance. A no-op if
// state is already (stopped, none).
func (e *Engine) ShutDown() {
	if e.state.Stopped() {
		return
	}
	e.state.Target = TargetStopped
	e.scheduleAdvance()
}

// SetStarted is the user's success signal from a start handler. A no-op
// unless the engine is actually waiting for it.
func (e *Engine) SetStarted() {
	if !e.awaitingStartCompletion() {
		return
	}
	e.proceeding = ProceedStarted
	e.scheduleAdvance()
}

// SetFailedToStart is the user's failure signal from a start handler. A
// no-op unless the engine is actually waiting for it.
func (e *Engine) SetFailedToStart() {
	if !e.awaitingStartCompletion() {
		return
	}
	e.proceeding = ProceedFailed
	e.state.Target = TargetStopped
	e.scheduleAdvance()
}

// SetStopped is the user's completion signal from a stop handler. A
// no-op unless the engine is actually waiting for it.
func (e *Engine) SetStopped() {
	if e.stoppingStep != StopStopServing {
		return
	}
	e.proceeding = ProceedStopped
	e.scheduleAdvance()
}

// IgnoreError must be called from within Observer.OnFailed to continue
// past a recoverable error. A no-op if no recoverable error is currently
// being reported.
func (e *Engine) IgnoreError() {
	if e.userError == nil || !e.processingRecoverableError {
		return
	}
	e.errorIgnored = true
}

// DeliverSystemEvent enqueues a system event for processing on the next
// advance loop iteration. Safe to call from backend notifier
// implementations once they have marshaled onto the engine's thread.
func (e *Engine) DeliverSystemEvent(ev SystemEvent) {
	if e.stoppingStep >= StopExitApplication && e.stoppingStep != StopNone {
		return
	}
	e.eventQueue = append(e.eventQueue, ev)
	e.scheduleAdvance()
}

// SetOption applies one option flag. A no-op unless state is *none*, per
// spec.md §4.1's "option setters" row.
func (e *Engine) SetOption(set func(*Options)) {
	if !e.state.None() {
		return
	}
	set(&e.opts)
}

func (e *Engine) awaitingStartCompletion() bool {
	return (e.startingStep == StartServing || e.startingStep == StartServingConsole) &&
		e.proceeding == ProceedStarting &&
		(e.stoppingStep == StopNone || e.stoppingStep == stopAwaitStartCompletion)
}

// scheduleAdvance implements spec.md §4.1's reentrancy discipline with a
// trampoline instead of a real posted callback: the engine has no host
// event loop of its own to post to (Non-goal, spec.md §1), so "queueing"
// and "processing" collapse into one synchronous pass on the calling
// goroutine, with regainControl ensuring a reentrant call observed while
// that pass is running gets picked up by the SAME pass rather than
// recursing.
func (e *Engine) scheduleAdvance() {
	switch e.control {
	case ControlProcessing:
		e.regainControl = true
		return
	case ControlQueueing:
		return
	}
	e.control = ControlQueueing
	e.drive()
}

func (e *Engine) drive() {
	e.control = ControlProcessing
	for {
		for e.step() {
			if !e.token.Alive() {
				return
			}
		}
		if e.regainControl {
			e.regainControl = false
			continue
		}
		break
	}
	e.control = ControlIdle
}

// step performs at most one unit of work, per the prioritised list in
// spec.md §4.1 ("Prioritised work each invocation"). It returns true if
// progress was made (the caller should call step again) and false when
// there is nothing left to do right now.
func (e *Engine) step() bool {
	if !e.token.Alive() {
		return false
	}

	if len(e.eventQueue) > 0 && !(e.stoppingStep >= StopExitApplication && e.stoppingStep != StopNone) {
		ev := e.eventQueue[0]
		e.eventQueue = e.eventQueue[1:]
		if ev.Action == ActionStop {
			e.log.Info("Stop on signal: '" + ev.Origin + "'.")
			e.state.Target = TargetStopped
		}
		return true
	}

	if e.pendingError != nil {
		return e.classifyAndHandlePendingError()
	}

	switch e.state.Target {
	case TargetServing:
		return e.stepStarting()
	case TargetStopped:
		if e.stoppingStep == StopNone {
			e.enterStopping()
			return true
		}
		return e.stepStopping()
	default:
		return false
	}
}

// resolved reports whether the current async command's notifier has
// already delivered a result (any Proceeding value other than the two
// "not yet" markers).
func (e *Engine) resolved() bool {
	return e.proceeding != ProceedNone && e.proceeding != ProceedStarting
}

// latchError records a raw backend error for classification on the next
// step() iteration. step is the startingStep in effect when the error
// was raised; classification is keyed on it per spec.md §4.1.3.
func (e *Engine) latchError(err *ServiceError, step StartingStep) {
	e.pendingError = &rawError{err: err, step: step}
}
