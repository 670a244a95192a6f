package backgroundsvc

import (
	"backgroundsvc/internal/engine"
	"backgroundsvc/internal/liveness"
)

// Reporter is an optional, purely additive lifecycle event sink
// (SPEC_FULL.md §4.6). The façade drives it from its own event
// callbacks; the engine never sees it directly, so a reporter's absence,
// panic, or error changes nothing about engine behaviour.
type Reporter interface {
	// ReportStart is called once per `start` event.
	ReportStart(name string, runningAsService bool)
	// ReportStop is called once per `stop` event.
	ReportStop(name string)
	// ReportStateChanged is called once per `state_changed` event.
	ReportStateChanged(name string, state ServingState)
	// ReportFailed is called once per `failed` event.
	ReportFailed(name string, err *ServiceError, recoverable bool)
	// Close flushes and releases any resources the reporter holds. Called
	// once, after the façade reaches (stopped, none) or on Close.
	Close() error
}

// Service is the object an embedder holds for the lifetime of a
// background service: spec.md §4.5's public façade. It wraps the engine,
// multiplexing backend and user notifications into it, and exposes the
// option builder, completion signals, and observable accessors.
type Service struct {
	name string
	eng  *engine.Engine
	tok  *liveness.Token

	onStart        func(runningAsService bool)
	onStop         func()
	onStateChanged func(state ServingState)
	onFailed       func(err *ServiceError, recoverable bool) bool

	reporters []Reporter
}

// New constructs a Service in state *none*, backed by registry for
// backend selection and log for diagnostic output. A nil registry uses
// DefaultRegistry; a nil log discards everything.
func New(name string, registry *Registry, log LogSink) *Service {
	if registry == nil {
		registry = DefaultRegistry
	}
	s := &Service{name: name, tok: liveness.New()}
	s.eng = engine.New(registry, &serviceObserver{s: s}, log, s.tok, engine.Options{})
	return s
}

// serviceObserver adapts Service onto engine.Observer under its own
// method set: Service's builder methods (OnStart, OnStop, ...) register
// handlers under the same names an embedder expects, so the engine-facing
// methods with matching names but different signatures need a separate
// receiver.
type serviceObserver struct{ s *Service }

func (o *serviceObserver) OnStart(runningAsService bool) bool { return o.s.onStartEvent(runningAsService) }
func (o *serviceObserver) OnStop() bool                       { return o.s.onStopEvent() }
func (o *serviceObserver) OnStateChanged(state ServingState)  { o.s.onStateChangedEvent(state) }
func (o *serviceObserver) OnFailed(err *ServiceError, recoverable bool) bool {
	return o.s.onFailedEvent(err, recoverable)
}

// OnStart registers the `start` handler. The embedder must eventually
// call SetStarted or SetFailedToStart from within or after fn returns.
// Valid only while state is *none*.
func (s *Service) OnStart(fn func(runningAsService bool)) *Service {
	if !s.eng.State().None() {
		return s
	}
	s.onStart = fn
	return s
}

// OnStop registers the `stop` handler. The embedder must eventually call
// SetStopped. Valid only while state is *none*.
func (s *Service) OnStop(fn func()) *Service {
	if !s.eng.State().None() {
		return s
	}
	s.onStop = fn
	return s
}

// OnStateChanged registers the `state_changed` handler. Valid only while
// state is *none*.
func (s *Service) OnStateChanged(fn func(state ServingState)) *Service {
	if !s.eng.State().None() {
		return s
	}
	s.onStateChanged = fn
	return s
}

// OnFailed registers the `failed` handler. The handler may call
// IgnoreError before returning if recoverable is true. Valid only while
// state is *none*.
func (s *Service) OnFailed(fn func(err *ServiceError, recoverable bool)) *Service {
	if !s.eng.State().None() {
		return s
	}
	s.onFailed = func(err *ServiceError, recoverable bool) bool {
		fn(err, recoverable)
		return true
	}
	return s
}

// WithStopStarting allows ShutDown to preempt an in-flight `start`
// callback instead of waiting for SetStarted/SetFailedToStart first.
func (s *Service) WithStopStarting() *Service {
	s.eng.SetOption(func(o *engine.Options) { o.WithStopStarting = true })
	return s
}

// WithRunningAsConsoleApplication absorbs not_system_service errors and
// degrades to console mode instead of surfacing them.
func (s *Service) WithRunningAsConsoleApplication() *Service {
	s.eng.SetOption(func(o *engine.Options) { o.WithRunningAsConsoleApplication = true })
	return s
}

// NoRunningAsService skips the service platform entirely and goes
// straight to console mode.
func (s *Service) NoRunningAsService() *Service {
	s.eng.SetOption(func(o *engine.Options) { o.NoRunningAsService = true })
	return s
}

// NoRetrievingConfiguration skips the configuration-retrieval step.
func (s *Service) NoRetrievingConfiguration() *Service {
	s.eng.SetOption(func(o *engine.Options) { o.NoRetrievingConfiguration = true })
	return s
}

// NoRunningAsConsoleApplication disables the console-mode fallback
// entirely: if the service platform is unavailable, startup fails fatal.
func (s *Service) NoRunningAsConsoleApplication() *Service {
	s.eng.SetOption(func(o *engine.Options) { o.NoRunningAsConsoleApplication = true })
	return s
}

// WithReporter registers an additional lifecycle event sink. May be
// called multiple times. Valid only while state is *none*.
func (s *Service) WithReporter(r Reporter) *Service {
	if !s.eng.State().None() || r == nil {
		return s
	}
	s.reporters = append(s.reporters, r)
	return s
}

// Run sets target to *serving* and kicks off startup. A no-op unless
// state is *none*.
func (s *Service) Run() { s.eng.Run() }

// ShutDown sets target to *stopped* and kicks off shutdown. A no-op if
// state is already (stopped, none).
func (s *Service) ShutDown() { s.eng.ShutDown() }

// SetStarted signals successful completion of the `start` handler.
func (s *Service) SetStarted() { s.eng.SetStarted() }

// SetFailedToStart signals failed completion of the `start` handler.
func (s *Service) SetFailedToStart() { s.eng.SetFailedToStart() }

// SetStopped signals completion of the `stop` handler.
func (s *Service) SetStopped() { s.eng.SetStopped() }

// IgnoreError must be called from within the `failed` handler to
// continue past a recoverable error.
func (s *Service) IgnoreError() { s.eng.IgnoreError() }

// SetExitCode stores the code passed to the event-loop controller at
// exit. Valid at any time; defaults to 0.
func (s *Service) SetExitCode(code int) { s.eng.SetExitCode(code) }

// State returns the current observable ServingState.
func (s *Service) State() ServingState { return s.eng.State() }

// Configuration returns the retrieved service configuration, or nil if
// retrieval was skipped or failed.
func (s *Service) Configuration() *ServiceConfiguration { return s.eng.Configuration() }

// RunningAsService reports whether the current run settled into service
// mode, as opposed to console mode.
func (s *Service) RunningAsService() bool { return s.eng.RunningAsService() }

// Close releases the façade's own resources (its liveness token and any
// registered reporters). It does not stop the engine: call ShutDown and
// wait for (stopped, none) first. Safe to call more than once.
func (s *Service) Close() error {
	s.tok.Kill()
	var first error
	for _, r := range s.reporters {
		if err := closeReporter(r); err != nil && first == nil {
			first = err
		}
	}
	s.reporters = nil
	return first
}

func closeReporter(r Reporter) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &ServiceError{Kind: ErrFailedToRun, Message: "reporter panicked on Close"}
		}
	}()
	return r.Close()
}

// --- engine.Observer ---

func (s *Service) onStartEvent(runningAsService bool) bool {
	s.dispatchReporters(func(r Reporter) { r.ReportStart(s.name, runningAsService) })
	if s.onStart == nil {
		return false
	}
	s.onStart(runningAsService)
	return true
}

func (s *Service) onStopEvent() bool {
	s.dispatchReporters(func(r Reporter) { r.ReportStop(s.name) })
	if s.onStop == nil {
		return false
	}
	s.onStop()
	return true
}

func (s *Service) onStateChangedEvent(state ServingState) {
	s.dispatchReporters(func(r Reporter) { r.ReportStateChanged(s.name, state) })
	if s.onStateChanged != nil {
		s.onStateChanged(state)
	}
	if state.Stopped() {
		for _, r := range s.reporters {
			_ = closeReporter(r)
		}
		s.reporters = nil
	}
}

func (s *Service) onFailedEvent(err *ServiceError, recoverable bool) bool {
	s.dispatchReporters(func(r Reporter) { r.ReportFailed(s.name, err, recoverable) })
	if s.onFailed == nil {
		return false
	}
	return s.onFailed(err, recoverable)
}

func (s *Service) dispatchReporters(fn func(Reporter)) {
	for _, r := range s.reporters {
		safeReport(r, fn)
	}
}

func safeReport(r Reporter, fn func(Reporter)) {
	defer func() { _ = recover() }()
	fn(r)
}
