package engine

import "context"

// ServicePlatformNotifier is the callback surface a ServicePlatform
// backend delivers notifications through. The methods are not
// synchronised: implementations of ServicePlatform must marshal
// their own backend threads (a service dispatcher thread, a signal
// handler) onto the engine's thread before calling these, per spec §5.
type ServicePlatformNotifier interface {
	Started()
	FailedToStart(err *ServiceError)
	ConfigurationRetrieved(cfg ServiceConfiguration)
	FailedToRetrieveConfiguration(err *ServiceError)
	StateServingSet()
	FailedToSetStateServing(err *ServiceError)
	StateStoppingSet()
	StateStoppedSet()
	Stopped()
	EventReceived(ev SystemEvent)
}

// ServicePlatform is the abstract boundary to the OS service-manager
// protocol. Commands are asynchronous; every command's result is
// delivered back through the ServicePlatformNotifier passed to Start.
type ServicePlatform interface {
	// Check synchronously reports whether this process appears to be a
	// system-service invocation. Called once, after Start succeeds.
	Check() bool

	// Start begins the platform handshake. Notifier.Started or
	// Notifier.FailedToStart follows asynchronously.
	Start(ctx context.Context, notifier ServicePlatformNotifier) error

	// RetrieveConfiguration requests the service's configuration record.
	RetrieveConfiguration(ctx context.Context)

	// SetStateServing tells the platform to report to the OS manager
	// that the service is live.
	SetStateServing(ctx context.Context)

	// SetStateStopping tells the platform to report pending stop.
	// Failures are never reported back; they are logged by the backend.
	SetStateStopping(ctx context.Context)

	// SetStateStopped tells the platform to report the service has
	// stopped, carrying the process exit code.
	SetStateStopped(ctx context.Context, exitCode int)

	// Stop disengages the platform. Notifier.Stopped follows.
	Stop(ctx context.Context)
}

// ConsolePlatformNotifier is the callback surface a ConsolePlatform
// backend delivers notifications through.
type ConsolePlatformNotifier interface {
	Started()
	FailedToStart(err *ServiceError)
	Stopped()
	EventReceived(ev SystemEvent)
}

// ConsolePlatform is the abstract boundary to foreground terminal and
// session-control events.
type ConsolePlatform interface {
	Start(ctx context.Context, notifier ConsolePlatformNotifier) error
	Stop(ctx context.Context)
}

// EventLoopControllerNotifier is the callback surface an
// EventLoopController backend delivers notifications through.
type EventLoopControllerNotifier interface {
	// Exiting is called when the host event loop is about to exit on
	// its own, unprompted by a call to Exit.
	Exiting()
}

// EventLoopController is the thin host-adapter the engine uses to
// request process exit and to learn the host is exiting unexpectedly.
type EventLoopController interface {
	Subscribe(notifier EventLoopControllerNotifier)
	Exit(code int)
}
