package backgroundsvc

import "backgroundsvc/internal/engine"

// ServicePlatformNotifier is the callback surface a ServicePlatform
// backend delivers notifications through. The methods are not
// synchronised: implementations of ServicePlatform must marshal their own
// backend threads (a service dispatcher thread, a signal handler) onto
// the engine's thread before calling them.
type ServicePlatformNotifier = engine.ServicePlatformNotifier

// ServicePlatform is the abstract boundary to the OS service-manager
// protocol. Commands are asynchronous; every command's result is
// delivered back through the ServicePlatformNotifier passed to Start.
type ServicePlatform = engine.ServicePlatform

// ConsolePlatformNotifier is the callback surface a ConsolePlatform
// backend delivers notifications through.
type ConsolePlatformNotifier = engine.ConsolePlatformNotifier

// ConsolePlatform is the abstract boundary to foreground terminal and
// session-control events.
type ConsolePlatform = engine.ConsolePlatform

// EventLoopControllerNotifier is the callback surface an
// EventLoopController backend delivers notifications through.
type EventLoopControllerNotifier = engine.EventLoopControllerNotifier

// EventLoopController is the thin host-adapter the engine uses to
// request process exit and to learn the host is exiting unexpectedly. It
// is the only backend with no detect(): there is always exactly one host
// event loop, so the registry's first registrant wins unless an
// embedder orders several.
type EventLoopController = engine.EventLoopController
