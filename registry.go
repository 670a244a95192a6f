package backgroundsvc

import "backgroundsvc/internal/engine"

// ServicePlatformFactory is an entry in the service-platform backend
// table. Order() and Detect() follow the same contract for every backend
// kind: lower Order() is preferred, and only a backend whose Detect()
// returns true is eligible.
type ServicePlatformFactory = engine.ServicePlatformFactory

// ConsolePlatformFactory is an entry in the console-platform backend
// table.
type ConsolePlatformFactory = engine.ConsolePlatformFactory

// EventLoopControllerFactory is an entry in the event-loop-controller
// backend table. Controllers have no applicability test: the registry
// always considers them detected, and order alone breaks ties between
// multiple registered controllers.
type EventLoopControllerFactory = engine.EventLoopControllerFactory

// Registry is a process-wide table of backend factories keyed by
// capability. The zero value is usable; NewRegistry exists for
// embedders that want an isolated table in tests instead of touching the
// process-wide DefaultRegistry.
type Registry = engine.Registry

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return engine.NewRegistry()
}

// DefaultRegistry is the process-wide registry the reference backends'
// Register functions install into when given a nil registry.
var DefaultRegistry = engine.DefaultRegistry
