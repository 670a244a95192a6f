package engine

import "sort"

// ServicePlatformFactory is an entry in the service-platform backend
// table. Order() and Detect() follow the same contract for every backend
// kind: lower Order() is preferred, and only a backend whose Detect()
// returns true is eligible.
type ServicePlatformFactory interface {
	Order() uint
	Detect() bool
	Create() ServicePlatform
}

// ConsolePlatformFactory is an entry in the console-platform backend
// table.
type ConsolePlatformFactory interface {
	Order() uint
	Detect() bool
	Create() ConsolePlatform
}

// EventLoopControllerFactory is an entry in the event-loop-controller
// backend table. Controllers have no applicability test: the registry
// always considers them detected, and order alone breaks ties between
// multiple registered controllers.
type EventLoopControllerFactory interface {
	Order() uint
	Create() EventLoopController
}

// Registry is a process-wide table of backend factories keyed by
// capability.
type Registry struct {
	servicePlatforms []ServicePlatformFactory
	consolePlatforms []ConsolePlatformFactory
	controllers      []EventLoopControllerFactory
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// DefaultRegistry is the process-wide registry the reference backends'
// Register functions install into when given a nil registry.
var DefaultRegistry = NewRegistry()

func (r *Registry) RegisterServicePlatform(f ServicePlatformFactory) {
	r.servicePlatforms = append(r.servicePlatforms, f)
}

func (r *Registry) RegisterConsolePlatform(f ConsolePlatformFactory) {
	r.consolePlatforms = append(r.consolePlatforms, f)
}

func (r *Registry) RegisterEventLoopController(f EventLoopControllerFactory) {
	r.controllers = append(r.controllers, f)
}

// SelectServicePlatform enumerates registered factories by ascending
// Order() and returns the first whose Detect() returns true. Returns nil
// if none applies.
func (r *Registry) SelectServicePlatform() ServicePlatformFactory {
	candidates := append([]ServicePlatformFactory(nil), r.servicePlatforms...)
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Order() < candidates[j].Order() })
	for _, c := range candidates {
		if c.Detect() {
			return c
		}
	}
	return nil
}

// SelectConsolePlatform enumerates registered factories by ascending
// Order() and returns the first whose Detect() returns true. Returns nil
// if none applies.
func (r *Registry) SelectConsolePlatform() ConsolePlatformFactory {
	candidates := append([]ConsolePlatformFactory(nil), r.consolePlatforms...)
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Order() < candidates[j].Order() })
	for _, c := range candidates {
		if c.Detect() {
			return c
		}
	}
	return nil
}

// SelectEventLoopController returns the lowest-Order() registered
// controller factory, or nil if none is registered.
func (r *Registry) SelectEventLoopController() EventLoopControllerFactory {
	if len(r.controllers) == 0 {
		return nil
	}
	best := r.controllers[0]
	for _, c := range r.controllers[1:] {
		if c.Order() < best.Order() {
			best = c
		}
	}
	return best
}
