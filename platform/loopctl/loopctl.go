// Package loopctl is a minimal, dependency-free EventLoopController: a
// channel-based stand-in for a host event loop, for embedders that don't
// already have one (such as cmd/bgsvcdemo).
package loopctl

import (
	"sync"

	"backgroundsvc"
)

// Controller is a process-local event loop: Wait blocks until Exit is
// called (by the engine, or externally) and returns the stored code.
type Controller struct {
	mu       sync.Mutex
	notifier backgroundsvc.EventLoopControllerNotifier
	done     chan struct{}
	code     int
	exited   bool
}

// New returns a ready Controller.
func New() *Controller {
	return &Controller{done: make(chan struct{})}
}

// Factory registers a Controller with the backend registry. Order 0:
// there is normally exactly one controller in a process.
type Factory struct {
	order uint
	ctl   *Controller
}

// NewFactory wraps an existing Controller as an EventLoopControllerFactory.
func NewFactory(ctl *Controller, order uint) *Factory {
	return &Factory{order: order, ctl: ctl}
}

func (f *Factory) Order() uint                               { return f.order }
func (f *Factory) Create() backgroundsvc.EventLoopController { return f.ctl }

// Register installs ctl into registry (DefaultRegistry if nil) at order.
func Register(registry *backgroundsvc.Registry, ctl *Controller, order uint) {
	if registry == nil {
		registry = backgroundsvc.DefaultRegistry
	}
	registry.RegisterEventLoopController(NewFactory(ctl, order))
}

func (c *Controller) Subscribe(notifier backgroundsvc.EventLoopControllerNotifier) {
	c.mu.Lock()
	c.notifier = notifier
	c.mu.Unlock()
}

// Exit requests the loop stop, recording code. Idempotent: only the
// first call's code is kept.
func (c *Controller) Exit(code int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exited {
		return
	}
	c.exited = true
	c.code = code
	close(c.done)
}

// Wait blocks until Exit is called and returns the stored exit code.
func (c *Controller) Wait() int {
	<-c.done
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code
}

// QuitUnexpectedly simulates the host loop exiting on its own — a
// signal from outside the service's own shutdown path, such as a fatal
// panic handler in the embedding program. Notifies the subscribed
// engine, but does not itself close done; the engine's own exit_code
// request (suppressed by exiting_abruptly) never arrives, so callers
// that need Wait to unblock should call Exit explicitly once they've
// finished reacting.
func (c *Controller) QuitUnexpectedly() {
	c.mu.Lock()
	notifier := c.notifier
	c.mu.Unlock()
	if notifier != nil {
		notifier.Exiting()
	}
}
