// Package console is the reference ConsolePlatform backend: spec.md
// §4.3. It subscribes to SIGINT/SIGTERM on every platform (grounded on
// the teacher's internal/service/linux.go signal-handling shape) and, on
// Windows, additionally installs a console control handler for session
// close/logoff/shutdown events (console_windows.go).
package console

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"backgroundsvc"
)

// Console is the console-mode backend. Only one is ever active per
// process (spec.md §3: "at most one of service-platform and
// console-platform is active at any time"), but the process-wide mutex
// below guards the instance pointer the platform-specific control
// handler bridges into, since that handler runs on its own OS thread
// outside any call the engine makes.
type Console struct {
	mu       sync.Mutex
	notifier backgroundsvc.ConsolePlatformNotifier
	sigCh    chan os.Signal
	stopCh   chan struct{}
	stopped  chan struct{}
}

var (
	instanceMu sync.Mutex
	instance   *Console
)

// New returns an unstarted Console backend.
func New() *Console {
	return &Console{}
}

// Factory registers the reference console backend. Order is conventionally
// high (low priority): the service platform should win detection first.
type Factory struct {
	order uint
}

// NewFactory returns a ConsolePlatformFactory with the given order.
// Detect always reports true: console mode is always applicable as a
// fallback.
func NewFactory(order uint) *Factory { return &Factory{order: order} }

func (f *Factory) Order() uint                          { return f.order }
func (f *Factory) Detect() bool                         { return true }
func (f *Factory) Create() backgroundsvc.ConsolePlatform { return New() }

// Register installs the reference console backend into registry
// (DefaultRegistry if nil) at order.
func Register(registry *backgroundsvc.Registry, order uint) {
	if registry == nil {
		registry = backgroundsvc.DefaultRegistry
	}
	registry.RegisterConsolePlatform(NewFactory(order))
}

func (c *Console) Start(ctx context.Context, notifier backgroundsvc.ConsolePlatformNotifier) error {
	c.mu.Lock()
	c.notifier = notifier
	c.sigCh = make(chan os.Signal, 1)
	c.stopCh = make(chan struct{})
	c.stopped = make(chan struct{})
	c.mu.Unlock()

	signal.Notify(c.sigCh, syscall.SIGINT, syscall.SIGTERM)

	instanceMu.Lock()
	instance = c
	instanceMu.Unlock()

	installPlatformHandler(c)

	go c.run()

	notifier.Started()
	return nil
}

func (c *Console) run() {
	select {
	case sig := <-c.sigCh:
		c.notifier.EventReceived(backgroundsvc.SystemEvent{
			Action: backgroundsvc.ActionStop,
			Origin: sig.String(),
		})
	case <-c.stopCh:
	}
}

func (c *Console) Stop(ctx context.Context) {
	c.mu.Lock()
	signal.Stop(c.sigCh)
	close(c.stopCh)
	select {
	case <-c.stopped:
	default:
		close(c.stopped)
	}
	notifier := c.notifier
	c.mu.Unlock()

	instanceMu.Lock()
	if instance == c {
		instance = nil
	}
	instanceMu.Unlock()

	notifier.Stopped()
}
