//go:build !windows

package servicewindows

import (
	"context"

	"backgroundsvc"
)

// Backend is an unusable placeholder off Windows; it exists so Register
// can be called unconditionally and simply never wins detection.
type Backend struct{}

// New returns a Backend that will never detect on this platform.
func New(name string) *Backend { return &Backend{} }

// Factory mirrors the Windows-only Factory's shape.
type Factory struct{}

func NewFactory(name string, order uint) *Factory       { return &Factory{} }
func (f *Factory) Order() uint                           { return 0 }
func (f *Factory) Detect() bool                          { return false }
func (f *Factory) Create() backgroundsvc.ServicePlatform { return &Backend{} }

// Register installs a Factory whose Detect always reports false.
func Register(registry *backgroundsvc.Registry, name string, order uint) {
	if registry == nil {
		registry = backgroundsvc.DefaultRegistry
	}
	registry.RegisterServicePlatform(NewFactory(name, order))
}

// Detect always reports false off Windows.
func Detect() bool { return false }

func (b *Backend) Check() bool { return false }
func (b *Backend) Start(ctx context.Context, notifier backgroundsvc.ServicePlatformNotifier) error {
	return nil
}
func (b *Backend) RetrieveConfiguration(ctx context.Context)       {}
func (b *Backend) SetStateServing(ctx context.Context)             {}
func (b *Backend) SetStateStopping(ctx context.Context)            {}
func (b *Backend) SetStateStopped(ctx context.Context, code int)   {}
func (b *Backend) Stop(ctx context.Context)                        {}

// ReportStartupError is a no-op off Windows.
func ReportStartupError(serviceName string, err error) {}
