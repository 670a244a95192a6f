//go:build windows

// Package servicewindows is the reference ServicePlatform backend for
// the Windows Service Control Manager: spec.md §4.2, grounded on the
// teacher's internal/service/windows.go SCM dispatcher handshake and
// internal/service/eventlog_windows.go startup-failure reporting.
package servicewindows

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/eventlog"

	"github.com/yusufpapurcu/wmi"

	"backgroundsvc"
)

// Backend implements svc.Handler directly: the dispatcher calls Execute
// on its own OS thread, and the engine's SetState*/Stop calls push status
// updates onto the channel Execute hands it.
type Backend struct {
	name string

	mu      sync.Mutex
	changes chan<- svc.Status
	done    chan struct{}

	notifier backgroundsvc.ServicePlatformNotifier
}

// New returns an unstarted Backend registered under the Windows service
// name, which must match the name used when the service was installed.
func New(name string) *Backend {
	return &Backend{name: name, done: make(chan struct{})}
}

// Factory registers the Windows SCM backend.
type Factory struct {
	name  string
	order uint
}

func NewFactory(name string, order uint) *Factory { return &Factory{name: name, order: order} }

func (f *Factory) Order() uint  { return f.order }
func (f *Factory) Detect() bool { return Detect() }
func (f *Factory) Create() backgroundsvc.ServicePlatform {
	return New(f.name)
}

// Register installs the Windows SCM backend into registry
// (DefaultRegistry if nil) under name at order.
func Register(registry *backgroundsvc.Registry, name string, order uint) {
	if registry == nil {
		registry = backgroundsvc.DefaultRegistry
	}
	registry.RegisterServicePlatform(NewFactory(name, order))
}

// Detect reports whether this process was dispatched by the SCM.
func Detect() bool {
	isService, err := svc.IsWindowsService()
	return err == nil && isService
}

func (b *Backend) Check() bool { return Detect() }

func (b *Backend) Start(ctx context.Context, notifier backgroundsvc.ServicePlatformNotifier) error {
	b.notifier = notifier

	if !Detect() {
		notifier.FailedToStart(backgroundsvc.NewServiceError(backgroundsvc.ErrNotSystemService, "not dispatched by the service control manager"))
		return nil
	}

	go func() {
		if err := svc.Run(b.name, b); err != nil {
			ReportStartupError(b.name, err)
		}
	}()
	return nil
}

// Execute implements svc.Handler. It runs on the dispatcher's own thread
// for the service's entire lifetime; engine-driven state changes are
// relayed to it over the changes channel it receives here.
func (b *Backend) Execute(args []string, r <-chan svc.ChangeRequest, changes chan<- svc.Status) (svcSpecificEC bool, exitCode uint32) {
	changes <- svc.Status{State: svc.StartPending}

	b.mu.Lock()
	b.changes = changes
	b.mu.Unlock()

	b.notifier.Started()

	for {
		select {
		case c := <-r:
			switch c.Cmd {
			case svc.Interrogate:
				changes <- c.CurrentStatus
				time.Sleep(100 * time.Millisecond)
				changes <- c.CurrentStatus
			case svc.Stop, svc.Shutdown:
				b.notifier.EventReceived(backgroundsvc.SystemEvent{
					Action: backgroundsvc.ActionStop,
					Origin: "scm",
				})
			}
		case <-b.done:
			return false, 0
		}
	}
}

func (b *Backend) RetrieveConfiguration(ctx context.Context) {
	go func() {
		cfg, err := b.retrieveConfiguration()
		if err != nil {
			b.notifier.FailedToRetrieveConfiguration(backgroundsvc.NewServiceError(backgroundsvc.ErrFailedToRetrieveConfiguration, err.Error()))
			return
		}
		b.notifier.ConfigurationRetrieved(*cfg)
	}()
}

type win32Service struct {
	DisplayName string
	Description string
	PathName    string
	StartName   string
}

func (b *Backend) retrieveConfiguration() (*backgroundsvc.ServiceConfiguration, error) {
	var rows []win32Service
	q := fmt.Sprintf("SELECT DisplayName, Description, PathName, StartName FROM Win32_Service WHERE ProcessId = %d", os.Getpid())
	if err := wmi.Query(q, &rows); err != nil {
		return nil, fmt.Errorf("querying Win32_Service: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no Win32_Service row for pid %d", os.Getpid())
	}
	row := rows[0]
	return &backgroundsvc.ServiceConfiguration{
		Name:           row.DisplayName,
		Description:    row.Description,
		ExecutablePath: row.PathName,
		User:           row.StartName,
	}, nil
}

func (b *Backend) SetStateServing(ctx context.Context) {
	b.send(svc.Status{State: svc.Running, Accepts: svc.AcceptStop | svc.AcceptShutdown})
	b.notifier.StateServingSet()
}

func (b *Backend) SetStateStopping(ctx context.Context) {
	b.send(svc.Status{State: svc.StopPending})
	b.notifier.StateStoppingSet()
}

func (b *Backend) SetStateStopped(ctx context.Context, exitCode int) {
	b.send(svc.Status{State: svc.Stopped})
	b.notifier.StateStoppedSet()
}

func (b *Backend) Stop(ctx context.Context) {
	b.mu.Lock()
	select {
	case <-b.done:
	default:
		close(b.done)
	}
	b.mu.Unlock()
	b.notifier.Stopped()
}

func (b *Backend) send(s svc.Status) {
	b.mu.Lock()
	ch := b.changes
	b.mu.Unlock()
	if ch != nil {
		ch <- s
	}
}

// ReportStartupError writes a failure to the Windows Event Log so
// "net start" and the Event Viewer show something even when no log
// sink has been wired yet. Idempotent: InstallAsEventCreate no-ops if
// the source is already registered.
func ReportStartupError(serviceName string, err error) {
	_ = eventlog.InstallAsEventCreate(serviceName, eventlog.Error|eventlog.Warning|eventlog.Info)

	elog, openErr := eventlog.Open(serviceName)
	if openErr != nil {
		return
	}
	defer elog.Close()

	elog.Error(1, fmt.Sprintf("Failed to start: %v", err))
}
