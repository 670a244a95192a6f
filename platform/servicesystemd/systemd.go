// Package servicesystemd is the reference ServicePlatform backend for
// systemd-managed Linux services: spec.md §4.2's "implementation notes"
// for an OS with a service-control handshake, specialised to systemd's
// sd_notify protocol rather than a blocking dispatcher call.
package servicesystemd

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/shirou/gopsutil/v3/process"

	"backgroundsvc"
)

// Backend talks to systemd over the NOTIFY_SOCKET datagram protocol.
type Backend struct {
	notifier backgroundsvc.ServicePlatformNotifier
	conn     *net.UnixConn
	clock    clock.Clock

	watchdogUsec int64
	stopWatchdog chan struct{}
}

// New returns an unstarted Backend using the real wall clock.
func New() *Backend { return &Backend{clock: clock.New()} }

// NewWithClock returns an unstarted Backend driven by c, so the watchdog
// ticker is test-controllable without a real sleep.
func NewWithClock(c clock.Clock) *Backend { return &Backend{clock: c} }

// Factory registers the systemd backend. Order is conventionally lower
// (higher priority) than the console fallback.
type Factory struct{ order uint }

func NewFactory(order uint) *Factory                           { return &Factory{order: order} }
func (f *Factory) Order() uint                                  { return f.order }
func (f *Factory) Detect() bool                                 { return Detect() }
func (f *Factory) Create() backgroundsvc.ServicePlatform        { return New() }

// Register installs the systemd backend into registry (DefaultRegistry
// if nil) at order.
func Register(registry *backgroundsvc.Registry, order uint) {
	if registry == nil {
		registry = backgroundsvc.DefaultRegistry
	}
	registry.RegisterServicePlatform(NewFactory(order))
}

// Detect reports whether this process was launched as a systemd unit —
// the unix analogue of the Windows dispatcher handshake, since systemd
// never calls back into the process to prove it, it just sets these two
// variables on unit processes.
func Detect() bool {
	return os.Getenv("INVOCATION_ID") != "" && os.Getenv("NOTIFY_SOCKET") != ""
}

func (b *Backend) Check() bool { return Detect() }

func (b *Backend) Start(ctx context.Context, notifier backgroundsvc.ServicePlatformNotifier) error {
	b.notifier = notifier

	sock := os.Getenv("NOTIFY_SOCKET")
	if sock == "" {
		notifier.FailedToStart(backgroundsvc.NewServiceError(backgroundsvc.ErrFailedToRun, "NOTIFY_SOCKET is not set"))
		return nil
	}
	conn, err := net.DialUnix("unixgram", nil, &net.UnixAddr{Name: sock, Net: "unixgram"})
	if err != nil {
		notifier.FailedToStart(backgroundsvc.NewServiceError(backgroundsvc.ErrFailedToRun, err.Error()))
		return nil
	}
	b.conn = conn

	if usec := os.Getenv("WATCHDOG_USEC"); usec != "" {
		if n, perr := strconv.ParseInt(usec, 10, 64); perr == nil {
			b.watchdogUsec = n
		}
	}

	notifier.Started()
	return nil
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

func (b *Backend) retrieveConfiguration() (*backgroundsvc.ServiceConfiguration, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("looking up own process: %w", err)
	}
	exe, err := proc.Exe()
	if err != nil {
		return nil, fmt.Errorf("reading executable path: %w", err)
	}
	username, _ := proc.Username()

	return &backgroundsvc.ServiceConfiguration{
		Name:           filepath.Base(exe),
		Description:    "systemd unit " + os.Getenv("INVOCATION_ID"),
		ExecutablePath: exe,
		User:           username,
	}, nil
}

func (b *Backend) SetStateServing(ctx context.Context) {
	if err := b.notify("READY=1\nSTATUS=serving"); err != nil {
		b.notifier.FailedToSetStateServing(backgroundsvc.NewServiceError(backgroundsvc.ErrFailedToRun, err.Error()))
		return
	}
	b.startWatchdog()
	b.notifier.StateServingSet()
}

func (b *Backend) SetStateStopping(ctx context.Context) {
	_ = b.notify("STOPPING=1")
	b.notifier.StateStoppingSet()
}

func (b *Backend) SetStateStopped(ctx context.Context, exitCode int) {
	_ = b.notify(fmt.Sprintf("STATUS=stopped exit=%d", exitCode))
	b.stopWatchdogTicker()
	b.notifier.StateStoppedSet()
}

func (b *Backend) Stop(ctx context.Context) {
	b.stopWatchdogTicker()
	if b.conn != nil {
		_ = b.conn.Close()
	}
	b.notifier.Stopped()
}

func (b *Backend) notify(msg string) error {
	if b.conn == nil {
		return fmt.Errorf("not connected to NOTIFY_SOCKET")
	}
	_, err := b.conn.Write([]byte(msg))
	return err
}

func (b *Backend) startWatchdog() {
	if b.watchdogUsec <= 0 {
		return
	}
	interval := time.Duration(b.watchdogUsec) * time.Microsecond / 2
	b.stopWatchdog = make(chan struct{})
	ticker := b.clock.Ticker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = b.notify("WATCHDOG=1")
			case <-b.stopWatchdog:
				return
			}
		}
	}()
}

func (b *Backend) stopWatchdogTicker() {
	if b.stopWatchdog != nil {
		close(b.stopWatchdog)
		b.stopWatchdog = nil
	}
}
