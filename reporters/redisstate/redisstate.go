// Package redisstate is a backgroundsvc.Reporter that mirrors the
// façade's observable state into a Redis hash, grounded on the teacher's
// internal/eqpinfo.go client construction (redis.Options, optional
// dialer) but writing instead of reading.
package redisstate

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"backgroundsvc"
)

// Config configures the Redis connection.
type Config struct {
	Addr     string
	Password string
	DB       int

	// Dialer overrides the connection transport, e.g. to route through a
	// SOCKS proxy. Nil uses go-redis's default.
	Dialer func(network, addr string) (net.Conn, error)

	// Timeout bounds every Redis call the reporter makes. Zero uses 5s.
	Timeout time.Duration
}

// Reporter writes the service's lifecycle into a Redis hash keyed by
// service name at "bgsvc:state:<name>". It implements backgroundsvc.Reporter.
type Reporter struct {
	client  *redis.Client
	timeout time.Duration
}

// New constructs a Reporter. The connection is lazy; go-redis dials on
// first use.
func New(cfg Config) *Reporter {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.Dialer != nil {
		opts.Dialer = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return cfg.Dialer(network, addr)
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Reporter{client: redis.NewClient(opts), timeout: timeout}
}

// NewWithClient wraps an already-constructed client, e.g. one dialed
// against a miniredis instance in tests.
func NewWithClient(client *redis.Client, timeout time.Duration) *Reporter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Reporter{client: client, timeout: timeout}
}

func key(name string) string { return fmt.Sprintf("bgsvc:state:%s", name) }

func (r *Reporter) ReportStart(name string, runningAsService bool) {
	r.writeHash(name, map[string]any{
		"event":              "start",
		"running_as_service": runningAsService,
		"updated_at":         time.Now().Format(time.RFC3339Nano),
	})
}

func (r *Reporter) ReportStop(name string) {
	r.writeHash(name, map[string]any{
		"event":      "stop",
		"updated_at": time.Now().Format(time.RFC3339Nano),
	})
}

func (r *Reporter) ReportStateChanged(name string, state backgroundsvc.ServingState) {
	r.writeHash(name, map[string]any{
		"event":      "state_changed",
		"phase":      state.Phase.String(),
		"target":     state.Target.String(),
		"updated_at": time.Now().Format(time.RFC3339Nano),
	})
}

func (r *Reporter) ReportFailed(name string, err *backgroundsvc.ServiceError, recoverable bool) {
	fields := map[string]any{
		"event":       "failed",
		"recoverable": recoverable,
		"updated_at":  time.Now().Format(time.RFC3339Nano),
	}
	if err != nil {
		fields["error_kind"] = err.Kind.String()
		fields["error_text"] = err.Message
	}
	r.writeHash(name, fields)
}

func (r *Reporter) writeHash(name string, fields map[string]any) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	r.client.HSet(ctx, key(name), fields)
}

func (r *Reporter) Close() error {
	return r.client.Close()
}
