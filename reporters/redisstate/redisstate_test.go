package redisstate

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backgroundsvc"
)

func newTestReporter(t *testing.T) (*Reporter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewWithClient(client, 0), mr
}

func TestReportStartWritesHash(t *testing.T) {
	r, mr := newTestReporter(t)
	defer r.Close()

	r.ReportStart("svc1", true)

	assert.True(t, mr.Exists(key("svc1")))
	assert.Equal(t, "start", mr.HGet(key("svc1"), "event"))
	assert.Equal(t, "1", mr.HGet(key("svc1"), "running_as_service"))
}

func TestReportStopWritesHash(t *testing.T) {
	r, mr := newTestReporter(t)
	defer r.Close()

	r.ReportStop("svc1")

	assert.Equal(t, "stop", mr.HGet(key("svc1"), "event"))
}

func TestReportStateChangedWritesPhaseAndTarget(t *testing.T) {
	r, mr := newTestReporter(t)
	defer r.Close()

	r.ReportStateChanged("svc1", backgroundsvc.ServingState{
		Phase:  backgroundsvc.PhaseServing,
		Target: backgroundsvc.TargetNone,
	})

	assert.Equal(t, "serving", mr.HGet(key("svc1"), "phase"))
	assert.Equal(t, "none", mr.HGet(key("svc1"), "target"))
}

func TestReportFailedWritesErrorFields(t *testing.T) {
	r, mr := newTestReporter(t)
	defer r.Close()

	r.ReportFailed("svc1", backgroundsvc.NewServiceError(backgroundsvc.ErrNotSystemService, "not launched by scm"), true)

	assert.Equal(t, "not_system_service", mr.HGet(key("svc1"), "error_kind"))
	assert.Equal(t, "1", mr.HGet(key("svc1"), "recoverable"))
}

func TestReportFailedWithNilErrorOmitsErrorFields(t *testing.T) {
	r, mr := newTestReporter(t)
	defer r.Close()

	r.ReportFailed("svc1", nil, false)

	keys, _ := mr.HKeys(key("svc1"))
	assert.NotContains(t, keys, "error_kind")
}

func TestCloseClosesClient(t *testing.T) {
	r, _ := newTestReporter(t)
	require.NoError(t, r.Close())
	// A second HSet after Close should fail rather than panic.
	err := r.client.HSet(context.Background(), key("svc1"), map[string]any{"x": "y"}).Err()
	assert.Error(t, err)
}
