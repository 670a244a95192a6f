//go:build !windows

package servicewindows

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backgroundsvc"
)

func TestDetectIsAlwaysFalseOffWindows(t *testing.T) {
	assert.False(t, Detect())
}

func TestFactoryNeverDetects(t *testing.T) {
	f := NewFactory("svc", 3)
	assert.Equal(t, uint(0), f.Order())
	assert.False(t, f.Detect())
}

func TestBackendMethodsAreInertNoOps(t *testing.T) {
	b := New("svc")
	assert.False(t, b.Check())

	ctx := context.Background()
	require.NoError(t, b.Start(ctx, nil))
	b.RetrieveConfiguration(ctx)
	b.SetStateServing(ctx)
	b.SetStateStopping(ctx)
	b.SetStateStopped(ctx, 0)
	b.Stop(ctx)
}

func TestRegisterInstallsAFactoryThatNeverWinsSelection(t *testing.T) {
	reg := backgroundsvc.NewRegistry()
	Register(reg, "svc", 1)
	assert.Nil(t, reg.SelectServicePlatform())
}

func TestReportStartupErrorIsANoOp(t *testing.T) {
	assert.NotPanics(t, func() { ReportStartupError("svc", assertErr{}) })
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
