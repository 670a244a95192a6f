package console

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backgroundsvc"
)

type recordingNotifier struct {
	startedCh chan struct{}
	eventCh   chan backgroundsvc.SystemEvent
	stoppedCh chan struct{}
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{
		startedCh: make(chan struct{}, 1),
		eventCh:   make(chan backgroundsvc.SystemEvent, 1),
		stoppedCh: make(chan struct{}, 1),
	}
}

func (n *recordingNotifier) Started()                    { n.startedCh <- struct{}{} }
func (n *recordingNotifier) FailedToStart(*backgroundsvc.ServiceError) {}
func (n *recordingNotifier) Stopped()                     { n.stoppedCh <- struct{}{} }
func (n *recordingNotifier) EventReceived(ev backgroundsvc.SystemEvent) { n.eventCh <- ev }

func TestStartNotifiesStarted(t *testing.T) {
	c := New()
	n := newRecordingNotifier()
	require.NoError(t, c.Start(context.Background(), n))
	defer c.Stop(context.Background())

	select {
	case <-n.startedCh:
	case <-time.After(time.Second):
		t.Fatal("Started was never called")
	}
}

func TestSignalDeliversStopEvent(t *testing.T) {
	c := New()
	n := newRecordingNotifier()
	require.NoError(t, c.Start(context.Background(), n))
	defer c.Stop(context.Background())

	<-n.startedCh

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGINT))

	select {
	case ev := <-n.eventCh:
		assert.Equal(t, backgroundsvc.ActionStop, ev.Action)
	case <-time.After(2 * time.Second):
		t.Fatal("no SystemEvent delivered for SIGINT")
	}
}

func TestStopNotifiesStopped(t *testing.T) {
	c := New()
	n := newRecordingNotifier()
	require.NoError(t, c.Start(context.Background(), n))
	<-n.startedCh

	c.Stop(context.Background())

	select {
	case <-n.stoppedCh:
	case <-time.After(time.Second):
		t.Fatal("Stopped was never called")
	}
}

func TestFactoryAlwaysDetects(t *testing.T) {
	f := NewFactory(42)
	assert.Equal(t, uint(42), f.Order())
	assert.True(t, f.Detect())
	assert.NotNil(t, f.Create())
}

func TestRegisterUsesDefaultRegistryWhenNil(t *testing.T) {
	Register(nil, 99)
	assert.NotNil(t, backgroundsvc.DefaultRegistry.SelectConsolePlatform())
}
