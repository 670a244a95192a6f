package servicesystemd

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backgroundsvc"
)

type recordingNotifier struct {
	startedCh  chan struct{}
	failedCh   chan *backgroundsvc.ServiceError
	cfgCh      chan backgroundsvc.ServiceConfiguration
	cfgFailCh  chan *backgroundsvc.ServiceError
	servingCh  chan struct{}
	servFailCh chan *backgroundsvc.ServiceError
	stoppingCh chan struct{}
	stoppedSet chan struct{}
	stoppedCh  chan struct{}
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{
		startedCh:  make(chan struct{}, 1),
		failedCh:   make(chan *backgroundsvc.ServiceError, 1),
		cfgCh:      make(chan backgroundsvc.ServiceConfiguration, 1),
		cfgFailCh:  make(chan *backgroundsvc.ServiceError, 1),
		servingCh:  make(chan struct{}, 1),
		servFailCh: make(chan *backgroundsvc.ServiceError, 1),
		stoppingCh: make(chan struct{}, 1),
		stoppedSet: make(chan struct{}, 1),
		stoppedCh:  make(chan struct{}, 1),
	}
}

func (n *recordingNotifier) Started()                  { n.startedCh <- struct{}{} }
func (n *recordingNotifier) FailedToStart(err *backgroundsvc.ServiceError) { n.failedCh <- err }
func (n *recordingNotifier) ConfigurationRetrieved(cfg backgroundsvc.ServiceConfiguration) {
	n.cfgCh <- cfg
}
func (n *recordingNotifier) FailedToRetrieveConfiguration(err *backgroundsvc.ServiceError) {
	n.cfgFailCh <- err
}
func (n *recordingNotifier) StateServingSet()          { n.servingCh <- struct{}{} }
func (n *recordingNotifier) FailedToSetStateServing(err *backgroundsvc.ServiceError) {
	n.servFailCh <- err
}
func (n *recordingNotifier) StateStoppingSet()         { n.stoppingCh <- struct{}{} }
func (n *recordingNotifier) StateStoppedSet()          { n.stoppedSet <- struct{}{} }
func (n *recordingNotifier) Stopped()                  { n.stoppedCh <- struct{}{} }
func (n *recordingNotifier) EventReceived(backgroundsvc.SystemEvent) {}

func listenNotifySocket(t *testing.T) (*net.UnixConn, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notify.sock")
	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: path, Net: "unixgram"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn, path
}

func readDatagram(t *testing.T, conn *net.UnixConn) string {
	t.Helper()
	buf := make([]byte, 256)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, err := conn.Read(buf)
	require.NoError(t, err)
	return string(buf[:n])
}

func TestDetectRequiresBothEnvVars(t *testing.T) {
	t.Setenv("INVOCATION_ID", "")
	t.Setenv("NOTIFY_SOCKET", "")
	assert.False(t, Detect())

	t.Setenv("INVOCATION_ID", "abc")
	assert.False(t, Detect())

	t.Setenv("NOTIFY_SOCKET", "/tmp/whatever")
	assert.True(t, Detect())
}

func TestStartFailsWithoutNotifySocket(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	b := New()
	n := newRecordingNotifier()
	require.NoError(t, b.Start(context.Background(), n))

	select {
	case err := <-n.failedCh:
		require.NotNil(t, err)
		assert.Equal(t, backgroundsvc.ErrFailedToRun, err.Kind)
	case <-time.After(time.Second):
		t.Fatal("FailedToStart was never called")
	}
}

func TestStartConnectsAndNotifiesStarted(t *testing.T) {
	server, path := listenNotifySocket(t)
	t.Setenv("NOTIFY_SOCKET", path)

	b := New()
	n := newRecordingNotifier()
	require.NoError(t, b.Start(context.Background(), n))
	defer b.Stop(context.Background())

	select {
	case <-n.startedCh:
	case <-time.After(time.Second):
		t.Fatal("Started was never called")
	}
	_ = server
}

func TestSetStateServingSendsReadyAndStatus(t *testing.T) {
	server, path := listenNotifySocket(t)
	t.Setenv("NOTIFY_SOCKET", path)

	b := New()
	n := newRecordingNotifier()
	require.NoError(t, b.Start(context.Background(), n))
	<-n.startedCh
	defer b.Stop(context.Background())

	b.SetStateServing(context.Background())

	msg := readDatagram(t, server)
	assert.Contains(t, msg, "READY=1")
	assert.Contains(t, msg, "STATUS=serving")

	select {
	case <-n.servingCh:
	case <-time.After(time.Second):
		t.Fatal("StateServingSet was never called")
	}
}

func TestSetStateStoppingSendsStopping(t *testing.T) {
	server, path := listenNotifySocket(t)
	t.Setenv("NOTIFY_SOCKET", path)

	b := New()
	n := newRecordingNotifier()
	require.NoError(t, b.Start(context.Background(), n))
	<-n.startedCh
	defer b.Stop(context.Background())

	b.SetStateStopping(context.Background())

	assert.Equal(t, "STOPPING=1", readDatagram(t, server))
	select {
	case <-n.stoppingCh:
	case <-time.After(time.Second):
		t.Fatal("StateStoppingSet was never called")
	}
}

func TestSetStateStoppedSendsStatus(t *testing.T) {
	server, path := listenNotifySocket(t)
	t.Setenv("NOTIFY_SOCKET", path)

	b := New()
	n := newRecordingNotifier()
	require.NoError(t, b.Start(context.Background(), n))
	<-n.startedCh
	defer b.Stop(context.Background())

	b.SetStateStopped(context.Background(), 7)

	assert.Equal(t, "STATUS=stopped exit=7", readDatagram(t, server))
	select {
	case <-n.stoppedSet:
	case <-time.After(time.Second):
		t.Fatal("StateStoppedSet was never called")
	}
}

func TestStopClosesConnAndNotifiesStopped(t *testing.T) {
	_, path := listenNotifySocket(t)
	t.Setenv("NOTIFY_SOCKET", path)

	b := New()
	n := newRecordingNotifier()
	require.NoError(t, b.Start(context.Background(), n))
	<-n.startedCh

	b.Stop(context.Background())

	select {
	case <-n.stoppedCh:
	case <-time.After(time.Second):
		t.Fatal("Stopped was never called")
	}
}

func TestWatchdogTicksSendPeriodicNotification(t *testing.T) {
	server, path := listenNotifySocket(t)
	t.Setenv("NOTIFY_SOCKET", path)
	t.Setenv("WATCHDOG_USEC", "20000000") // 20s -> 10s ticks

	mock := clock.NewMock()
	b := NewWithClock(mock)
	n := newRecordingNotifier()
	require.NoError(t, b.Start(context.Background(), n))
	<-n.startedCh
	defer b.Stop(context.Background())

	b.SetStateServing(context.Background())
	readDatagram(t, server) // the READY=1/STATUS=serving datagram
	<-n.servingCh

	mock.Add(10 * time.Second)

	assert.Equal(t, "WATCHDOG=1", readDatagram(t, server))
}

func TestFactoryOrderAndDetect(t *testing.T) {
	t.Setenv("INVOCATION_ID", "")
	t.Setenv("NOTIFY_SOCKET", "")
	f := NewFactory(3)
	assert.Equal(t, uint(3), f.Order())
	assert.False(t, f.Detect())
	assert.NotNil(t, f.Create())
}

func TestRegisterInstallsFactoryAtOrder(t *testing.T) {
	reg := backgroundsvc.NewRegistry()
	Register(reg, 2)

	t.Setenv("INVOCATION_ID", "x")
	t.Setenv("NOTIFY_SOCKET", "/tmp/x")
	f := reg.SelectServicePlatform()
	require.NotNil(t, f)
	assert.Equal(t, uint(2), f.Order())
}

func TestRetrieveConfigurationPopulatesFields(t *testing.T) {
	t.Setenv("INVOCATION_ID", "test-invocation")
	server, path := listenNotifySocket(t)
	t.Setenv("NOTIFY_SOCKET", path)
	_ = server

	b := New()
	n := newRecordingNotifier()
	require.NoError(t, b.Start(context.Background(), n))
	<-n.startedCh
	defer b.Stop(context.Background())

	b.RetrieveConfiguration(context.Background())

	select {
	case cfg := <-n.cfgCh:
		assert.NotEmpty(t, cfg.ExecutablePath)
		assert.Contains(t, cfg.Description, "test-invocation")
	case err := <-n.cfgFailCh:
		t.Fatalf("unexpected failure: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("neither ConfigurationRetrieved nor FailedToRetrieveConfiguration fired")
	}
}
