package kafka

import (
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backgroundsvc"
)

func newTestReporter(t *testing.T) (*Reporter, *mocks.AsyncProducer) {
	t.Helper()
	cfg := mocks.NewTestConfig()
	mp := mocks.NewAsyncProducer(t, cfg)
	t.Cleanup(func() {
		defer func() { recover() }()
		_ = mp.Close()
	})
	return &Reporter{producer: mp, topic: "svc-lifecycle"}, mp
}

// expectMessage registers an expectation on mp and returns a channel that
// receives the published message once the mock's background dispatcher
// processes it.
func expectMessage(mp *mocks.AsyncProducer) <-chan *sarama.ProducerMessage {
	got := make(chan *sarama.ProducerMessage, 1)
	mp.ExpectInputWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		got <- msg
		return nil
	})
	return got
}

func awaitMessage(t *testing.T, got <-chan *sarama.ProducerMessage) *sarama.ProducerMessage {
	t.Helper()
	select {
	case msg := <-got:
		return msg
	case <-time.After(time.Second):
		t.Fatal("expected a message to be published")
		return nil
	}
}

func TestReportStartPublishesEnvelope(t *testing.T) {
	r, mp := newTestReporter(t)
	got := expectMessage(mp)

	r.ReportStart("svc1", true)

	msg := awaitMessage(t, got)
	assert.Equal(t, "svc-lifecycle", msg.Topic)
	key, err := msg.Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, "svc1", string(key))

	body, err := msg.Value.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(body), `"event":"start"`)
	assert.Contains(t, string(body), `"running_as_service":true`)
}

func TestReportStopPublishesEnvelope(t *testing.T) {
	r, mp := newTestReporter(t)
	got := expectMessage(mp)

	r.ReportStop("svc1")

	msg := awaitMessage(t, got)
	body, err := msg.Value.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(body), `"event":"stop"`)
}

func TestReportStateChangedPublishesPhaseAndTarget(t *testing.T) {
	r, mp := newTestReporter(t)
	got := expectMessage(mp)

	r.ReportStateChanged("svc1", backgroundsvc.ServingState{
		Phase:  backgroundsvc.PhaseServing,
		Target: backgroundsvc.TargetNone,
	})

	msg := awaitMessage(t, got)
	body, err := msg.Value.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(body), `"phase":"serving"`)
	assert.Contains(t, string(body), `"target":"none"`)
}

func TestReportFailedIncludesErrorFields(t *testing.T) {
	r, mp := newTestReporter(t)
	got := expectMessage(mp)

	r.ReportFailed("svc1", backgroundsvc.NewServiceError(backgroundsvc.ErrNotSystemService, "not launched by scm"), true)

	msg := awaitMessage(t, got)
	body, err := msg.Value.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(body), `"error_kind":"not_system_service"`)
	assert.Contains(t, string(body), `"recoverable":true`)
}

func TestReportFailedWithNilErrorOmitsErrorFields(t *testing.T) {
	r, mp := newTestReporter(t)
	got := expectMessage(mp)

	r.ReportFailed("svc1", nil, false)

	msg := awaitMessage(t, got)
	body, err := msg.Value.Encode()
	require.NoError(t, err)
	assert.NotContains(t, string(body), "error_kind")
}

func TestPublishDoesNotBlock(t *testing.T) {
	r, mp := newTestReporter(t)

	// The mock producer's dispatcher goroutine always drains Input, so an
	// expectation must be registered for the message it will receive; what
	// this test actually proves is that ReportStop returns immediately
	// (publish uses select{default:}) rather than blocking on the send.
	mp.ExpectInputAndSucceed()

	done := make(chan struct{})
	go func() {
		r.ReportStop("svc1")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked instead of defaulting")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	r, _ := newTestReporter(t)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	// publish after Close is a silent no-op, not a panic or send on a
	// closed producer.
	assert.NotPanics(t, func() { r.ReportStop("svc1") })
}

func TestBuildTLSConfigWithoutFilesReturnsMinimalConfig(t *testing.T) {
	cfg, err := buildTLSConfig("", "", "")
	require.NoError(t, err)
	assert.Empty(t, cfg.Certificates)
	assert.Nil(t, cfg.RootCAs)
}
