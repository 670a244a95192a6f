// Package kafka is a backgroundsvc.Reporter that publishes a JSON
// envelope of every lifecycle event to a Kafka topic, grounded on the
// teacher's internal/sender/kafka.go producer setup (SASL/SCRAM, TLS,
// SOCKS5 proxying, compression) adapted to the façade's four report
// callbacks instead of metric batches.
package kafka

import (
	"crypto/sha256"
	"crypto/sha512"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"hash"
	"encoding/json"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/xdg-go/scram"
	"golang.org/x/net/proxy"

	"backgroundsvc"
)

var (
	sha256Generator scram.HashGeneratorFcn = func() hash.Hash { return sha256.New() }
	sha512Generator scram.HashGeneratorFcn = func() hash.Hash { return sha512.New() }
)

// xdgSCRAMClient implements sarama.SCRAMClient via xdg-go/scram.
type xdgSCRAMClient struct {
	*scram.Client
	*scram.ClientConversation
	HashGeneratorFcn scram.HashGeneratorFcn
}

func (x *xdgSCRAMClient) Begin(userName, password, authzID string) (err error) {
	x.Client, err = x.HashGeneratorFcn.NewClient(userName, password, authzID)
	if err != nil {
		return err
	}
	x.ClientConversation = x.Client.NewConversation()
	return nil
}

func (x *xdgSCRAMClient) Step(challenge string) (string, error) { return x.ClientConversation.Step(challenge) }
func (x *xdgSCRAMClient) Done() bool                            { return x.ClientConversation.Done() }

// Config configures the Kafka reporter's producer and transport.
type Config struct {
	Brokers []string
	Topic   string

	MaxRetries     int
	RetryBackoff   time.Duration
	FlushFrequency time.Duration
	FlushMessages  int
	BatchSize      int
	Compression    string // "snappy" (default), "gzip", "lz4", "zstd"
	RequiredAcks   int    // 0 (the zero value), 1, -1; any other value means 1

	Timeout time.Duration

	EnableTLS   bool
	TLSCertFile string
	TLSKeyFile  string
	TLSCAFile   string

	SASLEnabled   bool
	SASLUser      string
	SASLPassword  string
	SASLMechanism string // "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512"

	SOCKSHost string
	SOCKSPort int
}

// Reporter publishes lifecycle events to Kafka. It implements
// backgroundsvc.Reporter.
type Reporter struct {
	producer sarama.AsyncProducer
	topic    string

	mu     sync.RWMutex
	closed bool
}

// New builds a Reporter's producer from cfg and starts its background
// error-drain goroutine.
func New(cfg Config) (*Reporter, error) {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Producer.Return.Successes = false
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.Retry.Max = cfg.MaxRetries
	saramaConfig.Producer.Retry.Backoff = cfg.RetryBackoff
	saramaConfig.Producer.Flush.Frequency = cfg.FlushFrequency
	saramaConfig.Producer.Flush.Messages = cfg.FlushMessages
	saramaConfig.Producer.Flush.MaxMessages = cfg.BatchSize

	switch strings.ToLower(cfg.Compression) {
	case "gzip":
		saramaConfig.Producer.Compression = sarama.CompressionGZIP
	case "lz4":
		saramaConfig.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		saramaConfig.Producer.Compression = sarama.CompressionZSTD
	default:
		saramaConfig.Producer.Compression = sarama.CompressionSnappy
	}

	switch cfg.RequiredAcks {
	case 0:
		saramaConfig.Producer.RequiredAcks = sarama.NoResponse
	case -1:
		saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	default:
		saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	}

	if cfg.Timeout > 0 {
		saramaConfig.Net.DialTimeout = cfg.Timeout
		saramaConfig.Net.ReadTimeout = cfg.Timeout
		saramaConfig.Net.WriteTimeout = cfg.Timeout
	}

	if cfg.EnableTLS {
		tlsConfig, err := buildTLSConfig(cfg.TLSCertFile, cfg.TLSKeyFile, cfg.TLSCAFile)
		if err != nil {
			return nil, fmt.Errorf("kafka reporter: %w", err)
		}
		saramaConfig.Net.TLS.Enable = true
		saramaConfig.Net.TLS.Config = tlsConfig
	}

	if cfg.SASLEnabled {
		saramaConfig.Net.SASL.Enable = true
		saramaConfig.Net.SASL.User = cfg.SASLUser
		saramaConfig.Net.SASL.Password = cfg.SASLPassword

		switch strings.ToUpper(cfg.SASLMechanism) {
		case "SCRAM-SHA-256":
			saramaConfig.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA256
			saramaConfig.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
				return &xdgSCRAMClient{HashGeneratorFcn: sha256Generator}
			}
		case "SCRAM-SHA-512":
			saramaConfig.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA512
			saramaConfig.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
				return &xdgSCRAMClient{HashGeneratorFcn: sha512Generator}
			}
		default:
			saramaConfig.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		}
	}

	if cfg.SOCKSHost != "" && cfg.SOCKSPort > 0 {
		addr := fmt.Sprintf("%s:%d", cfg.SOCKSHost, cfg.SOCKSPort)
		dialer, err := proxy.SOCKS5("tcp", addr, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("kafka reporter: creating SOCKS5 dialer: %w", err)
		}
		saramaConfig.Net.Proxy.Enable = true
		saramaConfig.Net.Proxy.Dialer = dialer
	}

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("kafka reporter: %w", err)
	}

	r := &Reporter{producer: producer, topic: cfg.Topic}
	go r.drainErrors()
	return r, nil
}

type envelope struct {
	Service     string  `json:"service"`
	Event       string  `json:"event"`
	RunningAs   *bool   `json:"running_as_service,omitempty"`
	Phase       string  `json:"phase,omitempty"`
	Target      string  `json:"target,omitempty"`
	ErrorKind   string  `json:"error_kind,omitempty"`
	ErrorText   string  `json:"error_text,omitempty"`
	Recoverable *bool   `json:"recoverable,omitempty"`
}

func (r *Reporter) ReportStart(name string, runningAsService bool) {
	r.publish(envelope{Service: name, Event: "start", RunningAs: &runningAsService})
}

func (r *Reporter) ReportStop(name string) {
	r.publish(envelope{Service: name, Event: "stop"})
}

func (r *Reporter) ReportStateChanged(name string, state backgroundsvc.ServingState) {
	r.publish(envelope{
		Service: name,
		Event:   "state_changed",
		Phase:   state.Phase.String(),
		Target:  state.Target.String(),
	})
}

func (r *Reporter) ReportFailed(name string, err *backgroundsvc.ServiceError, recoverable bool) {
	e := envelope{Service: name, Event: "failed", Recoverable: &recoverable}
	if err != nil {
		e.ErrorKind = err.Kind.String()
		e.ErrorText = err.Message
	}
	r.publish(e)
}

// publish never blocks: if the producer's input buffer is full, the
// envelope is dropped rather than stalling the façade's event dispatch.
func (r *Reporter) publish(e envelope) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}

	body, err := json.Marshal(e)
	if err != nil {
		return
	}
	msg := &sarama.ProducerMessage{
		Topic: r.topic,
		Key:   sarama.StringEncoder(e.Service),
		Value: sarama.ByteEncoder(body),
	}
	select {
	case r.producer.Input() <- msg:
	default:
	}
}

func (r *Reporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.producer.Close()
}

func (r *Reporter) drainErrors() {
	for range r.producer.Errors() {
		// Dropped: a reporter has no sink of its own to log through, and
		// must never touch the façade's LogSink from a foreign goroutine.
	}
}

func buildTLSConfig(certFile, keyFile, caFile string) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}

	if certFile != "" && keyFile != "" {
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, fmt.Errorf("loading client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	if caFile != "" {
		caCert, err := os.ReadFile(caFile)
		if err != nil {
			return nil, fmt.Errorf("reading CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("parsing CA certificate")
		}
		cfg.RootCAs = pool
	}

	return cfg, nil
}
