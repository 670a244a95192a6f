package engine

// Field is a single structured key/value pair attached to a log line.
type Field struct {
	Key   string
	Value interface{}
}

// F constructs a Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// LogSink is the pluggable destination for the engine's diagnostic
// messages (spec: "Log output... via a pluggable log sink"). These
// messages are part of the observable contract: the exact strings the
// engine passes to Info are relied on by tests, so a LogSink must not
// alter, truncate, or translate msg.
type LogSink interface {
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, err error, fields ...Field)
}

// NoopSink discards everything. Used when an embedder never supplies a
// sink.
type NoopSink struct{}

func (NoopSink) Info(string, ...Field)        {}
func (NoopSink) Warn(string, ...Field)        {}
func (NoopSink) Error(string, error, ...Field) {}

// withComponent prefixes every call with a fixed component field before
// forwarding to the underlying sink, mirroring the teacher's
// logger.WithComponent pattern.
type componentSink struct {
	underlying LogSink
	component  string
}

func withComponent(sink LogSink, component string) LogSink {
	return &componentSink{underlying: sink, component: component}
}

func (s *componentSink) Info(msg string, fields ...Field) {
	s.underlying.Info(msg, append([]Field{F("component", s.component)}, fields...)...)
}

func (s *componentSink) Warn(msg string, fields ...Field) {
	s.underlying.Warn(msg, append([]Field{F("component", s.component)}, fields...)...)
}

func (s *componentSink) Error(msg string, err error, fields ...Field) {
	s.underlying.Error(msg, err, append([]Field{F("component", s.component)}, fields...)...)
}
