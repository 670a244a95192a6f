package backgroundsvc

import "backgroundsvc/internal/obslog"

// obslogAdapter satisfies LogSink by forwarding to an *obslog.Sink,
// converting between the two packages' otherwise-identical Field types
// (kept separate to avoid an import cycle: obslog cannot import this
// package's LogSink without this package needing obslog for its default
// sink constructor).
type obslogAdapter struct {
	sink *obslog.Sink
}

// NewObsLogSink builds the module's default LogSink: structured output
// over zerolog with optional rotation, per SPEC_FULL.md §3.1. Callers
// should call the returned close function once the embedding service has
// reached (stopped, none).
func NewObsLogSink(cfg obslog.Config) (LogSink, func() error, error) {
	sink, err := obslog.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return &obslogAdapter{sink: sink}, sink.Close, nil
}

func toObslogFields(fields []Field) []obslog.Field {
	out := make([]obslog.Field, len(fields))
	for i, f := range fields {
		out[i] = obslog.Field{Key: f.Key, Value: f.Value}
	}
	return out
}

func (a *obslogAdapter) Info(msg string, fields ...Field) {
	a.sink.Info(msg, toObslogFields(fields)...)
}

func (a *obslogAdapter) Warn(msg string, fields ...Field) {
	a.sink.Warn(msg, toObslogFields(fields)...)
}

func (a *obslogAdapter) Error(msg string, err error, fields ...Field) {
	a.sink.Error(msg, err, toObslogFields(fields)...)
}

var _ LogSink = (*obslogAdapter)(nil)
