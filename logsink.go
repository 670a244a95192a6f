package backgroundsvc

import "backgroundsvc/internal/engine"

// Field is a single structured key/value pair attached to a log line.
type Field = engine.Field

// F constructs a Field.
func F(key string, value interface{}) Field {
	return engine.F(key, value)
}

// LogSink is the pluggable destination for the engine's diagnostic
// messages (spec: "Log output... via a pluggable log sink"). These
// messages are part of the observable contract: the exact strings the
// engine passes to Info are relied on by tests, so a LogSink must not
// alter, truncate, or translate msg.
type LogSink = engine.LogSink
