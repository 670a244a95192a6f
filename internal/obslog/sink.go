// Package obslog is the default backgroundsvc.LogSink: structured,
// leveled output over zerolog with optional file rotation, adapted from
// the teacher program's logger package so that the engine's diagnostic
// contract (spec §6) survives a Windows service's stdout being
// unavailable and a Linux console's stdout being a pipe.
package obslog

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config configures a Sink.
type Config struct {
	Level      string
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	Console    bool

	// FixedWidth switches console output from zerolog's default
	// human-readable writer to fixedFormatWriter's column-aligned one,
	// for the CLI demo's terminal output.
	FixedWidth bool
}

// DefaultConfig returns sensible defaults: info level, console only.
func DefaultConfig() Config {
	return Config{
		Level:   "info",
		Console: true,
	}
}

// asyncWriter makes writes to a possibly-blocking underlying writer
// non-blocking, so a slow console never stalls the engine thread that
// produced the log line. Messages are dropped once the buffer is full
// rather than applying backpressure. Only the console writer is wrapped;
// writes to the rotation file are synchronous.
type asyncWriter struct {
	ch     chan []byte
	w      io.Writer
	done   chan struct{}
	once   sync.Once
	mu     sync.RWMutex
	closed bool
}

func newAsyncWriter(w io.Writer, bufSize int) *asyncWriter {
	aw := &asyncWriter{
		ch:   make(chan []byte, bufSize),
		w:    w,
		done: make(chan struct{}),
	}
	go aw.drain()
	return aw
}

func (aw *asyncWriter) Write(p []byte) (int, error) {
	aw.mu.RLock()
	if aw.closed {
		aw.mu.RUnlock()
		return len(p), nil
	}
	cp := make([]byte, len(p))
	copy(cp, p)
	select {
	case aw.ch <- cp:
	default:
	}
	aw.mu.RUnlock()
	return len(p), nil
}

func (aw *asyncWriter) drain() {
	defer close(aw.done)
	for p := range aw.ch {
		aw.w.Write(p)
	}
}

func (aw *asyncWriter) Close() {
	aw.once.Do(func() {
		aw.mu.Lock()
		aw.closed = true
		aw.mu.Unlock()
		close(aw.ch)
		<-aw.done
	})
}

// Sink is a backgroundsvc.LogSink backed by zerolog.
type Sink struct {
	logger zerolog.Logger

	fileWriter   io.Closer
	consoleAsync *asyncWriter
}

// New builds a Sink from cfg. Close releases the rotation file handle and
// drains the async console writer; callers should defer Close.
func New(cfg Config) (*Sink, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var writers []io.Writer
	s := &Sink{}

	if cfg.FilePath != "" {
		dir := filepath.Dir(cfg.FilePath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		fw := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		s.fileWriter = fw
		writers = append(writers, fw)
	}

	if cfg.Console {
		var cw io.Writer
		if cfg.FixedWidth {
			cw = newFixedFormatWriter(os.Stdout)
		} else {
			cw = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		}
		aw := newAsyncWriter(cw, 1000)
		s.consoleAsync = aw
		writers = append(writers, aw)
	}

	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	var out io.Writer
	if len(writers) == 1 {
		out = writers[0]
	} else {
		out = zerolog.MultiLevelWriter(writers...)
	}

	s.logger = zerolog.New(out).Level(level).With().Timestamp().Logger()
	return s, nil
}

// Close releases the sink's writers.
func (s *Sink) Close() error {
	if s.consoleAsync != nil {
		s.consoleAsync.Close()
	}
	if s.fileWriter != nil {
		return s.fileWriter.Close()
	}
	return nil
}

func apply(ev *zerolog.Event, fields []Field) *zerolog.Event {
	for _, f := range fields {
		ev = ev.Interface(f.Key, f.Value)
	}
	return ev
}

// Field mirrors backgroundsvc.Field without importing the root package,
// which would create an import cycle (the root package imports obslog
// for its default sink).
type Field struct {
	Key   string
	Value interface{}
}

func (s *Sink) Info(msg string, fields ...Field) {
	apply(s.logger.Info(), fields).Msg(msg)
}

func (s *Sink) Warn(msg string, fields ...Field) {
	apply(s.logger.Warn(), fields).Msg(msg)
}

func (s *Sink) Error(msg string, err error, fields ...Field) {
	apply(s.logger.Error().Err(err), fields).Msg(msg)
}
