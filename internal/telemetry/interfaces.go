package telemetry

import "log"

// Logger is the printf-style sink host components log through. Components
// hold a Logger, never a concrete logger type.
type Logger interface {
	Printf(format string, args ...any)
}

// LoggerFunc adapts a bare function into a Logger. The nil LoggerFunc is a
// valid discard sink, so callers never need a guard.
type LoggerFunc func(format string, args ...any)

// Printf implements Logger.
func (f LoggerFunc) Printf(format string, args ...any) {
	if f != nil {
		f(format, args...)
	}
}

// WrapLogger exposes a standard library logger through the Logger interface.
// Wrapping nil yields a discard sink.
func WrapLogger(logger *log.Logger) Logger {
	return stdLogger{inner: logger}
}

type stdLogger struct {
	inner *log.Logger
}

func (s stdLogger) Printf(format string, args ...any) {
	if s.inner != nil {
		s.inner.Printf(format, args...)
	}
}

// Metrics exposes the counters and gauges host components report into.
type Metrics interface {
	Add(key string, delta uint64)
	Store(key string, value uint64)
}

// NopMetrics discards every reported value.
type NopMetrics struct{}

// Add implements Metrics.
func (NopMetrics) Add(string, uint64) {}

// Store implements Metrics.
func (NopMetrics) Store(string, uint64) {}
