package dispatch

import "log"

// Logger is the diagnostic sink used for queue-overflow drops, recovered
// guard/behavior panics, and unresolved-choice warnings — the handful of
// conditions §7 treats as "log and continue" rather than as errors. Callers
// that want structured logging implement this against their own logger;
// StdLogger wraps the standard library's log package, mirroring the
// teacher's LoggingActionRunner (which logs through log.Printf rather than a
// third-party logging library).
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

// StdLogger adapts *log.Logger to the Logger interface.
type StdLogger struct {
	l *log.Logger
}

// NewStdLogger returns a Logger backed by log.Default().
func NewStdLogger() *StdLogger {
	return &StdLogger{l: log.Default()}
}

func (s *StdLogger) Debugf(format string, args ...any) { s.l.Printf("DEBUG "+format, args...) }
func (s *StdLogger) Infof(format string, args ...any)  { s.l.Printf("INFO "+format, args...) }
func (s *StdLogger) Errorf(format string, args ...any) { s.l.Printf("ERROR "+format, args...) }

// NopLogger discards everything; useful in tests that assert on behavior
// rather than log output.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}
