package cthsm

import "log"

// Logger is the diagnostic sink used for queue-overflow drops, recovered
// guard/behavior panics, and unresolved-choice warnings. Identical contract
// to internal/dispatch.Logger — kept as a separate type here only because
// internal/dispatch is not imported by this package.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

type dispatchLogger = Logger

// StdLogger adapts *log.Logger to the Logger interface.
type StdLogger struct {
	l *log.Logger
}

func newStdLogger() *StdLogger { return &StdLogger{l: log.Default()} }

// NewStdLogger returns a Logger backed by log.Default(), the same style the
// teacher uses throughout (log.Printf rather than a third-party logging
// dependency).
func NewStdLogger() *StdLogger { return newStdLogger() }

func (s *StdLogger) Debugf(format string, args ...any) { s.l.Printf("DEBUG "+format, args...) }
func (s *StdLogger) Infof(format string, args ...any)  { s.l.Printf("INFO "+format, args...) }
func (s *StdLogger) Errorf(format string, args ...any) { s.l.Printf("ERROR "+format, args...) }

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}
