// Package log provides this library's logging interface plus a
// logrus-backed implementation, bridged to go-logr/logr via logrusr so that
// other logr-based tooling in an embedding application can share the same
// sink.
package log

import (
	"github.com/bombsimon/logrusr/v4"
	"github.com/go-logr/logr"
	"github.com/sirupsen/logrus"
)

// Logger represents the ability to log informational and error messages,
// optionally tagged with a prefix (e.g. the owning Node or Client name).
type Logger interface {
	InfoLogger

	// Error logs an error message.
	Error(args ...interface{})
	// Errorf logs a formatted error message.
	Errorf(format string, args ...interface{})
	// WithPrefix returns a Logger that prefixes every message with prefix.
	WithPrefix(prefix string) Logger
}

// InfoLogger represents the ability to log informational messages.
type InfoLogger interface {
	// Infof logs a formatted non-error message.
	Infof(format string, args ...interface{})
}

// New returns a Logger backed by the given logrus.Logger.
func New(l *logrus.Logger) Logger {
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

// Discard returns a Logger that drops every message, useful as a default
// when the embedding application does not configure one.
func Discard() Logger {
	l := logrus.New()
	l.SetOutput(discardWriter{})
	return New(l)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

type logrusLogger struct {
	entry *logrus.Entry
}

func (l *logrusLogger) Infof(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func (l *logrusLogger) Error(args ...interface{}) {
	l.entry.Error(args...)
}

func (l *logrusLogger) Errorf(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

func (l *logrusLogger) WithPrefix(prefix string) Logger {
	return &logrusLogger{entry: l.entry.WithField("component", prefix)}
}

// Logr adapts a *logrus.Logger into a logr.Logger, for handing to
// logr-consuming code an embedding application already uses elsewhere.
func Logr(l *logrus.Logger) logr.Logger {
	return logrusr.New(l)
}
