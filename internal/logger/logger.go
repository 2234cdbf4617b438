// Package logger provides the process-wide structured logger for docchat.
// Warnings and errors are always written; debug and info messages only in
// verbose mode (the --verbose flag) so the retrieval pipeline can be traced.
package logger

import (
	"io"
	"os"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Fields is a set of structured log fields.
type Fields = logrus.Fields

var (
	std     = newLogger()
	verbose atomic.Bool
)

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		DisableColors:    true,
	})
	return l
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	verbose.Store(v)
	if v {
		std.SetLevel(logrus.DebugLevel)
		return
	}
	std.SetLevel(logrus.WarnLevel)
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	return verbose.Load()
}

// SetOutput sets the output writer. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// SetFormat selects "json" or "text" (default) output.
func SetFormat(format string) {
	if format == "json" {
		std.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	std.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		DisableColors:    true,
	})
}

// WithFields returns an entry carrying structured fields.
func WithFields(fields Fields) *logrus.Entry {
	return std.WithFields(fields)
}

// Debug logs a message in verbose mode.
func Debug(format string, args ...any) {
	std.Debugf(format, args...)
}

// Section logs a pipeline stage header in verbose mode.
func Section(name string) {
	std.WithField("section", name).Debug("=== " + name + " ===")
}

// Info logs an informational message in verbose mode.
func Info(format string, args ...any) {
	std.Infof(format, args...)
}

// Warn logs a warning.
func Warn(format string, args ...any) {
	std.Warnf(format, args...)
}

// Error logs an error.
func Error(format string, args ...any) {
	std.Errorf(format, args...)
}
