// Package logging builds the shared logrus entry for one tarmor invocation.
package logging

import (
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// NewLogger returns the logger for one CLI invocation. Diagnostics go to
// stderr so archive listings on stdout stay machine-readable. Every record
// carries the operation id, which ties together the log lines of a single
// run.
func NewLogger(verbose bool) *logrus.Entry {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(getLogLevel(verbose))
	log.Formatter = &logrus.TextFormatter{DisableTimestamp: false}

	return log.WithField("op", uuid.NewString()[:8])
}

// NewNopLogger returns a logger that discards everything, for tests and
// library callers that bring their own.
func NewNopLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func getLogLevel(verbose bool) logrus.Level {
	if strLevel := os.Getenv("TARMOR_LOG_LEVEL"); strLevel != "" {
		if level, err := logrus.ParseLevel(strLevel); err == nil {
			return level
		}
	}
	if verbose {
		return logrus.DebugLevel
	}
	return logrus.WarnLevel
}
