// Package logging builds the charmbracelet loggers used across soundshow.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// New creates a [log.Logger] writing to w with timestamps and caller reporting.
//
// The writer defaults to [os.Stderr].
func New(w io.Writer, level log.Level) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true, Level: level}
	return log.NewWithOptions(w, opts)
}

// Component returns a child logger tagged with the component name.
// A nil parent uses the package default logger.
func Component(l *log.Logger, name string) *log.Logger {
	if l == nil {
		l = log.Default()
	}
	return l.With("component", name)
}

// ParseLevel parses a level name, falling back to info for unknown values.
func ParseLevel(s string) log.Level {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
