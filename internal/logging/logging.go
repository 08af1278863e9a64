// Package logging provides the zerolog logger factory for the server.
// Production environments get JSON on stderr; dev gets the console writer.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New creates the process logger for the given level and app environment.
// Accepted level strings (case-insensitive): "debug", "info", "warn",
// "error"; anything else defaults to "info".
func New(level, appEnv string) zerolog.Logger {
	return NewWithWriter(level, appEnv, os.Stderr)
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(level, appEnv string, w io.Writer) zerolog.Logger {
	if appEnv == "dev" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// ParseLevel converts a level string to a zerolog.Level.
// Returns zerolog.InfoLevel for unrecognised values.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
