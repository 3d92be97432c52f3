// Package logger builds the service's structured loggers and records audit
// events for authentication, attachments and access control.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// New creates a JSON logger writing to stdout at level
func New(level slog.Level) *slog.Logger {
	return NewWithWriter(os.Stdout, level)
}

// NewWithWriter creates a JSON logger writing to w at level
func NewWithWriter(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
