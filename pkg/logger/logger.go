// Package logger provides logging utilities for the git activity hook.
// It builds the structured JSON logger used by every other package.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps a textual level to a slog level, defaulting to info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a new structured logger writing JSON to stdout.
// An empty level falls back to the LOG_LEVEL environment variable.
func NewLogger(level string) *slog.Logger {
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	return newLogger(os.Stdout, ParseLevel(level))
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	}

	logger := slog.New(slog.NewJSONHandler(w, opts))

	// Set as default logger
	slog.SetDefault(logger)

	return logger
}
