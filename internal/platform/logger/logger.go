package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New returns a structured JSON logger on stdout at the level named by
// CONTACTSYNC_LOG_LEVEL (debug, info, warn, error; default info).
func New() *slog.Logger {
	return NewWriter(os.Stdout, os.Getenv("CONTACTSYNC_LOG_LEVEL"))
}

// NewWriter returns a JSON logger writing to w at the named level.
func NewWriter(w io.Writer, level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
