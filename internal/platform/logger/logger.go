// Package logger constructs the process-wide structured logger. Services
// receive it by injection; nothing logs through a package-level default.
package logger

import (
	"log/slog"
	"os"
)

// New returns a JSON slog logger writing to stdout at the given level.
func New(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewFromEnv picks the log level from LOG_LEVEL (debug, info, warn, error),
// defaulting to info.
func NewFromEnv() *slog.Logger {
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		return New(slog.LevelDebug)
	case "warn":
		return New(slog.LevelWarn)
	case "error":
		return New(slog.LevelError)
	default:
		return New(slog.LevelInfo)
	}
}
