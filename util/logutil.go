package util

import (
	"log/slog"
	"os"
	"strings"
)

// ParseLogLevel maps debug, info, warn and error to a slog level. Anything
// else is info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// InitSlog configures slog based on LOG_LEVEL environment variable.
// Logs go to stderr so that stdout only carries command output.
func InitSlog() {
	level := slog.LevelWarn
	if logLevel, ok := os.LookupEnv("LOG_LEVEL"); ok {
		level = ParseLogLevel(logLevel)
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}
	handler := slog.NewTextHandler(os.Stderr, opts)
	slog.SetDefault(slog.New(handler))
}
