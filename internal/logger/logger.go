// Package logger sets up structured logging on Go 1.21's log/slog. The
// engine logs JSON to stdout; because the slog handler is installed as
// the default, legacy log.Printf call sites flow through it too.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Init installs a JSON slog handler as the process default and returns
// a logger tagged with the service name. level is one of
// "debug", "info", "warn", "error"; anything else means info.
func Init(service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})

	logger := slog.New(handler).With(slog.String("service", service))
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// Component returns a child logger tagged with an engine component name,
// e.g. "scheduler" or "condorder".
func Component(name string) *slog.Logger {
	return slog.Default().With(slog.String("component", name))
}
