package logger

import (
	"log/slog"
	"testing"
)

func TestInit(t *testing.T) {
	logger := Init("tradecore-test", "info")
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	if slog.Default() == nil {
		t.Fatal("expected default logger to be installed")
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{" Error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, c := range cases {
		if got := ParseLevel(c.in); got != c.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestComponent(t *testing.T) {
	Init("tradecore-test", "debug")
	if Component("scheduler") == nil {
		t.Fatal("expected non-nil component logger")
	}
}
