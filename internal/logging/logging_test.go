package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mendtool/mend/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewWritesToFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "mend.log")

	log := New(config.LogConfig{Level: "info", File: file}, false)
	log.Info("scan complete", "files", 3)

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "scan complete") {
		t.Errorf("log file missing message: %s", data)
	}
	if !strings.Contains(string(data), "files=3") {
		t.Errorf("log file missing attribute: %s", data)
	}
}

func TestNewVerboseForcesDebug(t *testing.T) {
	file := filepath.Join(t.TempDir(), "mend.log")

	log := New(config.LogConfig{Level: "error", File: file}, true)
	log.Debug("tracing")

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "tracing") {
		t.Error("verbose logger dropped a debug message")
	}
}
