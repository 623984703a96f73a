package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_DefaultsToInfoLevel(t *testing.T) {
	log := New()

	if log == nil {
		t.Fatal("expected logger to be created")
	}
	if log.GetLevel() != slog.LevelInfo {
		t.Errorf("expected info level, got %v", log.GetLevel())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo}, // Default
		{"", slog.LevelInfo},        // Default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSlogLogger_ImplementsInterface(t *testing.T) {
	var _ Logger = (*SlogLogger)(nil)
}

func TestSlogLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOptions(Options{Level: slog.LevelWarn, Output: &buf})

	log.Info("score saved", "judge_id", 1)
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered at warn level, got %q", buf.String())
	}

	log.Warn("store slow", "ms", 900)
	if !strings.Contains(buf.String(), "store slow") {
		t.Errorf("expected warn output, got %q", buf.String())
	}

	buf.Reset()
	log.SetLevel(slog.LevelDebug)
	log.Debug("permission no-op", "criterion_id", 3)
	if !strings.Contains(buf.String(), "criterion_id=3") {
		t.Errorf("expected debug output after SetLevel, got %q", buf.String())
	}
}

func TestSlogLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOptions(Options{Level: slog.LevelInfo, Format: FormatJSON, Output: &buf})

	log.Info("submitted", "contest_id", 4)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "submitted" {
		t.Errorf("expected msg=submitted, got %v", record["msg"])
	}
	if record["contest_id"] != float64(4) {
		t.Errorf("expected contest_id=4, got %v", record["contest_id"])
	}
}

func TestSlogLogger_WithSharesLevelAndHTTPSwitch(t *testing.T) {
	var buf bytes.Buffer
	parent := NewWithOptions(Options{Level: slog.LevelInfo, Output: &buf})
	child := parent.With("component", "submission")

	child.Info("refreshed totals")
	if !strings.Contains(buf.String(), "component=submission") {
		t.Errorf("expected child attrs in output, got %q", buf.String())
	}

	parent.SetLevel(slog.LevelError)
	if child.GetLevel() != slog.LevelError {
		t.Errorf("expected child to share level, got %v", child.GetLevel())
	}

	parent.EnableHTTPLogging()
	if !child.IsHTTPLoggingEnabled() {
		t.Error("expected child to share HTTP logging switch")
	}
	child.DisableHTTPLogging()
	if parent.IsHTTPLoggingEnabled() {
		t.Error("expected parent to observe child disabling HTTP logging")
	}
}

func TestDiscard_WritesNothing(t *testing.T) {
	log := Discard()
	log.Error("ignored")
	if log.IsHTTPLoggingEnabled() {
		t.Error("expected HTTP logging disabled by default")
	}
}
