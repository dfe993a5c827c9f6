package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	logger := New(&buf)

	logger.Info().Str("service", "github").Msg("fetching stars")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log output, got %q: %v", buf.String(), err)
	}
	if entry["service"] != "github" {
		t.Errorf("expected service field, got %v", entry["service"])
	}
	if entry["message"] != "fetching stars" {
		t.Errorf("expected message field, got %v", entry["message"])
	}
}

func TestSetDefault(t *testing.T) {
	original := defaultLogger
	defer SetDefault(original)

	var buf bytes.Buffer
	SetDefault(New(&buf))

	Info().Msg("hello")
	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("expected default logger output to contain message, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewLoggerFromConfigNilUsesDefaults(t *testing.T) {
	logger := NewLoggerFromConfig(nil)
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Errorf("expected info level from defaults, got %v", logger.GetLevel())
	}
}
