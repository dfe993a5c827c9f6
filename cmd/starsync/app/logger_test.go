package app

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestDetermineLogLevel(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
		want   string
	}{
		{"explicit level wins", &Config{LogLevel: "error", Verbose: true}, "error"},
		{"invalid explicit level falls back", &Config{LogLevel: "loud"}, "info"},
		{"verbose means debug", &Config{Verbose: true}, "debug"},
		{"quiet means warn", &Config{Quiet: true}, "warn"},
		{"verbose and quiet resolves to quiet", &Config{Verbose: true, Quiet: true}, "warn"},
		{"default is info", &Config{}, "info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, determineLogLevel(tt.config))
		})
	}
}

func TestValidateLogLevel(t *testing.T) {
	for _, level := range []string{"trace", "debug", "info", "warn", "error"} {
		assert.Equal(t, level, validateLogLevel(level))
	}
	assert.Equal(t, "info", validateLogLevel("verbose"))
	assert.Equal(t, "info", validateLogLevel(""))
}

func TestNewLoggerHonorsLevel(t *testing.T) {
	logger := NewLogger(&Config{Verbose: true, LogFormat: "json", LogOutput: "stderr"})
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())

	logger = NewLogger(&Config{Quiet: true, LogFormat: "json", LogOutput: "stderr"})
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
}
