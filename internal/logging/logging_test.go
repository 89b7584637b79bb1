// ABOUTME: Tests for root logger construction
// ABOUTME: Checks level parsing, filtering, attrs, groups, and the json format

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/vault-dashboard/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.name))
		})
	}
}

func TestTextHandler(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	logger := New(config.LoggingConfig{Level: "info", Format: "text"}, &buf)

	logger.Debug("hidden")
	logger.With("component", "panel").WithGroup("fetch").Info("fetch applied", "seq", 4)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "INF fetch applied")
	assert.Contains(t, out, "component=panel")
	assert.Contains(t, out, "fetch.seq=4")
}

func TestJSONHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("dropped")
	logger.Warn("auth_event", "event", "session_expired")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "auth_event", rec["msg"])
	assert.Equal(t, "session_expired", rec["event"])
}
