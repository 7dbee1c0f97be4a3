package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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
		{"", slog.LevelInfo},
		{"invalid", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestNewLogger_SetsDefault(t *testing.T) {
	logger := NewLogger("warn")
	require.NotNil(t, logger)
	assert.Equal(t, logger, slog.Default())
}

func TestNewLogger_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("Created git history for push", "branch", "main", "issueID", 42)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Created git history for push", entry["msg"])
	assert.Equal(t, "main", entry["branch"])
	assert.Equal(t, float64(42), entry["issueID"])
	assert.Contains(t, entry, "source")
}
