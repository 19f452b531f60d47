package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter(t *testing.T) {
	tests := []struct {
		name      string
		config    *Config
		checkFunc func(t *testing.T, logger *slog.Logger, output *bytes.Buffer)
	}{
		{
			name:   "json format with debug level",
			config: &Config{Level: "debug", Format: "json"},
			checkFunc: func(t *testing.T, logger *slog.Logger, output *bytes.Buffer) {
				logger.Debug("test debug message", slog.String("key", "value"))

				var entry map[string]interface{}
				err := json.Unmarshal(output.Bytes(), &entry)
				require.NoError(t, err)

				assert.Equal(t, "DEBUG", entry["level"])
				assert.Equal(t, "test debug message", entry["msg"])
				assert.Equal(t, "value", entry["key"])
				assert.Contains(t, entry, "time")
			},
		},
		{
			name:   "info level drops debug records",
			config: &Config{Level: "info", Format: "json"},
			checkFunc: func(t *testing.T, logger *slog.Logger, output *bytes.Buffer) {
				logger.Debug("debug message")
				logger.Info("info message", slog.String("type", "test"))

				lines := strings.Split(strings.TrimSpace(output.String()), "\n")
				assert.Len(t, lines, 1)

				var entry map[string]interface{}
				err := json.Unmarshal([]byte(lines[0]), &entry)
				require.NoError(t, err)
				assert.Equal(t, "INFO", entry["level"])
				assert.Equal(t, "info message", entry["msg"])
			},
		},
		{
			name:   "console format emits text",
			config: &Config{Level: "info", Format: "console"},
			checkFunc: func(t *testing.T, logger *slog.Logger, output *bytes.Buffer) {
				logger.Info("hello console")
				assert.Contains(t, output.String(), "hello console")
			},
		},
		{
			name:   "unknown level defaults to info",
			config: &Config{Level: "chatty", Format: "json"},
			checkFunc: func(t *testing.T, logger *slog.Logger, output *bytes.Buffer) {
				logger.Debug("should be dropped")
				logger.Info("should be kept")

				lines := strings.Split(strings.TrimSpace(output.String()), "\n")
				assert.Len(t, lines, 1)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewWithWriter(tt.config, &buf)
			require.NotNil(t, logger)
			tt.checkFunc(t, logger, &buf)
		})
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&Config{Level: "info", Format: "json"}, &buf)

	Component(logger, "worker-loop").Info("claimed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "worker-loop", entry["component"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, parseLevel("info"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}
