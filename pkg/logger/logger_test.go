package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/phasescan/pkg/config"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		wantLevel zerolog.Level
	}{
		{"debug level", "debug", zerolog.DebugLevel},
		{"info level", "info", zerolog.InfoLevel},
		{"warn level", "warn", zerolog.WarnLevel},
		{"error level", "error", zerolog.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := New(&config.Config{Env: "development", LogLevel: tt.level, LogFormat: "json"})
			require.NotNil(t, log)
			assert.Equal(t, tt.wantLevel, zerolog.GlobalLevel())
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"invalid", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.input))
		})
	}
}

func TestLoggerMethods(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	var buf bytes.Buffer
	log := NewWithWriter(&buf)

	tests := []struct {
		name      string
		logFunc   func()
		wantMsg   string
		wantLevel string
	}{
		{"debug", func() { log.Debug("debug message") }, "debug message", "debug"},
		{"info", func() { log.Info("info message") }, "info message", "info"},
		{"warn", func() { log.Warn("retrying") }, "retrying", "warn"},
		{"error", func() { log.Error("failed to fetch") }, "failed to fetch", "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.logFunc()

			entry := decode(t, &buf)
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, tt.wantMsg, entry["message"])
		})
	}
}

func TestWithFields(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	var buf bytes.Buffer
	log := NewWithWriter(&buf)

	log.WithFields(map[string]interface{}{
		"ticker": "NVDA",
		"phase":  2,
	}).WithField("score", 71.5).Info("evaluated")

	entry := decode(t, &buf)
	assert.Equal(t, "NVDA", entry["ticker"])
	assert.Equal(t, float64(2), entry["phase"])
	assert.Equal(t, 71.5, entry["score"])
	assert.Equal(t, "evaluated", entry["message"])
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf)

	log.WithError(errors.New("connection refused")).Error("operation failed")

	entry := decode(t, &buf)
	assert.Equal(t, "connection refused", entry["error"])
	assert.Equal(t, "operation failed", entry["message"])
}

func TestNew_Writer(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&config.Config{Env: "test", LogLevel: "info", LogFormat: "json"}, &buf)
	log.Info("started")

	entry := decode(t, &buf)
	assert.Equal(t, "phasescan", entry["app"])
	assert.Equal(t, "test", entry["env"])
}

func TestWithContext(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	var buf bytes.Buffer
	log := NewWithWriter(&buf)

	ctx := ContextWithFields(context.Background(), map[string]interface{}{"run_id": "r1"})
	ctx = ContextWithFields(ctx, map[string]interface{}{"ticker": "AMD"})
	log.WithContext(ctx).Info("scored")

	entry := decode(t, &buf)
	assert.Equal(t, "r1", entry["run_id"])
	assert.Equal(t, "AMD", entry["ticker"])

	buf.Reset()
	log.WithContext(context.Background()).Info("plain")
	entry = decode(t, &buf)
	assert.NotContains(t, entry, "run_id")
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	assert.NotPanics(t, func() {
		log.WithField("k", "v").Info("discarded")
	})
}
