package logger_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dsablic/licensematch/internal/logger"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Writer: &buf, Format: "json", Level: slog.LevelInfo})
	log.Info("cache loaded", "licenses", 7)

	assert.Contains(t, buf.String(), `"msg":"cache loaded"`)
	assert.Contains(t, buf.String(), `"licenses":7`)
	assert.Contains(t, buf.String(), `"level":"INFO"`)
}

func TestNewTextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Writer: &buf, Format: "text", Level: slog.LevelWarn})
	log.Info("hidden")
	log.Warn("shown", "path", "LICENSE")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
	assert.Contains(t, buf.String(), "path=LICENSE")
}

func TestNewUnknownFormatFallsBackToText(t *testing.T) {
	var buf bytes.Buffer
	logger.New(logger.Config{Writer: &buf, Format: "xml"}).Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, logger.ParseLevel(tt.input))
		})
	}
}

func TestDiscard(t *testing.T) {
	log := logger.Discard()
	assert.False(t, log.Enabled(t.Context(), slog.LevelError))
}
