package pkg

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLogLevel(t *testing.T) {
	original := GetLogLevel()
	defer SetLogLevel(original)

	tests := []struct {
		name  string
		level slog.Level
	}{
		{"trace", LevelTrace},
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetLogLevel(tt.level)
			assert.Equal(t, tt.level, GetLogLevel())
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"trace", LevelTrace},
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, LogFormatJSON, ParseFormat("json"))
	assert.Equal(t, LogFormatJSON, ParseFormat("JSON"))
	assert.Equal(t, LogFormatText, ParseFormat("text"))
	assert.Equal(t, LogFormatText, ParseFormat(""))
}

func TestLogComponents(t *testing.T) {
	var buf bytes.Buffer
	original := DefaultLogger
	originalLevel := GetLogLevel()
	defer func() {
		SetLogger(original)
		SetLogLevel(originalLevel)
	}()

	SetLogLevel(LevelTrace)
	SetLogger(NewLogger(&buf, &slog.HandlerOptions{Level: LevelTrace}))

	LogTrace(ComponentDataPath, "trace message")
	LogDebug(ComponentLifecycle, "debug message", "key", "value")
	LogInfo(ComponentInit, "info message")
	LogWarn(ComponentHAL, "warn message")
	LogError(ComponentDescriptor, "error message")
	LogDebug(ComponentClass, "class message")

	out := buf.String()
	for _, want := range []string{
		"trace message", "component=datapath",
		"debug message", "component=lifecycle", "key=value",
		"info message", "component=init",
		"warn message", "component=hal",
		"error message", "component=descriptor",
		"class message", "component=class",
	} {
		assert.Contains(t, out, want)
	}
}

func TestSetLogOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	original := DefaultLogger
	originalLevel := GetLogLevel()
	defer func() {
		SetLogger(original)
		SetLogLevel(originalLevel)
	}()

	SetLogLevel(slog.LevelInfo)
	SetLogOutput(&buf, LogFormatJSON)
	LogInfo(ComponentCLI, "json message")

	require.NotEmpty(t, buf.String())
	assert.Contains(t, buf.String(), `"msg":"json message"`)
	assert.Contains(t, buf.String(), `"component":"cli"`)
}

func TestLogLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	original := DefaultLogger
	defer SetLogger(original)

	SetLogger(NewLogger(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	LogDebug(ComponentLifecycle, "hidden")
	LogInfo(ComponentLifecycle, "hidden too")
	assert.Empty(t, buf.String())

	LogWarn(ComponentLifecycle, "visible")
	assert.Contains(t, buf.String(), "visible")
}
