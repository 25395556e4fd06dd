package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseLevel("loud")
	require.Error(t, err)
}

func TestNewHandler_JSONAndLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := New(Options{Level: slog.LevelInfo, Output: &buf})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("Snapshot loaded", "sources", 3)
	logger.Warn("Source degraded", "source", "sensors")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "Snapshot loaded", lines[0]["msg"])
	assert.Equal(t, "info", lines[0]["level"])
	assert.InDelta(t, 3, lines[0]["sources"], 0)
	assert.Equal(t, "warn", lines[1]["level"])
	assert.Equal(t, "sensors", lines[1]["source"])
}

func TestNewHandler_Debug(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := New(Options{Level: slog.LevelDebug, Output: &buf})
	require.NoError(t, err)

	logger.Debug("Loading snapshot")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "debug", lines[0]["level"])
}

func TestNewHandler_InjectsTraceIDs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := New(Options{Output: &buf})
	require.NoError(t, err)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01, 0x02},
		SpanID:     trace.SpanID{0x03},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	logger.With("component", "registry").InfoContext(ctx, "traced")
	logger.InfoContext(context.Background(), "untraced")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, sc.TraceID().String(), lines[0]["trace_id"])
	assert.Equal(t, sc.SpanID().String(), lines[0]["span_id"])
	assert.Equal(t, "registry", lines[0]["component"])
	assert.NotContains(t, lines[1], "trace_id")
}

func TestNewHandler_TextAndInvalidFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := New(Options{Format: FormatText, Output: &buf})
	require.NoError(t, err)
	logger.Info("plain line")
	assert.Contains(t, buf.String(), "plain line")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))

	_, err = NewHandler(Options{Format: "xml"})
	require.Error(t, err)
}

func TestLogr(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h, err := NewHandler(Options{Output: &buf})
	require.NoError(t, err)

	Logr(h).Info("from logr", "rows", 2)
	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "from logr", lines[0]["msg"])
}

func TestNewHandler_WarnLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := New(Options{Level: slog.LevelWarn, Output: &buf})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("Source degraded")
	logger.Error("Refresh failed")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "warn", lines[0]["level"])
	assert.Equal(t, "error", lines[1]["level"])
}
