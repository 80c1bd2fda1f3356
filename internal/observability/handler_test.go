package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/florianilch/claudine-bridge/internal/observability/middleware"
)

func TestCorrelationHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newCorrelationHandler(slog.NewJSONHandler(&buf, nil)))

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))
	ctx = context.WithValue(ctx, middleware.RequestIDContextKey{}, "req_1")

	logger.InfoContext(ctx, "with trace")
	logger.Info("without trace")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var withTrace, withoutTrace map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &withTrace))
	require.NoError(t, json.Unmarshal(lines[1], &withoutTrace))

	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", withTrace["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", withTrace["span_id"])
	assert.Equal(t, "req_1", withTrace["request_id"])
	assert.NotContains(t, withoutTrace, "trace_id")
	assert.NotContains(t, withoutTrace, "request_id")
}

func TestFanoutHandler(t *testing.T) {
	var debugBuf, warnBuf bytes.Buffer
	handler := newFanoutHandler(
		slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	logger := slog.New(handler).With("component", "test").WithGroup("g")

	assert.True(t, handler.Enabled(context.Background(), slog.LevelDebug))

	logger.Debug("quiet", "k", 1)
	logger.Warn("loud", "k", 2)

	assert.Contains(t, debugBuf.String(), "msg=quiet")
	assert.Contains(t, debugBuf.String(), "msg=loud")
	assert.Contains(t, debugBuf.String(), "component=test")
	assert.Contains(t, debugBuf.String(), "g.k=2")
	assert.NotContains(t, warnBuf.String(), "quiet")
	assert.Contains(t, warnBuf.String(), "msg=loud")
}

func TestNewStdoutHandlerRejectsUnknownFormat(t *testing.T) {
	_, err := newStdoutHandler(&bytes.Buffer{}, slog.LevelInfo, "xml")
	assert.Error(t, err)
}

func TestSeverity(t *testing.T) {
	assert.Less(t, severity(slog.LevelDebug), severity(slog.LevelInfo))
	assert.Less(t, severity(slog.LevelInfo), severity(slog.LevelWarn))
	assert.Less(t, severity(slog.LevelWarn), severity(slog.LevelError))
}
