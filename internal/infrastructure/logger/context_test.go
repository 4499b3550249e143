package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func spanContext(t *testing.T) (context.Context, trace.TraceID, trace.SpanID) {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("0af7651916cd43dd8448eb211c80319c")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("b7ad6b7169203331")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))
	return ctx, traceID, spanID
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	logger := zap.NewExample()
	ctx := WithContext(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))
}

func TestWithActor(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)

	ctx := WithActor(context.Background(), zap.New(core), "clerk")
	assert.Equal(t, "clerk", GetActor(ctx))
	assert.Empty(t, GetActor(context.Background()))

	L(ctx).Info("posted")
	require.Len(t, recorded.All(), 1)
	assert.Equal(t, "clerk", recorded.All()[0].ContextMap()["actor"])
	assert.Len(t, recorded.All()[0].Context, 1)
}

func TestWithTraceContext(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	assert.Same(t, base, WithTraceContext(context.Background(), base))

	ctx, traceID, spanID := spanContext(t)
	WithTraceContext(ctx, base).Info("with trace")

	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, traceID.String(), fields["trace_id"])
	assert.Equal(t, spanID.String(), fields["span_id"])
}

func TestContextLogger(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)

	ctx, _, _ := spanContext(t)
	ctx = WithActor(ctx, zap.New(core), "auditor")

	L(ctx).With(zap.String("journal_number", "JV-1")).Warn("reversal skipped")
	L(ctx).Debug("debug entry")

	logs := recorded.All()
	require.Len(t, logs, 2)
	fields := logs[0].ContextMap()
	assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
	assert.Equal(t, "JV-1", fields["journal_number"])
	assert.Equal(t, "auditor", fields["actor"])
	assert.NotEmpty(t, fields["trace_id"])
}

func TestContextLogger_NilLogger(t *testing.T) {
	cl := WithLogger(context.Background(), nil)
	assert.NotPanics(t, func() {
		cl.Info("nothing")
		cl.Error("nothing")
	})
	assert.NotNil(t, cl.Zap())
}
