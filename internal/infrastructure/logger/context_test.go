package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

func TestContextLoggerRoundTrip(t *testing.T) {
	log, err := NewForEnvironment("development")
	require.NoError(t, err)

	ctx := WithContext(context.Background(), log)
	assert.NotNil(t, FromContext(ctx))
}

func TestFromContextFallsBackToNop(t *testing.T) {
	log := FromContext(context.Background())
	require.NotNil(t, log)
	assert.NotPanics(t, func() {
		log.Info("noop")
		log.With(zap.String("key", "value")).Error("noop")
	})

	// A wrong-typed value falls back the same way.
	ctx := context.WithValue(context.Background(), LoggerKey, "not a logger")
	assert.NotNil(t, FromContext(ctx))
}

func TestWithRequestIDAndUserID(t *testing.T) {
	log, err := NewForEnvironment("development")
	require.NoError(t, err)

	ctx := context.Background()
	ctx, tagged := WithRequestID(ctx, log, "req-1")
	ctx, tagged = WithUserID(ctx, tagged, "tuf12345")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "tuf12345", GetUserID(ctx))
	assert.NotEqual(t, log, tagged)

	// The tagged logger is what later FromContext calls see.
	assert.NotNil(t, FromContext(ctx))
}

func TestWithRequestIDOverrides(t *testing.T) {
	log := zap.NewNop()

	ctx, _ := WithRequestID(context.Background(), log, "first")
	ctx, _ = WithRequestID(ctx, log, "second")
	assert.Equal(t, "second", GetRequestID(ctx))
}

func TestGetIDsOnBareContext(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))
	assert.Empty(t, GetUserID(context.Background()))
}

func TestWithTraceContext(t *testing.T) {
	t.Run("no span returns the logger unchanged", func(t *testing.T) {
		log := zap.NewNop()
		assert.Equal(t, log, WithTraceContext(context.Background(), log))
	})

	t.Run("invalid span context returns the logger unchanged", func(t *testing.T) {
		tracer := noop.NewTracerProvider().Tracer("test")
		ctx, span := tracer.Start(context.Background(), "noop-span")
		defer span.End()

		log := zap.NewNop()
		assert.Equal(t, log, WithTraceContext(ctx, log))
	})

	t.Run("valid span tags the logger", func(t *testing.T) {
		recorder := tracetest.NewSpanRecorder()
		tp := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))
		defer func() { _ = tp.Shutdown(context.Background()) }()

		ctx, span := tp.Tracer("test").Start(context.Background(), "real-span")
		defer span.End()

		log := zap.NewNop()
		assert.NotEqual(t, log, WithTraceContext(ctx, log))
	})
}
