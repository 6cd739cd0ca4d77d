package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), &Config{ServiceName: "movie-svc"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSampleRatio(t *testing.T) {
	assert.Equal(t, 1.0, sampleRatio(&Config{Environment: "development"}))
	assert.Equal(t, 0.1, sampleRatio(&Config{Environment: "production"}))
	assert.Equal(t, 0.5, sampleRatio(&Config{Environment: "production", SampleRatio: 0.5}))
}

func TestStartEndSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	ctx, span := StartSpan(context.Background(), "work", attribute.Int64("movie.id", 7))
	assert.NotEmpty(t, TraceIDFromContext(ctx))
	EndSpan(span, errors.New("boom"))

	_, ok := StartSpan(context.Background(), "ok")
	EndSpan(ok, nil)

	ended := recorder.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "work", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Contains(t, ended[0].Attributes(), attribute.Int64("movie.id", 7))
	assert.Equal(t, codes.Unset, ended[1].Status().Code)
	assert.Empty(t, TraceIDFromContext(context.Background()))
}
