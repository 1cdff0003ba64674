package tracer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewSampler(t *testing.T) {
	assert.Contains(t, newSampler(1).Description(), "ParentBased{root:AlwaysOnSampler")
	assert.Contains(t, newSampler(0).Description(), "ParentBased{root:AlwaysOffSampler")
	assert.Contains(t, newSampler(0.25).Description(), "ParentBased{root:TraceIDRatioBased{0.25}")
}

func TestFinish(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	tr := tp.Tracer("test")

	_, ok := tr.Start(context.Background(), "ok")
	Finish(ok, nil)
	_, cancelled := tr.Start(context.Background(), "cancelled")
	Finish(cancelled, context.Canceled)
	_, failed := tr.Start(context.Background(), "failed")
	Finish(failed, errors.New("vendor down"))

	spans := rec.Ended()
	require.Len(t, spans, 3)
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Unset, spans[1].Status().Code)
	require.Len(t, spans[1].Events(), 1)
	assert.Equal(t, "cancelled", spans[1].Events()[0].Name)
	assert.Equal(t, codes.Error, spans[2].Status().Code)
	assert.Equal(t, "vendor down", spans[2].Status().Description)
}

func TestTraceIDWithoutSpan(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
}
