package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(maxRetries int) RetryConfig {
	return RetryConfig{
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Multiplier:      2,
		MaxRetries:      maxRetries,
	}
}

func TestRetryingProviderRetriesTransient(t *testing.T) {
	inner := &scriptedProvider{errs: []error{
		Transient("scripted", 503, errors.New("unavailable")),
		Transient("scripted", 0, errors.New("reset")),
	}}
	p := NewRetryingProvider(inner, fastRetry(3))

	resp, err := p.Generate(context.Background(), userRequest("hi"))
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, int32(3), inner.calls.Load())
}

func TestRetryingProviderPermanentFailsImmediately(t *testing.T) {
	inner := &scriptedProvider{errs: []error{Permanent("scripted", 0, ErrEmptyCredential)}}
	p := NewRetryingProvider(inner, fastRetry(3))

	_, err := p.Generate(context.Background(), userRequest("hi"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyCredential)
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestRetryingProviderExhausts(t *testing.T) {
	transient := Transient("scripted", 429, errors.New("slow down"))
	inner := &scriptedProvider{errs: []error{transient, transient, transient, transient}}
	p := NewRetryingProvider(inner, fastRetry(2))

	_, err := p.Generate(context.Background(), userRequest("hi"))
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Equal(t, int32(3), inner.calls.Load())
}

func TestRetryingProviderStreamOpen(t *testing.T) {
	inner := &scriptedProvider{errs: []error{Transient("scripted", 502, errors.New("bad gateway"))}}
	p := NewRetryingProvider(inner, fastRetry(3))

	ch, err := p.Stream(context.Background(), userRequest("hi"))
	require.NoError(t, err)
	chunks := collect(ch)
	require.Len(t, chunks, 2)
	assert.Equal(t, "ok", chunks[0].Delta)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestRetryingProviderHonoursCancel(t *testing.T) {
	transient := Transient("scripted", 503, errors.New("unavailable"))
	inner := &scriptedProvider{errs: []error{transient, transient, transient}}
	p := NewRetryingProvider(inner, RetryConfig{InitialInterval: time.Hour, MaxInterval: time.Hour, MaxRetries: 3})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Generate(ctx, userRequest("hi"))
	require.Error(t, err)
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestRetryingProviderForwards(t *testing.T) {
	inner := &scriptedProvider{}
	p := NewRetryingProvider(inner, fastRetry(1))
	assert.Equal(t, "scripted", p.Name())
	assert.Equal(t, "scripted-1", p.Model())
	assert.False(t, p.SupportsToolCalling())
	assert.Same(t, inner, p.Unwrap())
}
