package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) (*RateLimiter, *Client, *time.Time) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiter(client)
	l.now = func() time.Time { return now }
	return l, client, &now
}

func TestAllowWithinWindow(t *testing.T) {
	l, _, _ := newTestLimiter(t)
	ctx := context.Background()
	key := BuildRateLimitKey("127.0.0.1", "/v1/generate")
	assert.Equal(t, "ratelimit:127.0.0.1:/v1/generate", key)

	for i := 0; i < 3; i++ {
		ok, remaining, err := l.Allow(ctx, key, 3, time.Second)
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
		assert.Equal(t, 2-i, remaining)
	}

	ok, remaining, err := l.Allow(ctx, key, 3, time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, remaining)
}

func TestAllowSlidesWindow(t *testing.T) {
	l, _, now := newTestLimiter(t)
	ctx := context.Background()

	ok, _, err := l.Allow(ctx, "k", 1, time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	ok, _, err = l.Allow(ctx, "k", 1, time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	*now = now.Add(1500 * time.Millisecond)
	ok, _, err = l.Allow(ctx, "k", 1, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReset(t *testing.T) {
	l, client, _ := newTestLimiter(t)
	ctx := context.Background()

	_, _, err := l.Allow(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	require.NoError(t, l.Reset(ctx, "k"))

	ok, _, err := l.Allow(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, client.HealthCheck(ctx))
}
