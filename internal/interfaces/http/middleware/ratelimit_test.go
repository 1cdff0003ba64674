package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLimiter struct {
	allowed   bool
	remaining int
	err       error
	key       string
	limit     int
	window    time.Duration
}

func (l *stubLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	l.key, l.limit, l.window = key, limit, window
	return l.allowed, l.remaining, l.err
}

func newLimitedEngine(cfg RateLimitConfig, limiter RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/v1/generate", RateLimit(cfg, limiter), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func serve(engine *gin.Engine) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/generate", nil)
	req.RemoteAddr = "10.0.0.7:52311"
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitAllows(t *testing.T) {
	limiter := &stubLimiter{allowed: true, remaining: 11}
	rec := serve(newLimitedEngine(RateLimitConfig{Enabled: true, RequestsPerSecond: 10, Burst: 2}, limiter))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "ratelimit:10.0.0.7:/v1/generate", limiter.key)
	assert.Equal(t, 12, limiter.limit)
	assert.Equal(t, time.Second, limiter.window)
	assert.Equal(t, "12", rec.Header().Get(RateLimitLimitHeader))
	assert.Equal(t, "11", rec.Header().Get(RateLimitRemainingHeader))
}

func TestRateLimitRejects(t *testing.T) {
	rec := serve(newLimitedEngine(RateLimitConfig{Enabled: true, RequestsPerSecond: 1}, &stubLimiter{}))

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")
	assert.Equal(t, "0", rec.Header().Get(RateLimitRemainingHeader))
}

func TestRateLimitFailsOpen(t *testing.T) {
	rec := serve(newLimitedEngine(RateLimitConfig{Enabled: true}, &stubLimiter{err: errors.New("redis down")}))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRateLimitDisabled(t *testing.T) {
	limiter := &stubLimiter{}
	rec := serve(newLimitedEngine(RateLimitConfig{Enabled: false}, limiter))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, limiter.key)
}
