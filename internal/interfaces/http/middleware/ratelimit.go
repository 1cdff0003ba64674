// Package middleware 提供 HTTP 中间件
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"z-novel-context-api/internal/infrastructure/persistence/redis"
	"z-novel-context-api/pkg/errors"
	"z-novel-context-api/pkg/logger"
	"z-novel-context-api/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// Enabled 是否启用限流
	Enabled bool
	// RequestsPerSecond 每秒请求数
	RequestsPerSecond int
	// Burst 突发容量，叠加在每秒请求数之上
	Burst int
}

// RateLimiter 限流器接口
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error)
}

const (
	// RateLimitRemainingHeader 当前窗口剩余请求数
	RateLimitRemainingHeader = "X-RateLimit-Remaining"
	// RateLimitLimitHeader 窗口请求上限
	RateLimitLimitHeader = "X-RateLimit-Limit"
)

// RateLimit 限流中间件，按客户端 IP 与路由模板计数
func RateLimit(cfg RateLimitConfig, limiter RateLimiter) gin.HandlerFunc {
	// 如果未启用限流，返回空中间件
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	// 设置默认值
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 100
	}
	if cfg.Burst < 0 {
		cfg.Burst = 0
	}
	limit := cfg.RequestsPerSecond + cfg.Burst

	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		key := redis.BuildRateLimitKey(c.ClientIP(), path)

		allowed, remaining, err := limiter.Allow(c.Request.Context(), key, limit, time.Second)
		if err != nil {
			// 限流器故障时放行，避免影响业务
			logger.Warn(c.Request.Context(), "rate limiter unavailable", "path", path, "error", err.Error())
			c.Next()
			return
		}

		c.Header(RateLimitLimitHeader, strconv.Itoa(limit))
		c.Header(RateLimitRemainingHeader, strconv.Itoa(remaining))

		if !allowed {
			metrics.RateLimitRejected.WithLabelValues(path).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":     errors.CodeTooManyRequests,
				"message":  "rate limit exceeded",
				"trace_id": c.GetString("trace_id"),
			})
			return
		}

		c.Next()
	}
}
