// Package middleware 提供 HTTP 中间件
package middleware

import (
	"strings"

	"z-novel-context-api/internal/domain/service"
	"z-novel-context-api/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader 请求 ID 头
	RequestIDHeader = "X-Request-ID"
	// CorrelationIDHeader 调用方指定的追踪关联 ID
	CorrelationIDHeader = "X-Correlation-ID"
	// UserIDHeader 调用方用户 ID
	UserIDHeader = "X-User-ID"
)

// RequestID 注入请求 ID，并把关联 ID 与用户 ID 写入请求上下文
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		ctx := logger.WithContext(c.Request.Context(), logger.RequestIDKey, requestID)
		if id := strings.TrimSpace(c.GetHeader(CorrelationIDHeader)); id != "" {
			// 请求体里的 correlation_id 仍会覆盖它
			ctx = service.WithCorrelation(ctx, id)
			ctx = logger.WithContext(ctx, logger.CorrelationIDKey, id)
		}
		if uid := strings.TrimSpace(c.GetHeader(UserIDHeader)); uid != "" {
			ctx = logger.WithContext(ctx, logger.UserIDKey, uid)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
