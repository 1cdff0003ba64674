// Package middleware 提供 HTTP 中间件
package middleware

import (
	"z-novel-context-api/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TraceIDHeader 响应中回写的 trace ID
const TraceIDHeader = "X-Trace-ID"

// Trace OpenTelemetry 追踪中间件
func Trace(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// TraceContext 把 trace/span ID 写入日志上下文，路由带 :nid 时给 span 标注小说 ID
func TraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		span := trace.SpanFromContext(ctx)
		if sc := span.SpanContext(); sc.IsValid() {
			traceID := sc.TraceID().String()
			c.Set("trace_id", traceID)
			c.Set("span_id", sc.SpanID().String())
			c.Header(TraceIDHeader, traceID)

			ctx = logger.WithContext(ctx, logger.TraceIDKey, traceID)
			ctx = logger.WithContext(ctx, logger.SpanIDKey, sc.SpanID().String())
		}
		if nid := c.Param("nid"); nid != "" {
			span.SetAttributes(attribute.String("novel.id", nid))
			ctx = logger.WithContext(ctx, logger.NovelIDKey, nid)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
