// Package middleware 提供 HTTP 中间件
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"z-novel-context-api/pkg/errors"
	"z-novel-context-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Recovery Panic 恢复中间件。
// SSE 已经开始输出时只中断连接，不再写 JSON。
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			logger.Error(c.Request.Context(), "panic recovered",
				fmt.Errorf("%v", rec),
				"stack", string(debug.Stack()),
				"path", c.FullPath(),
				"method", c.Request.Method,
				"streaming", c.Writer.Written(),
			)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":     errors.CodeInternalError,
				"message":  "internal server error",
				"trace_id": c.GetString("trace_id"),
			})
		}()

		c.Next()
	}
}
