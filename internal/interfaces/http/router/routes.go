// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由；rateLimit 只作用于会调用模型的路由
func RegisterV1Routes(v1 *gin.RouterGroup, h Handlers, rateLimit gin.HandlerFunc) {
	// 上下文预览
	if h.Context != nil {
		novels := v1.Group("/novels")
		{
			novels.POST("/:nid/context", h.Context.Preview)
		}
	}

	// 生成
	if h.Generation != nil {
		generate := v1.Group("/generate")
		{
			generate.POST("", rateLimit, h.Generation.Generate)
			generate.POST("/stream", rateLimit, h.Generation.Stream)
			generate.POST("/preview", h.Generation.Preview)
		}
	}

	// Provider 管理
	if h.Provider != nil {
		providers := v1.Group("/providers")
		{
			providers.GET("", h.Provider.ListProviders)
			providers.GET("/:name/models", h.Provider.ListModels)
			providers.POST("/:name/validate", rateLimit, h.Provider.ValidateCredential)
		}
	}

	// 调用追踪
	if h.Trace != nil {
		v1.GET("/traces", h.Trace.ListTraces)
	}
}
