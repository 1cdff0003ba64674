// Package handler 提供 HTTP 请求处理器
package handler

import (
	"net/http"

	"z-novel-context-api/internal/application/generation"
	"z-novel-context-api/internal/infrastructure/llm"
	"z-novel-context-api/internal/interfaces/http/dto"
	"z-novel-context-api/pkg/errors"
	"z-novel-context-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// SSE 事件名
const (
	EventContent = "content"
	EventDone    = "done"
	EventError   = "error"
)

// heartbeatComment SSE 注释行，客户端会忽略
const heartbeatComment = ": heartbeat\n\n"

// streamChunks 把模型输出写成 SSE 事件，直到结束、出错或客户端断开
func streamChunks(c *gin.Context, ch <-chan llm.StreamChunk) {
	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	// 提前返回时继续消费，上游随请求 ctx 取消后关闭通道
	defer func() {
		go func() {
			for range ch {
			}
		}()
	}()

	ctx := c.Request.Context()
	index := 0
	for {
		select {
		case <-ctx.Done():
			logger.Debug(ctx, "stream client gone", "chunks", index)
			return

		case chunk, ok := <-ch:
			if !ok {
				c.SSEvent(EventDone, dto.StreamDoneEvent{})
				c.Writer.Flush()
				return
			}

			switch {
			case chunk.Err != nil:
				appErr := errors.AsAppError(generation.ToAppError(chunk.Err))
				c.SSEvent(EventError, dto.StreamErrorEvent{
					Code:    string(appErr.Code),
					Message: appErr.Message,
				})
				c.Writer.Flush()
				return

			case llm.IsHeartbeat(chunk):
				_, _ = c.Writer.WriteString(heartbeatComment)

			default:
				if chunk.Delta != "" {
					c.SSEvent(EventContent, dto.StreamContentEvent{Delta: chunk.Delta, Index: index})
					index++
				}
				if chunk.Done {
					c.SSEvent(EventDone, dto.StreamDoneEvent{
						FinishReason: chunk.FinishReason,
						Usage:        dto.ToUsageResponse(chunk.Usage),
					})
					c.Writer.Flush()
					return
				}
			}
			c.Writer.Flush()
		}
	}
}
