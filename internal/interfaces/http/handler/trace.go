// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"strings"

	"z-novel-context-api/internal/domain/entity"
	"z-novel-context-api/internal/interfaces/http/dto"
	"z-novel-context-api/pkg/errors"

	"github.com/gin-gonic/gin"
)

// TraceLister 读取最近的调用追踪记录
type TraceLister interface {
	Recent(ctx context.Context, limit int, correlationID string) ([]*entity.LLMTrace, error)
}

// TraceHandler 调用追踪查询处理器
type TraceHandler struct {
	reader TraceLister
}

// NewTraceHandler 创建调用追踪查询处理器；reader 为 nil 表示事件流未启用
func NewTraceHandler(reader TraceLister) *TraceHandler {
	return &TraceHandler{reader: reader}
}

// ListTraces 查询最近的调用追踪
// @Summary 查询最近的调用追踪
// @Tags Traces
// @Produce json
// @Param limit query int false "条数上限" default(20)
// @Param correlation_id query string false "关联 ID"
// @Success 200 {object} dto.Response[dto.TraceListResponse]
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/traces [get]
func (h *TraceHandler) ListTraces(c *gin.Context) {
	if h.reader == nil {
		dto.ServiceUnavailable(c, "trace stream disabled")
		return
	}

	limit := dto.BindLimit(c, 20)
	correlationID := strings.TrimSpace(c.Query("correlation_id"))

	traces, err := h.reader.Recent(c.Request.Context(), limit, correlationID)
	if err != nil {
		dto.FromError(c, errors.Wrap(err, errors.CodeMessagingError, "read trace stream failed"))
		return
	}
	dto.Success(c, dto.ToTraceListResponse(traces))
}
