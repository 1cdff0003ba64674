// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"strings"

	"z-novel-context-api/internal/application/contextprovider"
	"z-novel-context-api/internal/interfaces/http/dto"

	"github.com/gin-gonic/gin"
)

// ContextAssembler 上下文组装
type ContextAssembler interface {
	Assemble(ctx context.Context, req *contextprovider.AssemblyRequest) *contextprovider.AssemblyResult
}

// ContextHandler 上下文预览处理器
type ContextHandler struct {
	assembler ContextAssembler
}

// NewContextHandler 创建上下文预览处理器
func NewContextHandler(assembler ContextAssembler) *ContextHandler {
	return &ContextHandler{assembler: assembler}
}

// Preview 预览组装后的上下文
// @Summary 预览组装后的上下文
// @Description 按选择组装 selected_context，返回标记文本、各片段与预算裁剪情况
// @Tags Context
// @Accept json
// @Produce json
// @Param nid path string true "小说 ID"
// @Param body body dto.ContextPreviewRequest true "上下文选择"
// @Success 200 {object} dto.Response[dto.ContextPreviewResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/novels/{nid}/context [post]
func (h *ContextHandler) Preview(c *gin.Context) {
	novelID := strings.TrimSpace(dto.BindNovelID(c))
	if novelID == "" {
		dto.BadRequest(c, "novel id is required")
		return
	}

	var req dto.ContextPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if len(req.Refs) == 0 {
		dto.BadRequest(c, "refs is required")
		return
	}
	if req.UserID == "" {
		req.UserID = userID(c)
	}

	result := h.assembler.Assemble(c.Request.Context(), req.ToAssemblyRequest(novelID))
	dto.Success(c, dto.ToContextPreviewResponse(result))
}
