// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"strings"

	"z-novel-context-api/internal/application/generation"
	"z-novel-context-api/internal/infrastructure/llm"
	"z-novel-context-api/internal/interfaces/http/dto"

	"github.com/gin-gonic/gin"
)

// UserIDHeader 调用方用户 ID，用于用户级内容的占位符替换
const UserIDHeader = "X-User-ID"

// Generator 生成服务
type Generator interface {
	Generate(ctx context.Context, in *generation.Input) (*generation.Output, error)
	Stream(ctx context.Context, in *generation.Input) (<-chan llm.StreamChunk, *generation.Prepared, error)
	EstimateCost(ctx context.Context, in *generation.Input) (llm.CostEstimate, *generation.Prepared, error)
}

// GenerationHandler 生成处理器
type GenerationHandler struct {
	svc Generator
}

// NewGenerationHandler 创建生成处理器
func NewGenerationHandler(svc Generator) *GenerationHandler {
	return &GenerationHandler{svc: svc}
}

// Generate 单次生成
// @Summary 单次生成
// @Description 组装上下文、渲染提示词并调用模型，返回完整结果
// @Tags Generation
// @Accept json
// @Produce json
// @Param body body dto.GenerateRequest true "生成请求"
// @Success 200 {object} dto.Response[dto.GenerateResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /v1/generate [post]
func (h *GenerationHandler) Generate(c *gin.Context) {
	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	out, err := h.svc.Generate(c.Request.Context(), req.ToInput(userID(c)))
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, dto.ToGenerateResponse(out))
}

// Preview 预览提示词与费用
// @Summary 预览提示词与费用
// @Description 渲染最终发送给模型的消息并预估费用，不发起调用
// @Tags Generation
// @Accept json
// @Produce json
// @Param body body dto.GenerateRequest true "生成请求"
// @Success 200 {object} dto.Response[dto.PreviewResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/generate/preview [post]
func (h *GenerationHandler) Preview(c *gin.Context) {
	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	est, prepared, err := h.svc.EstimateCost(c.Request.Context(), req.ToInput(userID(c)))
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, dto.ToPreviewResponse(est, prepared))
}

// Stream 流式生成
// @Summary 流式生成
// @Description 通过 SSE 推送生成内容；事件包括 content、done、error，空闲时发送注释心跳
// @Tags Generation
// @Accept json
// @Produce text/event-stream
// @Param body body dto.GenerateRequest true "生成请求"
// @Success 200 "SSE stream"
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /v1/generate/stream [post]
func (h *GenerationHandler) Stream(c *gin.Context) {
	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	ch, _, err := h.svc.Stream(c.Request.Context(), req.ToInput(userID(c)))
	if err != nil {
		dto.FromError(c, err)
		return
	}
	streamChunks(c, ch)
}

func userID(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(UserIDHeader))
}
