// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"strings"

	"z-novel-context-api/internal/application/generation"
	"z-novel-context-api/internal/infrastructure/llm"
	"z-novel-context-api/internal/interfaces/http/dto"
	"z-novel-context-api/pkg/errors"
	"z-novel-context-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ProviderCatalog 已配置的 Provider 目录
type ProviderCatalog interface {
	Names() []string
	DefaultName() string
	Get(ctx context.Context, name string) (llm.Provider, error)
	Build(ctx context.Context, name string, id llm.Identity) (llm.Provider, error)
}

// ProviderHandler Provider 管理处理器
type ProviderHandler struct {
	catalog ProviderCatalog
}

// NewProviderHandler 创建 Provider 管理处理器
func NewProviderHandler(catalog ProviderCatalog) *ProviderHandler {
	return &ProviderHandler{catalog: catalog}
}

// ListProviders 列出已配置的 Provider
// @Summary 列出 Provider
// @Tags Providers
// @Produce json
// @Success 200 {object} dto.Response[dto.ProviderListResponse]
// @Router /v1/providers [get]
func (h *ProviderHandler) ListProviders(c *gin.Context) {
	ctx := c.Request.Context()
	defaultName := h.catalog.DefaultName()

	resp := &dto.ProviderListResponse{Providers: []*dto.ProviderResponse{}}
	for _, name := range h.catalog.Names() {
		p, err := h.catalog.Get(ctx, name)
		if err != nil {
			if resp.Unavailable == nil {
				resp.Unavailable = make(map[string]string)
			}
			resp.Unavailable[name] = err.Error()
			continue
		}
		resp.Providers = append(resp.Providers, dto.ToProviderResponse(name, p, name == defaultName))
	}
	dto.Success(c, resp)
}

// ListModels 查询 Provider 可用模型
// @Summary 查询可用模型
// @Tags Providers
// @Produce json
// @Param name path string true "Provider 名称"
// @Success 200 {object} dto.Response[dto.ModelListResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /v1/providers/{name}/models [get]
func (h *ProviderHandler) ListModels(c *gin.Context) {
	name := strings.TrimSpace(dto.BindProviderName(c))
	ctx := c.Request.Context()

	p, err := h.catalog.Get(ctx, name)
	if err != nil {
		dto.FromError(c, generation.ToAppError(err))
		return
	}

	models, err := p.ListModels(ctx)
	if err != nil {
		logger.Warn(ctx, "list models failed", "provider", name, "error", err.Error())
		dto.FromError(c, generation.ToAppError(err))
		return
	}
	if models == nil {
		models = []string{}
	}
	dto.Success(c, &dto.ModelListResponse{Provider: name, Models: models})
}

// ValidateCredential 校验凭证
// @Summary 校验凭证
// @Description 不带请求体时校验配置中的凭证；带 CredentialRequest 时校验临时凭证
// @Tags Providers
// @Accept json
// @Produce json
// @Param name path string true "Provider 名称"
// @Param body body dto.CredentialRequest false "临时凭证"
// @Success 200 {object} dto.Response[dto.CredentialValidationResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/providers/{name}/validate [post]
func (h *ProviderHandler) ValidateCredential(c *gin.Context) {
	name := strings.TrimSpace(dto.BindProviderName(c))
	ctx := c.Request.Context()

	var (
		p   llm.Provider
		err error
	)
	if c.Request.ContentLength > 0 {
		var req dto.CredentialRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			dto.BadRequest(c, "invalid request body: "+err.Error())
			return
		}
		p, err = h.catalog.Build(ctx, name, llm.Identity{
			Vendor:    req.Vendor,
			APIKey:    req.APIKey,
			BaseURL:   req.BaseURL,
			ProxyHost: req.ProxyHost,
			ProxyPort: req.ProxyPort,
		})
	} else {
		p, err = h.catalog.Get(ctx, name)
	}
	if err != nil {
		dto.FromError(c, generation.ToAppError(err))
		return
	}

	resp := &dto.CredentialValidationResponse{Provider: name, Valid: true}
	if err := p.ValidateCredential(ctx); err != nil {
		appErr := errors.AsAppError(generation.ToAppError(err))
		resp.Valid = false
		resp.Code = string(appErr.Code)
		resp.Error = appErr.Message
	}
	dto.Success(c, resp)
}
