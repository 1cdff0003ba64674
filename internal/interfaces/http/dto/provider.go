// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"z-novel-context-api/internal/infrastructure/llm"
)

// ProviderResponse 已配置的 Provider
type ProviderResponse struct {
	Name         string `json:"name"`
	Vendor       string `json:"vendor"`
	Model        string `json:"model"`
	Default      bool   `json:"default"`
	ToolCalling  bool   `json:"tool_calling"`
	ProxyEnabled bool   `json:"proxy_enabled"`
}

// ToProviderResponse 转换 Provider 信息
func ToProviderResponse(name string, p llm.Provider, isDefault bool) *ProviderResponse {
	return &ProviderResponse{
		Name:         name,
		Vendor:       p.Name(),
		Model:        p.Model(),
		Default:      isDefault,
		ToolCalling:  llm.SupportsToolCalling(p),
		ProxyEnabled: p.ProxyEnabled(),
	}
}

// ProviderListResponse Provider 列表
type ProviderListResponse struct {
	Providers []*ProviderResponse `json:"providers"`
	// Unavailable 配置存在但无法构造的 Provider 及原因
	Unavailable map[string]string `json:"unavailable,omitempty"`
}

// ModelListResponse 模型列表
type ModelListResponse struct {
	Provider string   `json:"provider"`
	Models   []string `json:"models"`
}

// CredentialValidationResponse 凭证校验结果
type CredentialValidationResponse struct {
	Provider string `json:"provider"`
	Valid    bool   `json:"valid"`
	Code     string `json:"code,omitempty"`
	Error    string `json:"error,omitempty"`
}
