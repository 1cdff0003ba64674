// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"z-novel-context-api/internal/application/contextprovider"
	"z-novel-context-api/internal/application/generation"
	"z-novel-context-api/internal/infrastructure/llm"
)

// ContextSelection 上下文选择参数
type ContextSelection struct {
	CurrentChapterID string   `json:"current_chapter_id,omitempty"`
	CurrentSceneID   string   `json:"current_scene_id,omitempty"`
	RecentChapters   int      `json:"recent_chapters,omitempty" binding:"omitempty,gte=0,lte=50"`
	IncludeIDs       bool     `json:"include_ids,omitempty"`
	Refs             []string `json:"refs,omitempty" binding:"omitempty,max=64"`
	MaxTokens        int      `json:"max_tokens,omitempty" binding:"omitempty,gte=0"`
}

// toRequest 转换为组装请求的公共部分
func (s *ContextSelection) toRequest(novelID string) contextprovider.Request {
	return contextprovider.Request{
		NovelID:          novelID,
		CurrentChapterID: s.CurrentChapterID,
		CurrentSceneID:   s.CurrentSceneID,
		RecentChapters:   s.RecentChapters,
		IncludeIDs:       s.IncludeIDs,
	}
}

// CredentialRequest 请求自带的厂商凭证
type CredentialRequest struct {
	Vendor    string `json:"vendor,omitempty"`
	APIKey    string `json:"api_key,omitempty"`
	BaseURL   string `json:"base_url,omitempty" binding:"omitempty,url"`
	ProxyHost string `json:"proxy_host,omitempty"`
	ProxyPort int    `json:"proxy_port,omitempty" binding:"omitempty,gte=1,lte=65535"`
}

// MessageRequest 对话历史消息
type MessageRequest struct {
	Role    string `json:"role" binding:"required,oneof=system user assistant"`
	Content string `json:"content"`
}

// GenerateRequest 生成请求
type GenerateRequest struct {
	Task          string             `json:"task" binding:"required"`
	NovelID       string             `json:"novel_id" binding:"required"`
	Provider      string             `json:"provider,omitempty" binding:"max=32"`
	Model         string             `json:"model,omitempty" binding:"max=64"`
	Temperature   *float64           `json:"temperature,omitempty" binding:"omitempty,gte=0,lte=2"`
	MaxTokens     int                `json:"max_tokens,omitempty" binding:"omitempty,gte=0"`
	TargetWords   int                `json:"target_words,omitempty" binding:"omitempty,gte=0,lte=20000"`
	Instruction   string             `json:"instruction,omitempty" binding:"max=20000"`
	History       []MessageRequest   `json:"history,omitempty" binding:"omitempty,dive"`
	Context       ContextSelection   `json:"context"`
	Credential    *CredentialRequest `json:"credential,omitempty"`
	CorrelationID string             `json:"correlation_id,omitempty" binding:"max=128"`
	Metadata      map[string]string  `json:"metadata,omitempty"`
}

// ToInput 转换为生成服务输入
func (r *GenerateRequest) ToInput(userID string) *generation.Input {
	in := &generation.Input{
		Task:             generation.Task(r.Task),
		Provider:         r.Provider,
		Model:            r.Model,
		Temperature:      r.Temperature,
		MaxTokens:        r.MaxTokens,
		TargetWords:      r.TargetWords,
		Context:          r.Context.toRequest(r.NovelID),
		ContextRefs:      r.Context.Refs,
		ContextMaxTokens: r.Context.MaxTokens,
		Instruction:      r.Instruction,
		CorrelationID:    r.CorrelationID,
		Metadata:         r.Metadata,
	}
	in.Context.UserID = userID

	if len(r.History) > 0 {
		in.History = make([]llm.Message, 0, len(r.History))
		for _, m := range r.History {
			in.History = append(in.History, llm.Message{Role: llm.Role(m.Role), Content: m.Content})
		}
	}

	if r.Credential != nil {
		in.Identity = &llm.Identity{
			Vendor:    r.Credential.Vendor,
			Model:     r.Model,
			APIKey:    r.Credential.APIKey,
			BaseURL:   r.Credential.BaseURL,
			ProxyHost: r.Credential.ProxyHost,
			ProxyPort: r.Credential.ProxyPort,
		}
	}
	return in
}

// UsageResponse token 用量
type UsageResponse struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ToUsageResponse 转换用量
func ToUsageResponse(u *llm.Usage) *UsageResponse {
	if u == nil {
		return nil
	}
	return &UsageResponse{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}

// GenerateResponse 生成响应
type GenerateResponse struct {
	Content      string          `json:"content"`
	FinishReason string          `json:"finish_reason,omitempty"`
	Vendor       string          `json:"vendor"`
	Model        string          `json:"model"`
	Usage        *UsageResponse  `json:"usage,omitempty"`
	Context      *ContextSummary `json:"context,omitempty"`
}

// ToGenerateResponse 转换生成结果
func ToGenerateResponse(out *generation.Output) *GenerateResponse {
	if out == nil {
		return nil
	}
	return &GenerateResponse{
		Content:      out.Content,
		FinishReason: out.FinishReason,
		Vendor:       out.Vendor,
		Model:        out.Model,
		Usage:        ToUsageResponse(out.Usage),
		Context:      ToContextSummary(out.Assembly),
	}
}

// PreviewResponse 提示词预览与费用预估
type PreviewResponse struct {
	Model    string           `json:"model,omitempty"`
	Messages []llm.Message    `json:"messages"`
	Estimate llm.CostEstimate `json:"estimate"`
	Context  *ContextSummary  `json:"context,omitempty"`
}

// ToPreviewResponse 转换预览结果
func ToPreviewResponse(est llm.CostEstimate, prepared *generation.Prepared) *PreviewResponse {
	resp := &PreviewResponse{Estimate: est, Messages: []llm.Message{}}
	if prepared == nil {
		return resp
	}
	if prepared.Request != nil {
		resp.Model = prepared.Request.Model
		resp.Messages = prepared.Request.Messages
	}
	resp.Context = ToContextSummary(prepared.Assembly)
	return resp
}

// StreamContentEvent 流式正文事件
type StreamContentEvent struct {
	Delta string `json:"delta"`
	Index int    `json:"index"`
}

// StreamDoneEvent 流式结束事件
type StreamDoneEvent struct {
	FinishReason string         `json:"finish_reason,omitempty"`
	Usage        *UsageResponse `json:"usage,omitempty"`
}

// StreamErrorEvent 流式错误事件
type StreamErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
