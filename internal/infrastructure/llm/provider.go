// Package llm 提供多厂商大模型调用的统一抽象
package llm

import (
	"context"
	"strings"
)

// 支持的厂商协议
const (
	VendorOpenAI      = "openai"
	VendorOpenRouter  = "openrouter"
	VendorSiliconFlow = "siliconflow"
	VendorDeepSeek    = "deepseek"
	VendorAnthropic   = "anthropic"
	VendorGemini      = "gemini"
)

// Role 消息角色
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message 对话消息
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest 统一的对话请求
type ChatRequest struct {
	// Model 为空时使用 Provider 默认模型
	Model       string
	Messages    []Message
	Temperature *float64
	MaxTokens   int
	// Metadata 透传给追踪记录，例如 correlation_id
	Metadata map[string]string
}

// Validate 校验请求
func (r *ChatRequest) Validate(vendor string) error {
	if r == nil || len(r.Messages) == 0 {
		return Permanent(vendor, 0, errEmptyMessages)
	}
	for _, m := range r.Messages {
		if strings.TrimSpace(m.Content) != "" {
			return nil
		}
	}
	return Permanent(vendor, 0, errEmptyMessages)
}

// Usage token 用量
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse 统一的对话响应
type ChatResponse struct {
	Model        string
	Content      string
	FinishReason string
	Usage        *Usage
}

// StreamChunk 流式输出的一个片段
type StreamChunk struct {
	Delta        string
	Done         bool
	FinishReason string
	Usage        *Usage
	Err          error
	// Heartbeat 为 true 时 Delta 为 HeartbeatSentinel，不属于正文
	Heartbeat bool
}

// CostEstimate 调用成本预估
type CostEstimate struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	Cost             float64 `json:"cost"`
	Currency         string  `json:"currency"`
}

// Identity 厂商身份信息，构造后不可变
type Identity struct {
	Vendor    string
	Model     string
	APIKey    string
	BaseURL   string
	ProxyHost string
	ProxyPort int
}

// Provider 大模型提供方
type Provider interface {
	Name() string
	Model() string
	Generate(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	// Stream 返回的通道在结束时关闭；错误以 StreamChunk.Err 传递
	Stream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error)
	EstimateCost(req *ChatRequest) (CostEstimate, error)
	ValidateCredential(ctx context.Context) error
	ListModels(ctx context.Context) ([]string, error)
	SetProxy(host string, port int) error
	DisableProxy()
	ProxyEnabled() bool
}

// ToolCallingProvider 支持工具调用的 Provider
type ToolCallingProvider interface {
	Provider
	SupportsToolCalling() bool
}

// SupportsToolCalling 探测 Provider 是否支持工具调用
func SupportsToolCalling(p Provider) bool {
	tc, ok := p.(ToolCallingProvider)
	return ok && tc.SupportsToolCalling()
}
