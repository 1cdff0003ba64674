package entity

import "time"

// LLMCallState 单次调用的状态
type LLMCallState string

const (
	LLMCallCreated   LLMCallState = "created"
	LLMCallInFlight  LLMCallState = "in_flight"
	LLMCallSucceeded LLMCallState = "succeeded"
	LLMCallFailed    LLMCallState = "failed"
	LLMCallCancelled LLMCallState = "cancelled"
)

// IsTerminal 是否为终态
func (s LLMCallState) IsTerminal() bool {
	switch s {
	case LLMCallSucceeded, LLMCallFailed, LLMCallCancelled:
		return true
	default:
		return false
	}
}

// 终态时由追踪装饰器写入的结束原因
const (
	FinishReasonCancelled = "cancelled"
	FinishReasonError     = "error"
)

// LLMTrace 一次模型调用的追踪记录。
// 调用开始时创建，终态时发布一次，本服务不落库。
type LLMTrace struct {
	ID            string            `json:"id"`
	Vendor        string            `json:"vendor"`
	Model         string            `json:"model"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	State         LLMCallState      `json:"state"`
	Request       LLMTraceRequest   `json:"request"`
	Response      LLMTraceResponse  `json:"response"`
	Timing        LLMTraceTiming    `json:"timing"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// LLMTraceMessage 请求消息快照
type LLMTraceMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMTraceRequest 请求快照
type LLMTraceRequest struct {
	Messages    []LLMTraceMessage `json:"messages"`
	Temperature *float64          `json:"temperature,omitempty"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
	Stream      bool              `json:"stream"`
}

// LLMTraceResponse 响应快照
type LLMTraceResponse struct {
	Content          string `json:"content,omitempty"`
	PromptTokens     int    `json:"prompt_tokens,omitempty"`
	CompletionTokens int    `json:"completion_tokens,omitempty"`
	TotalTokens      int    `json:"total_tokens,omitempty"`
	FinishReason     string `json:"finish_reason,omitempty"`
	Error            string `json:"error,omitempty"`
	ErrorType        string `json:"error_type,omitempty"`
}

// HasUsage 是否已有 token 用量
func (r LLMTraceResponse) HasUsage() bool {
	return r.PromptTokens > 0 || r.CompletionTokens > 0 || r.TotalTokens > 0
}

// LLMTraceTiming 耗时信息，单位毫秒
type LLMTraceTiming struct {
	StartedAt           time.Time `json:"started_at"`
	EndedAt             time.Time `json:"ended_at,omitempty"`
	RequestLatencyMs    int64     `json:"request_latency_ms"`
	FirstTokenLatencyMs int64     `json:"first_token_latency_ms,omitempty"`
	DurationMs          int64     `json:"duration_ms"`
}
