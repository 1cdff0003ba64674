package llm

import (
	"z-novel-context-api/pkg/tokenizer"
)

const (
	// defaultCompletionTokens 未指定 MaxTokens 时按此估算输出
	defaultCompletionTokens = 1024
	// messageOverheadTokens 每条消息的格式开销
	messageOverheadTokens = 4
)

// Pricing 每千 token 单价
type Pricing struct {
	InputPer1K  float64
	OutputPer1K float64
	Currency    string
}

// EstimatePromptTokens 估算消息列表的输入 token 数
func EstimatePromptTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += tokenizer.Count(m.Content) + messageOverheadTokens
	}
	return total
}

func estimateCost(p Pricing, req *ChatRequest, defaultMaxTokens int) CostEstimate {
	est := CostEstimate{Currency: p.Currency}
	if est.Currency == "" {
		est.Currency = "USD"
	}
	if req == nil {
		return est
	}
	est.PromptTokens = EstimatePromptTokens(req.Messages)
	switch {
	case req.MaxTokens > 0:
		est.CompletionTokens = req.MaxTokens
	case defaultMaxTokens > 0:
		est.CompletionTokens = defaultMaxTokens
	default:
		est.CompletionTokens = defaultCompletionTokens
	}
	est.Cost = float64(est.PromptTokens)/1000*p.InputPer1K + float64(est.CompletionTokens)/1000*p.OutputPer1K
	return est
}
