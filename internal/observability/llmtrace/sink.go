package llmtrace

import (
	"context"
	"errors"

	"z-novel-context-api/internal/domain/entity"
	"z-novel-context-api/internal/domain/service"
	"z-novel-context-api/pkg/logger"
)

// LogSink 以结构化日志输出追踪记录，不含消息正文
type LogSink struct{}

// Publish 实现 service.TraceSink
func (LogSink) Publish(ctx context.Context, t *entity.LLMTrace) error {
	logger.Info(ctx, "llm call finished",
		"llm_trace_id", t.ID,
		"vendor", t.Vendor,
		"model", t.Model,
		"state", string(t.State),
		"correlation_id", t.CorrelationID,
		"stream", t.Request.Stream,
		"prompt_tokens", t.Response.PromptTokens,
		"completion_tokens", t.Response.CompletionTokens,
		"finish_reason", t.Response.FinishReason,
		"first_token_ms", t.Timing.FirstTokenLatencyMs,
		"duration_ms", t.Timing.DurationMs,
		"error", t.Response.Error,
	)
	return nil
}

// MultiSink 依次投递到多个 sink，汇总错误
type MultiSink []service.TraceSink

// Publish 实现 service.TraceSink
func (m MultiSink) Publish(ctx context.Context, t *entity.LLMTrace) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Publish(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ service.TraceSink = LogSink{}
	_ service.TraceSink = MultiSink(nil)
)
