package service

import (
	"context"

	"z-novel-context-api/internal/domain/entity"
)

// TraceSink 接收终态的模型调用追踪记录（日志、消息流、分析库等）。
// 约定：实现应尽量 best-effort，发布失败不影响调用结果。
type TraceSink interface {
	Publish(ctx context.Context, trace *entity.LLMTrace) error
}

// TraceSinkFunc 函数适配器
type TraceSinkFunc func(ctx context.Context, trace *entity.LLMTrace) error

// Publish 实现 TraceSink
func (f TraceSinkFunc) Publish(ctx context.Context, trace *entity.LLMTrace) error {
	return f(ctx, trace)
}
