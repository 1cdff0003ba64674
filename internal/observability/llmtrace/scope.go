// Package llmtrace 为模型调用生成追踪记录：状态流转、耗时、用量，终态时发布一次
package llmtrace

import (
	"context"
	"sync"

	"z-novel-context-api/internal/domain/entity"
)

type scopeKey struct{}

// Scope 一次调用的活动追踪作用域。
// 外发请求前建立，终态时清除且只清除一次；清除后的标注会被忽略。
type Scope struct {
	mu        sync.Mutex
	record    *entity.LLMTrace
	active    bool
	clearOnce sync.Once
}

// WithScope 把追踪记录绑定到 ctx
func WithScope(ctx context.Context, record *entity.LLMTrace) (context.Context, *Scope) {
	s := &Scope{record: record, active: true}
	return context.WithValue(ctx, scopeKey{}, s), s
}

// FromContext 返回 ctx 上的作用域，没有时返回 nil
func FromContext(ctx context.Context) *Scope {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(scopeKey{}).(*Scope)
	return s
}

// Active 作用域是否仍有效
func (s *Scope) Active() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// TraceID 当前记录 ID
func (s *Scope) TraceID() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.ID
}

// Snapshot 返回当前记录的副本
func (s *Scope) Snapshot() *entity.LLMTrace {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRecord(s.record)
}

// update 在作用域有效时修改记录
func (s *Scope) update(fn func(r *entity.LLMTrace)) bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return false
	}
	fn(s.record)
	return true
}

// finalize 写入终态并清除作用域，返回记录快照；已清除时返回 nil
func (s *Scope) finalize(fns ...func(r *entity.LLMTrace)) *entity.LLMTrace {
	var snapshot *entity.LLMTrace
	s.clearOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, fn := range fns {
			fn(s.record)
		}
		s.active = false
		snapshot = cloneRecord(s.record)
	})
	return snapshot
}

// clear 清除作用域，不发布
func (s *Scope) clear() {
	s.clearOnce.Do(func() {
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
	})
}

// AnnotateUsage 由底层监听器补充 token 用量；作用域无效时返回 false
func AnnotateUsage(ctx context.Context, promptTokens, completionTokens, totalTokens int) bool {
	if totalTokens == 0 {
		totalTokens = promptTokens + completionTokens
	}
	if totalTokens == 0 {
		return false
	}
	return FromContext(ctx).update(func(r *entity.LLMTrace) {
		r.Response.PromptTokens = promptTokens
		r.Response.CompletionTokens = completionTokens
		r.Response.TotalTokens = totalTokens
	})
}

// AnnotateFinishReason 由底层监听器补充结束原因
func AnnotateFinishReason(ctx context.Context, reason string) bool {
	if reason == "" {
		return false
	}
	return FromContext(ctx).update(func(r *entity.LLMTrace) {
		r.Response.FinishReason = reason
	})
}

func cloneRecord(r *entity.LLMTrace) *entity.LLMTrace {
	c := *r
	c.Request.Messages = append([]entity.LLMTraceMessage(nil), r.Request.Messages...)
	if r.Metadata != nil {
		c.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}
