package llmtrace

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"z-novel-context-api/internal/domain/entity"
	"z-novel-context-api/internal/domain/service"
	"z-novel-context-api/internal/infrastructure/llm"
	"z-novel-context-api/pkg/logger"
	"z-novel-context-api/pkg/metrics"
	"z-novel-context-api/pkg/tracer"
)

// MetadataCorrelationID 请求元数据中的关联 ID 键
const MetadataCorrelationID = "correlation_id"

// Provider 追踪装饰器，包装任意 llm.Provider。
// 只特化 Generate 与 Stream，其余方法直接转发。
type Provider struct {
	inner     llm.Provider
	sink      service.TraceSink
	heartbeat time.Duration
	now       func() time.Time
}

// Option 装饰器选项
type Option func(*Provider)

// WithHeartbeat 流式输出的心跳间隔，<= 0 关闭心跳
func WithHeartbeat(interval time.Duration) Option {
	return func(p *Provider) { p.heartbeat = interval }
}

// WithClock 替换时钟
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// Wrap 创建追踪装饰器
func Wrap(inner llm.Provider, sink service.TraceSink, opts ...Option) *Provider {
	p := &Provider{inner: inner, sink: sink, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Decorator 返回供 llm.Factory 使用的装饰函数
func Decorator(sink service.TraceSink, opts ...Option) llm.Decorator {
	return func(inner llm.Provider) llm.Provider {
		return Wrap(inner, sink, opts...)
	}
}

func (p *Provider) Name() string  { return p.inner.Name() }
func (p *Provider) Model() string { return p.inner.Model() }

func (p *Provider) EstimateCost(req *llm.ChatRequest) (llm.CostEstimate, error) {
	return p.inner.EstimateCost(req)
}

func (p *Provider) ValidateCredential(ctx context.Context) error {
	return p.inner.ValidateCredential(ctx)
}

func (p *Provider) ListModels(ctx context.Context) ([]string, error) {
	return p.inner.ListModels(ctx)
}

func (p *Provider) SetProxy(host string, port int) error { return p.inner.SetProxy(host, port) }
func (p *Provider) DisableProxy()                        { p.inner.DisableProxy() }
func (p *Provider) ProxyEnabled() bool                   { return p.inner.ProxyEnabled() }

// SupportsToolCalling 探测被包装 Provider 的能力
func (p *Provider) SupportsToolCalling() bool {
	return llm.SupportsToolCalling(p.inner)
}

// Unwrap 返回被包装的 Provider
func (p *Provider) Unwrap() llm.Provider {
	return p.inner
}

// Generate 单次调用：计时、快照响应与用量、发布追踪
func (p *Provider) Generate(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	ctx, scope, span := p.begin(ctx, req, false, "llm.generate")
	defer scope.clear()

	start := p.now()
	resp, err := p.inner.Generate(ctx, req)
	latency := p.now().Sub(start)

	if err != nil {
		p.fail(ctx, scope, span, start, err, "")
		return nil, err
	}

	rec := scope.finalize(func(r *entity.LLMTrace) {
		r.State = entity.LLMCallSucceeded
		r.Timing.RequestLatencyMs = latency.Milliseconds()
		if resp == nil {
			return
		}
		r.Response.Content = resp.Content
		if resp.FinishReason != "" {
			r.Response.FinishReason = resp.FinishReason
		}
		if u := resp.Usage; u != nil && (u.PromptTokens > 0 || u.CompletionTokens > 0 || u.TotalTokens > 0) {
			r.Response.PromptTokens = u.PromptTokens
			r.Response.CompletionTokens = u.CompletionTokens
			r.Response.TotalTokens = u.TotalTokens
		}
	}, p.stamp(start))
	p.publish(ctx, rec, span, nil)
	return resp, nil
}

// Stream 流式调用。首个非心跳片段记录首 token 延迟；心跳不进入缓冲；
// 底层监听器已写入的用量与结束原因不会被覆盖；取消时以已缓冲内容发布 cancelled，超时发布 failed。
func (p *Provider) Stream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	ctx, scope, span := p.begin(ctx, req, true, "llm.stream")

	start := p.now()
	in, err := p.inner.Stream(ctx, req)
	if err != nil {
		p.fail(ctx, scope, span, start, err, "")
		return nil, err
	}
	scope.update(func(r *entity.LLMTrace) {
		r.Timing.RequestLatencyMs = p.now().Sub(start).Milliseconds()
	})

	out := make(chan llm.StreamChunk)
	go func() {
		defer close(out)
		defer scope.clear()

		var buf strings.Builder
		gotFirst := false

		succeed := func(c llm.StreamChunk) {
			rec := scope.finalize(func(r *entity.LLMTrace) {
				r.State = entity.LLMCallSucceeded
				r.Response.Content = buf.String()
				if r.Response.FinishReason == "" {
					r.Response.FinishReason = c.FinishReason
				}
				if !r.Response.HasUsage() && c.Usage != nil {
					r.Response.PromptTokens = c.Usage.PromptTokens
					r.Response.CompletionTokens = c.Usage.CompletionTokens
					r.Response.TotalTokens = c.Usage.TotalTokens
				}
			}, p.stamp(start))
			p.publish(ctx, rec, span, nil)
		}
		// 超时按失败处理，只有调用方取消才记为 cancelled
		stop := func() {
			if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
				p.fail(ctx, scope, span, start, err, buf.String())
				return
			}
			rec := scope.finalize(func(r *entity.LLMTrace) {
				r.State = entity.LLMCallCancelled
				r.Response.Content = buf.String()
				r.Response.FinishReason = entity.FinishReasonCancelled
			}, p.stamp(start))
			p.publish(ctx, rec, span, context.Canceled)
		}

		for {
			select {
			case c, ok := <-in:
				if !ok {
					if ctx.Err() != nil {
						stop()
					} else {
						succeed(llm.StreamChunk{Done: true})
					}
					return
				}
				if llm.IsHeartbeat(c) {
					continue
				}
				if c.Err != nil {
					p.fail(ctx, scope, span, start, c.Err, buf.String())
					sendChunk(ctx, out, c)
					return
				}
				if c.Delta != "" {
					if !gotFirst {
						gotFirst = true
						first := p.now().Sub(start)
						scope.update(func(r *entity.LLMTrace) {
							r.Timing.FirstTokenLatencyMs = first.Milliseconds()
						})
						metrics.LLMFirstTokenLatency.WithLabelValues(p.Name(), p.Model()).Observe(first.Seconds())
					}
					buf.WriteString(c.Delta)
				}
				if c.Done {
					succeed(c)
					sendChunk(ctx, out, c)
					return
				}
				if !sendChunk(ctx, out, c) {
					stop()
					return
				}
			case <-ctx.Done():
				stop()
				return
			}
		}
	}()

	return llm.MergeHeartbeat(ctx, out, p.heartbeat), nil
}

// begin 创建记录并建立作用域与 span
func (p *Provider) begin(ctx context.Context, req *llm.ChatRequest, stream bool, spanName string) (context.Context, *Scope, trace.Span) {
	rec := p.newRecord(ctx, req, stream)
	ctx, scope := WithScope(ctx, rec)
	ctx, span := tracer.Start(ctx, spanName, trace.WithAttributes(
		attribute.String("llm.provider", rec.Vendor),
		attribute.String("llm.model", rec.Model),
		attribute.String("llm.trace_id", rec.ID),
		attribute.Bool("llm.stream", stream),
	))
	ctx = logger.WithContext(ctx, logger.LLMTraceIDKey, rec.ID)
	scope.update(func(r *entity.LLMTrace) { r.State = entity.LLMCallInFlight })
	return ctx, scope, span
}

func (p *Provider) newRecord(ctx context.Context, req *llm.ChatRequest, stream bool) *entity.LLMTrace {
	rec := &entity.LLMTrace{
		ID:     uuid.NewString(),
		Vendor: p.Name(),
		Model:  p.Model(),
		State:  entity.LLMCallCreated,
		Timing: entity.LLMTraceTiming{StartedAt: p.now()},
		Request: entity.LLMTraceRequest{
			Stream: stream,
		},
	}
	if req == nil {
		return rec
	}
	if req.Model != "" {
		rec.Model = req.Model
	}
	rec.Request.Temperature = req.Temperature
	rec.Request.MaxTokens = req.MaxTokens
	rec.Request.Messages = make([]entity.LLMTraceMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		rec.Request.Messages = append(rec.Request.Messages, entity.LLMTraceMessage{Role: string(m.Role), Content: m.Content})
	}

	rec.CorrelationID = service.CorrelationFromContext(ctx)
	if rec.CorrelationID == "" {
		rec.CorrelationID = req.Metadata[MetadataCorrelationID]
	}
	if len(req.Metadata) > 0 {
		rec.Metadata = make(map[string]string, len(req.Metadata)+1)
		for k, v := range req.Metadata {
			rec.Metadata[k] = v
		}
	}
	if wf := service.WorkflowFromContext(ctx); wf != "unknown" {
		if rec.Metadata == nil {
			rec.Metadata = make(map[string]string, 1)
		}
		rec.Metadata["workflow"] = wf
	}
	return rec
}

// fail 以错误终态发布；调用方取消时记为 cancelled，超时记为 failed
func (p *Provider) fail(ctx context.Context, scope *Scope, span trace.Span, start time.Time, err error, partial string) {
	cancelled := errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled)
	rec := scope.finalize(func(r *entity.LLMTrace) {
		r.Response.Content = partial
		r.Response.Error = err.Error()
		r.Response.ErrorType = errorType(err)
		if cancelled {
			r.State = entity.LLMCallCancelled
			r.Response.FinishReason = entity.FinishReasonCancelled
			return
		}
		r.State = entity.LLMCallFailed
		r.Response.FinishReason = entity.FinishReasonError
	}, p.stamp(start))
	p.publish(ctx, rec, span, err)
}

// stamp 写入结束时间与总耗时
func (p *Provider) stamp(start time.Time) func(r *entity.LLMTrace) {
	return func(r *entity.LLMTrace) {
		end := p.now()
		r.Timing.EndedAt = end
		r.Timing.DurationMs = end.Sub(start).Milliseconds()
	}
}

// publish 记录指标、结束 span 并投递记录；投递失败只记录日志
func (p *Provider) publish(ctx context.Context, rec *entity.LLMTrace, span trace.Span, err error) {
	if rec == nil || !rec.State.IsTerminal() {
		return
	}
	ctx = context.WithoutCancel(ctx)

	metrics.LLMCallTotal.WithLabelValues(rec.Vendor, rec.Model, string(rec.State)).Inc()
	metrics.LLMCallDuration.WithLabelValues(rec.Vendor, rec.Model).Observe(float64(rec.Timing.DurationMs) / 1000)
	if rec.Response.HasUsage() {
		metrics.LLMTokensUsed.WithLabelValues(rec.Vendor, rec.Model, "prompt").Add(float64(rec.Response.PromptTokens))
		metrics.LLMTokensUsed.WithLabelValues(rec.Vendor, rec.Model, "completion").Add(float64(rec.Response.CompletionTokens))
	}

	span.SetAttributes(
		attribute.String("llm.state", string(rec.State)),
		attribute.Int("llm.prompt_tokens", rec.Response.PromptTokens),
		attribute.Int("llm.completion_tokens", rec.Response.CompletionTokens),
		attribute.Int64("llm.first_token_ms", rec.Timing.FirstTokenLatencyMs),
	)
	tracer.Finish(span, err)

	if p.sink == nil {
		return
	}
	if perr := p.sink.Publish(ctx, rec); perr != nil {
		logger.Warn(ctx, "failed to publish llm trace", "llm_trace_id", rec.ID, "error", perr.Error())
	}
}

// errorType 错误分类，写入记录便于统计
func errorType(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case llm.IsTransient(err):
		return "transient"
	default:
		return "permanent"
	}
}

func sendChunk(ctx context.Context, ch chan<- llm.StreamChunk, c llm.StreamChunk) bool {
	select {
	case ch <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

var _ llm.ToolCallingProvider = (*Provider)(nil)
