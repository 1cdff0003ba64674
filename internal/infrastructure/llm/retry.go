package llm

import (
	"context"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"z-novel-context-api/pkg/logger"
	"z-novel-context-api/pkg/metrics"
)

// RetryConfig 重试参数
type RetryConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	MaxRetries      int
}

// DefaultRetryConfig 默认重试参数
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     8 * time.Second,
		Multiplier:      2,
		MaxRetries:      3,
	}
}

// RetryingProvider 对瞬时错误做指数退避重试。
// 只重试 Generate 与流的建立，流开始输出后不再重试。
type RetryingProvider struct {
	Provider
	buildBackoff func() backoff.BackOff
}

// NewRetryingProvider 创建带重试的 Provider
func NewRetryingProvider(p Provider, cfg RetryConfig) *RetryingProvider {
	def := DefaultRetryConfig()
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = def.InitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = def.MaxInterval
	}
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = def.Multiplier
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &RetryingProvider{
		Provider: p,
		buildBackoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = cfg.InitialInterval
			b.MaxInterval = cfg.MaxInterval
			b.Multiplier = cfg.Multiplier
			b.MaxElapsedTime = 0
			return backoff.WithMaxRetries(b, uint64(cfg.MaxRetries))
		},
	}
}

// Generate 单次生成
func (r *RetryingProvider) Generate(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	var resp *ChatResponse
	err := r.retry(ctx, func() error {
		var err error
		resp, err = r.Provider.Generate(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Stream 建立流式连接
func (r *RetryingProvider) Stream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error) {
	var ch <-chan StreamChunk
	err := r.retry(ctx, func() error {
		var err error
		ch, err = r.Provider.Stream(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// SupportsToolCalling 透传内层能力
func (r *RetryingProvider) SupportsToolCalling() bool {
	return SupportsToolCalling(r.Provider)
}

// Unwrap 返回内层 Provider
func (r *RetryingProvider) Unwrap() Provider {
	return r.Provider
}

func (r *RetryingProvider) retry(ctx context.Context, fn func() error) error {
	op := func() error {
		err := fn()
		if err != nil && !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		metrics.LLMRetryTotal.WithLabelValues(r.Name(), r.Model()).Inc()
		logger.Warn(ctx, "llm call failed, retrying",
			"provider", r.Name(),
			"model", r.Model(),
			"wait", wait.String(),
			"error", err.Error(),
		)
	}
	return backoff.RetryNotify(op, backoff.WithContext(r.buildBackoff(), ctx), notify)
}

var _ ToolCallingProvider = (*RetryingProvider)(nil)
