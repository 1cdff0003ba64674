package llm

import (
	"context"
	"strings"
	"time"
)

// Options 构造厂商 Provider 的参数
type Options struct {
	Identity    Identity
	MaxTokens   int
	Temperature *float64
	Timeout     time.Duration
	Pricing     Pricing
}

// base 各厂商共用的身份、代理与计费逻辑
type base struct {
	*transport
	identity    Identity
	maxTokens   int
	temperature *float64
	timeout     time.Duration
	pricing     Pricing
}

func newBase(opts Options) (*base, error) {
	t, err := newTransport(opts.Identity.Vendor, opts.Timeout, opts.Identity.ProxyHost, opts.Identity.ProxyPort)
	if err != nil {
		return nil, err
	}
	return &base{
		transport:   t,
		identity:    opts.Identity,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		timeout:     opts.Timeout,
		pricing:     opts.Pricing,
	}, nil
}

func (b *base) Name() string  { return b.identity.Vendor }
func (b *base) Model() string { return b.identity.Model }

// EstimateCost 按配置单价估算本次调用成本
func (b *base) EstimateCost(req *ChatRequest) (CostEstimate, error) {
	return estimateCost(b.pricing, req, b.maxTokens), nil
}

// precheck 发起请求前的校验，失败一律不可重试
func (b *base) precheck(req *ChatRequest) error {
	if strings.TrimSpace(b.identity.APIKey) == "" {
		return Permanent(b.identity.Vendor, 0, ErrEmptyCredential)
	}
	return req.Validate(b.identity.Vendor)
}

func (b *base) credentialCheck() error {
	if strings.TrimSpace(b.identity.APIKey) == "" {
		return Permanent(b.identity.Vendor, 0, ErrEmptyCredential)
	}
	return nil
}

func (b *base) modelFor(req *ChatRequest) string {
	if req != nil && req.Model != "" {
		return req.Model
	}
	return b.identity.Model
}

func (b *base) maxTokensFor(req *ChatRequest) int {
	if req != nil && req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return b.maxTokens
}

func (b *base) temperatureFor(req *ChatRequest) *float64 {
	if req != nil && req.Temperature != nil {
		return req.Temperature
	}
	return b.temperature
}

// withTimeout 为单次请求附加超时；流式请求不使用
func (b *base) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, b.timeout)
}

// sendChunk 在 ctx 结束时放弃发送
func sendChunk(ctx context.Context, ch chan<- StreamChunk, chunk StreamChunk) bool {
	select {
	case ch <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

func joinURL(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}
