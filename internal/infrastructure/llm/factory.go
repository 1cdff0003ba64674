package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"z-novel-context-api/internal/config"
)

// ErrProviderNotConfigured 配置中不存在该 Provider
var ErrProviderNotConfigured = errors.New("provider not configured")

// Decorator 包装 Provider，例如追踪
type Decorator func(Provider) Provider

// New 按厂商构造裸 Provider（不含重试与追踪）
func New(ctx context.Context, opts Options) (Provider, error) {
	switch opts.Identity.Vendor {
	case VendorOpenAI:
		return NewOpenAIProvider(ctx, opts)
	case VendorOpenRouter, VendorSiliconFlow, VendorDeepSeek:
		return NewCompatibleProvider(opts)
	case VendorAnthropic:
		return NewAnthropicProvider(opts)
	case VendorGemini:
		return NewGeminiProvider(opts)
	default:
		return nil, Permanent(opts.Identity.Vendor, 0, fmt.Errorf("%w: %q", ErrUnknownVendor, opts.Identity.Vendor))
	}
}

// Factory 管理多个 Provider 实例
type Factory struct {
	config     *config.LLMConfig
	retry      RetryConfig
	decorators []Decorator
	providers  map[string]Provider
	mu         sync.RWMutex
}

// NewFactory 创建 LLM 工厂；decorators 按顺序包在重试层之外
func NewFactory(cfg *config.Config, decorators ...Decorator) *Factory {
	return &Factory{
		config: &cfg.LLM,
		retry: RetryConfig{
			InitialInterval: cfg.LLM.Retry.Initial,
			MaxInterval:     cfg.LLM.Retry.Max,
			Multiplier:      cfg.LLM.Retry.Multiplier,
			MaxRetries:      cfg.LLM.Retry.MaxRetries,
		},
		decorators: decorators,
		providers:  make(map[string]Provider),
	}
}

// Get 获取指定名称的 Provider，如果未指定则返回默认 Provider
func (f *Factory) Get(ctx context.Context, name string) (Provider, error) {
	if name == "" {
		name = f.config.DefaultProvider
	}

	f.mu.RLock()
	p, ok := f.providers[name]
	f.mu.RUnlock()
	if ok {
		return p, nil
	}

	// 惰性加载
	f.mu.Lock()
	defer f.mu.Unlock()

	// 再次检查防止竞态
	if p, ok = f.providers[name]; ok {
		return p, nil
	}

	providerCfg, ok := f.config.Providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotConfigured, name)
	}

	p, err := f.assemble(ctx, optionsFromConfig(name, providerCfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create provider %s: %w", name, err)
	}
	f.providers[name] = p
	return p, nil
}

// Default 返回默认 Provider
func (f *Factory) Default(ctx context.Context) (Provider, error) {
	return f.Get(ctx, "")
}

// Build 用请求携带的身份临时构造 Provider，不缓存。
// name 对应的配置作为缺省值，身份中的非空字段覆盖它。
func (f *Factory) Build(ctx context.Context, name string, id Identity) (Provider, error) {
	opts := Options{Identity: id}
	if name == "" {
		name = f.config.DefaultProvider
	}
	if providerCfg, ok := f.config.Providers[name]; ok {
		opts = optionsFromConfig(name, providerCfg)
		opts.Identity = mergeIdentity(opts.Identity, id)
	}
	if opts.Identity.Vendor == "" {
		opts.Identity.Vendor = name
	}
	return f.assemble(ctx, opts)
}

// Names 返回已配置的 Provider 名称
func (f *Factory) Names() []string {
	names := make([]string, 0, len(f.config.Providers))
	for name := range f.config.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultName 默认 Provider 名称
func (f *Factory) DefaultName() string {
	return f.config.DefaultProvider
}

func (f *Factory) assemble(ctx context.Context, opts Options) (Provider, error) {
	vendor, err := New(ctx, opts)
	if err != nil {
		return nil, err
	}
	var p Provider = NewRetryingProvider(vendor, f.retry)
	for _, d := range f.decorators {
		p = d(p)
	}
	return p, nil
}

func optionsFromConfig(name string, c config.ProviderConfig) Options {
	vendor := c.Vendor
	if vendor == "" {
		vendor = name
	}
	opts := Options{
		Identity: Identity{
			Vendor:  vendor,
			Model:   c.Model,
			APIKey:  c.APIKey,
			BaseURL: c.BaseURL,
		},
		MaxTokens: c.MaxTokens,
		Timeout:   c.Timeout,
		Pricing: Pricing{
			InputPer1K:  c.Pricing.InputPer1K,
			OutputPer1K: c.Pricing.OutputPer1K,
			Currency:    c.Pricing.Currency,
		},
	}
	if c.Temperature != nil {
		t := *c.Temperature
		opts.Temperature = &t
	}
	if c.Proxy.Enabled {
		opts.Identity.ProxyHost = c.Proxy.Host
		opts.Identity.ProxyPort = c.Proxy.Port
	}
	return opts
}

// mergeIdentity 合并身份；厂商不同时不继承配置中的地址与凭证
func mergeIdentity(base, override Identity) Identity {
	if override.Vendor != "" && override.Vendor != base.Vendor {
		return override
	}
	if override.Model != "" {
		base.Model = override.Model
	}
	if override.APIKey != "" {
		base.APIKey = override.APIKey
	}
	if override.BaseURL != "" {
		base.BaseURL = override.BaseURL
	}
	if override.ProxyHost != "" {
		base.ProxyHost = override.ProxyHost
		base.ProxyPort = override.ProxyPort
	}
	return base
}
