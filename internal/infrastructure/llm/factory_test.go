package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-novel-context-api/internal/config"
)

type taggedProvider struct {
	Provider
	tag string
}

func testConfig() *config.Config {
	return &config.Config{LLM: config.LLMConfig{
		DefaultProvider: "claude",
		Providers: map[string]config.ProviderConfig{
			"claude":   {Vendor: VendorAnthropic, APIKey: "k1", Model: "claude-x"},
			"deepseek": {APIKey: "k2", Model: "deepseek-chat", Temperature: floatRef(0.7)},
			"broken":   {Vendor: "nope", APIKey: "k3"},
		},
	}}
}

func floatRef(v float64) *float64 { return &v }

func TestOptionsFromConfigTemperature(t *testing.T) {
	opts := optionsFromConfig("deepseek", config.ProviderConfig{Temperature: floatRef(0)})
	require.NotNil(t, opts.Temperature, "zero temperature is an explicit setting")
	assert.Equal(t, 0.0, *opts.Temperature)

	opts = optionsFromConfig("deepseek", config.ProviderConfig{Temperature: floatRef(0.7)})
	require.NotNil(t, opts.Temperature)
	assert.Equal(t, 0.7, *opts.Temperature)

	opts = optionsFromConfig("deepseek", config.ProviderConfig{})
	assert.Nil(t, opts.Temperature)
}

func TestFactoryGetCachesAndDecorates(t *testing.T) {
	f := NewFactory(testConfig(), func(p Provider) Provider { return &taggedProvider{Provider: p, tag: "traced"} })

	p1, err := f.Default(context.Background())
	require.NoError(t, err)
	p2, err := f.Get(context.Background(), "claude")
	require.NoError(t, err)
	assert.Same(t, p1, p2)

	tagged, ok := p1.(*taggedProvider)
	require.True(t, ok)
	assert.Equal(t, "traced", tagged.tag)
	retrying, ok := tagged.Provider.(*RetryingProvider)
	require.True(t, ok)
	assert.IsType(t, &AnthropicProvider{}, retrying.Unwrap())
	assert.Equal(t, "claude-x", p1.Model())
}

func TestFactoryVendorFallsBackToName(t *testing.T) {
	f := NewFactory(testConfig())
	p, err := f.Get(context.Background(), "deepseek")
	require.NoError(t, err)
	assert.Equal(t, VendorDeepSeek, p.Name())
}

func TestFactoryErrors(t *testing.T) {
	f := NewFactory(testConfig())

	_, err := f.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrProviderNotConfigured)

	_, err = f.Get(context.Background(), "broken")
	assert.ErrorIs(t, err, ErrUnknownVendor)
}

func TestFactoryBuild(t *testing.T) {
	f := NewFactory(testConfig())

	p, err := f.Build(context.Background(), "claude", Identity{APIKey: "user-key", Model: "claude-y"})
	require.NoError(t, err)
	assert.Equal(t, VendorAnthropic, p.Name())
	assert.Equal(t, "claude-y", p.Model())

	cached, err := f.Get(context.Background(), "claude")
	require.NoError(t, err)
	assert.NotSame(t, cached, p)
	assert.Equal(t, "claude-x", cached.Model())

	p, err = f.Build(context.Background(), "claude", Identity{Vendor: VendorGemini, APIKey: "g", Model: "gemini-x"})
	require.NoError(t, err)
	assert.Equal(t, VendorGemini, p.Name())

	_, err = f.Build(context.Background(), "", Identity{Vendor: "nope"})
	assert.ErrorIs(t, err, ErrUnknownVendor)
}

func TestFactoryNames(t *testing.T) {
	f := NewFactory(testConfig())
	assert.Equal(t, []string{"broken", "claude", "deepseek"}, f.Names())
	assert.Equal(t, "claude", f.DefaultName())
}
