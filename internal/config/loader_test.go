package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("ZN_TEST_KEY", "sk-test")

	assert.Equal(t, "key: sk-test", expandEnv("key: ${ZN_TEST_KEY}"))
	assert.Equal(t, "key: fallback", expandEnv("key: ${ZN_TEST_MISSING:fallback}"))
	assert.Equal(t, "key: ", expandEnv("key: ${ZN_TEST_MISSING:}"))
	assert.Equal(t, "key: ${ZN_TEST_MISSING}", expandEnv("key: ${ZN_TEST_MISSING}"))
}

func TestLoadFrom(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_ENV", "test")
	t.Setenv("ZN_OPENAI_KEY", "sk-abc")

	writeFile(t, dir, "config.yaml", `
llm:
  default_provider: openai
  providers:
    openai:
      vendor: openai
      api_key: ${ZN_OPENAI_KEY}
      model: gpt-4o-mini
      timeout: 60s
      pricing:
        input_per_1k: 0.15
        output_per_1k: 0.6
assembly:
  recent_chapters: 3
`)
	writeFile(t, dir, "config.test.yaml", `
assembly:
  max_tokens: 4000
`)

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	p := cfg.LLM.Providers["openai"]
	assert.Equal(t, "sk-abc", p.APIKey)
	assert.Equal(t, 60*time.Second, p.Timeout)
	assert.InDelta(t, 0.6, p.Pricing.OutputPer1K, 1e-9)
	assert.Equal(t, 3, cfg.Assembly.RecentChapters)
	assert.Equal(t, 4000, cfg.Assembly.MaxTokens)
	assert.Equal(t, 8, cfg.Assembly.FetchConcurrency)
	assert.Equal(t, 3, cfg.LLM.Retry.MaxRetries)
	assert.Equal(t, 15*time.Second, cfg.LLM.Stream.HeartbeatInterval)
	assert.Equal(t, "stream:llm:trace", cfg.Messaging.TraceStream.Name)
}

func TestLoadFromRejectsUnknownDefaultProvider(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", "llm:\n  default_provider: missing\n")

	_, err := LoadFrom(dir)
	assert.Error(t, err)
}

func TestLoadFromMissingFile(t *testing.T) {
	_, err := LoadFrom(t.TempDir())
	assert.Error(t, err)
}
