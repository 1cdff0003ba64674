package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCount(t *testing.T) {
	assert.Equal(t, 0, Count(""))
	assert.Greater(t, Count("hello world"), 0)
	assert.Greater(t, Count(strings.Repeat("深夜的雨声里，", 20)), Count("深夜"))
}

func TestEstimate(t *testing.T) {
	assert.Equal(t, 0, Estimate("   "))
	assert.Equal(t, 2, Estimate("雨夜"))
	assert.Equal(t, 1, Estimate("abcd"))
	assert.Equal(t, 3, Estimate("雨夜abcd"))
}

func TestFromLength(t *testing.T) {
	assert.Equal(t, 0, FromLength(0))
	assert.Equal(t, 50, FromLength(100))
}

func TestTruncate(t *testing.T) {
	text := strings.Repeat("word ", 200)
	got := Truncate(text, 10)
	assert.Less(t, len(got), len(text))
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, text, Truncate(text, 0))
}
