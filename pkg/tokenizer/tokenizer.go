// Package tokenizer 提供基于 tiktoken 的 token 计数
package tokenizer

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const encodingName = "cl100k_base"

var (
	once     sync.Once
	encoding *tiktoken.Tiktoken
)

func load() *tiktoken.Tiktoken {
	once.Do(func() {
		enc, err := tiktoken.GetEncoding(encodingName)
		if err == nil {
			encoding = enc
		}
	})
	return encoding
}

// Count 返回文本的 token 数；编码不可用时退化为 Estimate
func Count(text string) int {
	if text == "" {
		return 0
	}
	if enc := load(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return Estimate(text)
}

// Estimate 粗略估算 token 数，不依赖编码表。
// 中文按字计，其余按 4 字符一个 token。
func Estimate(text string) int {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	cjk, other := 0, 0
	for _, r := range trimmed {
		if r >= 0x2E80 && r <= 0x9FFF || r >= 0xF900 && r <= 0xFAFF || r >= 0xFF00 && r <= 0xFFEF {
			cjk++
			continue
		}
		other++
	}
	estimate := cjk + (other+3)/4
	if estimate == 0 {
		estimate = 1
	}
	return estimate
}

// FromLength 按字符数估算 token 数，用于只有长度没有正文的场景
func FromLength(runes int) int {
	if runes <= 0 {
		return 0
	}
	return (runes + 1) / 2
}

// Truncate 将文本截断到约 maxTokens 个 token
func Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 || text == "" {
		return text
	}
	if enc := load(); enc != nil {
		tokens := enc.Encode(text, nil, nil)
		if len(tokens) <= maxTokens {
			return text
		}
		return enc.Decode(tokens[:maxTokens])
	}
	limit := maxTokens * 2
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	return string([]rune(text)[:limit])
}
