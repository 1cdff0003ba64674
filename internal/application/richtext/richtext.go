// Package richtext 把编辑器富文本（插入操作列表 JSON、HTML、纯文本）转换为纯文本。
package richtext

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kaptinlin/jsonrepair"
)

var (
	tagPattern       = regexp.MustCompile(`<(?:[a-zA-Z][a-zA-Z0-9-]*(?:\s[^<>]*)?/?|/[a-zA-Z][a-zA-Z0-9-]*\s*|!--[\s\S]*?--|![a-zA-Z][^<>]*)>`)
	lineBreakPattern = regexp.MustCompile(`(?i)<br\s*/?>|</(?:p|div|li|h[1-6]|blockquote)\s*>`)
	blankRunPattern  = regexp.MustCompile(`\n{3,}`)

	entityReplacer = strings.NewReplacer(
		"&nbsp;", " ",
		"&lt;", "<",
		"&gt;", ">",
		"&amp;", "&",
		"&quot;", `"`,
		"&apos;", "'",
		"&#39;", "'",
	)
)

// op 插入操作；Insert 为字符串时是文本，为对象时是嵌入内容（图片、分割线等）
type op struct {
	Insert     json.RawMessage `json:"insert"`
	Attributes map[string]any  `json:"attributes,omitempty"`
}

type opsWrapper struct {
	Ops []op `json:"ops"`
}

// ToPlainText 转换为纯文本，任何输入都不会报错。
// 优先级：操作列表 > HTML > 原样返回。
func ToPlainText(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return input
	}
	if looksLikeOps(trimmed) {
		if text, ok := decodeOps(trimmed); ok {
			return text
		}
	}
	if tagPattern.MatchString(input) {
		return stripHTML(input)
	}
	return input
}

// IsOpList 判断输入是否为可解析的操作列表
func IsOpList(input string) bool {
	trimmed := strings.TrimSpace(input)
	if !looksLikeOps(trimmed) {
		return false
	}
	_, ok := decodeOps(trimmed)
	return ok
}

// PlainLength 估算文本长度（字符数）。
// 仅在原文是操作列表时解码，避免把 JSON 结构计入长度；HTML 与纯文本直接按原文计。
func PlainLength(input string) int {
	if input == "" {
		return 0
	}
	if IsOpList(input) {
		return utf8.RuneCountInString(ToPlainText(input))
	}
	return utf8.RuneCountInString(input)
}

// IsBlank 转换后是否没有可见内容
func IsBlank(input string) bool {
	return strings.TrimSpace(ToPlainText(input)) == ""
}

// looksLikeOps 只看开头，截断的内容也交给 decodeOps 修复
func looksLikeOps(s string) bool {
	switch {
	case strings.HasPrefix(s, "["):
		rest := strings.TrimLeft(s[1:], " \t\r\n")
		return strings.HasPrefix(rest, "{") || strings.HasPrefix(rest, "]")
	case strings.HasPrefix(s, "{"):
		return strings.Contains(s, `"ops"`)
	default:
		return false
	}
}

func decodeOps(s string) (string, bool) {
	if text, ok := decodeStrict(s); ok {
		return text, true
	}
	return decodeLoose(s)
}

// decodeStrict 严格按操作结构解析，每个元素都必须带 insert
func decodeStrict(s string) (string, bool) {
	var ops []op
	if strings.HasPrefix(s, "{") {
		var w opsWrapper
		if err := json.Unmarshal([]byte(s), &w); err != nil || w.Ops == nil {
			return "", false
		}
		ops = w.Ops
	} else if err := json.Unmarshal([]byte(s), &ops); err != nil {
		return "", false
	}

	var b strings.Builder
	for _, o := range ops {
		if len(o.Insert) == 0 {
			return "", false
		}
		var text string
		if err := json.Unmarshal(o.Insert, &text); err == nil {
			b.WriteString(text)
			continue
		}
		if string(o.Insert) == "null" {
			return "", false
		}
		b.WriteByte('\n')
	}
	return b.String(), true
}

// decodeLoose 修复后按通用键值记录解析，只提取 insert 字段
func decodeLoose(s string) (string, bool) {
	repaired, err := jsonrepair.JSONRepair(s)
	if err != nil {
		return "", false
	}

	var v any
	if err := json.Unmarshal([]byte(repaired), &v); err != nil {
		return "", false
	}

	var records []any
	switch t := v.(type) {
	case []any:
		records = t
	case map[string]any:
		ops, ok := t["ops"].([]any)
		if !ok {
			return "", false
		}
		records = ops
	default:
		return "", false
	}

	var b strings.Builder
	found := false
	for _, r := range records {
		rec, ok := r.(map[string]any)
		if !ok {
			continue
		}
		insert, ok := rec["insert"]
		if !ok || insert == nil {
			continue
		}
		found = true
		if text, ok := insert.(string); ok {
			b.WriteString(text)
			continue
		}
		b.WriteByte('\n')
	}
	if !found {
		return "", false
	}
	return b.String(), true
}

func stripHTML(s string) string {
	s = lineBreakPattern.ReplaceAllString(s, "\n")
	s = tagPattern.ReplaceAllString(s, "")
	s = entityReplacer.Replace(s)
	s = blankRunPattern.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
