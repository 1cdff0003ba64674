// Package markup 把规范化后的内容片段序列化为嵌套标签格式。
//
// 规则：空字段不输出标签；自由文本字段去除首尾空白后前后各加一个换行；
// 已经是标签格式的上下文值原样内嵌，其余值转义五个标准实体。
package markup

import (
	"regexp"
	"sort"
	"strings"
)

var (
	closingTagPattern = regexp.MustCompile(`</[a-zA-Z][a-zA-Z0-9_-]*\s*>`)
	openTagPattern    = regexp.MustCompile(`<[a-zA-Z][a-zA-Z0-9_-]*(?:\s[^<>]*)?/?>`)

	escaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
)

// Escape 转义五个标准实体
func Escape(s string) string {
	return escaper.Replace(s)
}

// LooksLikeMarkup 判断值是否已经是标签格式：同时包含 < 与 >，且存在闭合标签或开始标签。
// 这是模式匹配，包含尖括号的普通文本可能被误判。
func LooksLikeMarkup(s string) bool {
	if !strings.Contains(s, "<") || !strings.Contains(s, ">") {
		return false
	}
	return closingTagPattern.MatchString(s) || openTagPattern.MatchString(s)
}

// Attr 标签属性
type Attr struct {
	Key   string
	Value string
}

// attrs 过滤空值属性
func attrs(pairs ...Attr) []Attr {
	out := make([]Attr, 0, len(pairs))
	for _, a := range pairs {
		if strings.TrimSpace(a.Value) == "" {
			continue
		}
		out = append(out, a)
	}
	return out
}

func openTag(name string, as []Attr) string {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(name)
	for _, a := range as {
		b.WriteByte(' ')
		b.WriteString(a.Key)
		b.WriteString(`="`)
		b.WriteString(Escape(a.Value))
		b.WriteByte('"')
	}
	b.WriteByte('>')
	return b.String()
}

// Text 自由文本元素；空值返回空串
func Text(name, value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return ""
	}
	return "<" + name + ">\n" + Escape(v) + "\n</" + name + ">"
}

// Context 上下文元素：已是标签格式的值原样内嵌，否则转义
func Context(name, value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return ""
	}
	if !LooksLikeMarkup(v) {
		v = Escape(v)
	}
	return "<" + name + ">\n" + v + "\n</" + name + ">"
}

// Block 容器元素；所有子元素为空时返回空串
func Block(name string, as []Attr, children ...string) string {
	body := joinNonEmpty(children)
	if body == "" {
		return ""
	}
	return openTag(name, as) + "\n" + body + "\n</" + name + ">"
}

// Envelope 容器元素；没有子元素时仍输出空的合法外壳
func Envelope(name string, as []Attr, children ...string) string {
	body := joinNonEmpty(children)
	if body == "" {
		return openTag(name, as) + "</" + name + ">"
	}
	return openTag(name, as) + "\n" + body + "\n</" + name + ">"
}

func joinNonEmpty(parts []string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, "\n")
}

// sortedKeys 属性字典按键排序，保证输出确定
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
