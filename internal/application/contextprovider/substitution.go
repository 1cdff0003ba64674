package contextprovider

import (
	"context"
	"regexp"
)

// placeholderPattern 匹配 {{kind}} 与 {{kind:id}}
var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-z_]+)(?::([^{}\s]+))?\s*\}\}`)

// Substitutor 把文本中的内容占位符替换成对应内容的纯文本
type Substitutor struct {
	registry *Registry
}

// NewSubstitutor 创建替换器
func NewSubstitutor(registry *Registry) *Substitutor {
	return &Substitutor{registry: registry}
}

// SubstitutionRequest 替换参数
type SubstitutionRequest struct {
	UserID string
	Params Params
}

// Resolve 替换占位符；未知类型的占位符保持原样，同一占位符只查询一次
func (s *Substitutor) Resolve(ctx context.Context, text string, req SubstitutionRequest) string {
	if !placeholderPattern.MatchString(text) {
		return text
	}
	resolved := make(map[string]string)
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		if v, ok := resolved[match]; ok {
			return v
		}
		groups := placeholderPattern.FindStringSubmatch(match)
		p, ok := s.registry.Get(Kind(groups[1]))
		if !ok {
			resolved[match] = match
			return match
		}
		params := req.Params
		params.ContentID = groups[2]
		v := p.FetchForSubstitution(ctx, req.UserID, params.NovelID, groups[2], params)
		resolved[match] = v
		return v
	})
}

// Placeholders 列出文本中的占位符引用
func Placeholders(text string) []ContextRef {
	matches := placeholderPattern.FindAllStringSubmatch(text, -1)
	refs := make([]ContextRef, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, ContextRef{Kind: Kind(m[1]), ID: m[2]})
	}
	return refs
}
