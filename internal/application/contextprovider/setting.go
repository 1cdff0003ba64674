package contextprovider

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"z-novel-context-api/internal/application/markup"
	"z-novel-context-api/internal/application/richtext"
	"z-novel-context-api/internal/domain/entity"
)

// settingProvider 单个设定
type settingProvider struct {
	*loader
}

func (p *settingProvider) Kind() Kind { return KindSetting }

func (p *settingProvider) Fetch(ctx context.Context, contextID string, req *Request) Fragment {
	s := p.setting(ctx, refID(contextID, KindSetting))
	if s == nil {
		return emptyFragment(KindSetting, contextID)
	}
	out := markup.FormatSetting(s, markup.Options{IncludeIDs: req != nil && req.IncludeIDs})
	return Fragment{Markup: out, Kind: KindSetting, ContextID: contextID}
}

func (p *settingProvider) FetchForSubstitution(ctx context.Context, _, _ string, contentID string, _ Params) string {
	return settingPlainText(p.setting(ctx, refID(contentID, KindSetting)))
}

func (p *settingProvider) EstimateLength(ctx context.Context, params Params) int {
	return settingLength(p.setting(ctx, refID(params.ContentID, KindSetting)))
}

// settingGroupProvider 设定分组及其成员
type settingGroupProvider struct {
	*loader
}

func (p *settingGroupProvider) Kind() Kind { return KindSettingGroup }

func (p *settingGroupProvider) Fetch(ctx context.Context, contextID string, req *Request) Fragment {
	g := p.settingGroup(ctx, refID(contextID, KindSettingGroup))
	if g == nil {
		return emptyFragment(KindSettingGroup, contextID)
	}
	members := p.settings(ctx, g.SettingIDs)
	out := markup.FormatSettingGroup(g, members, markup.Options{IncludeIDs: req != nil && req.IncludeIDs})
	return Fragment{Markup: out, Kind: KindSettingGroup, ContextID: contextID}
}

func (p *settingGroupProvider) FetchForSubstitution(ctx context.Context, _, _ string, contentID string, _ Params) string {
	g := p.settingGroup(ctx, refID(contentID, KindSettingGroup))
	if g == nil {
		return ""
	}
	parts := []string{joinLines([]string{labeled("分组", g.Name), strings.TrimSpace(g.Description)})}
	for _, s := range p.settings(ctx, g.SettingIDs) {
		parts = append(parts, settingPlainText(s))
	}
	return joinText(parts)
}

func (p *settingGroupProvider) EstimateLength(ctx context.Context, params Params) int {
	g := p.settingGroup(ctx, refID(params.ContentID, KindSettingGroup))
	if g == nil {
		return 0
	}
	total := utf8.RuneCountInString(g.Name) + utf8.RuneCountInString(g.Description)
	for _, s := range p.settings(ctx, g.SettingIDs) {
		total += settingLength(s)
	}
	return total
}

func settingPlainText(s *entity.Setting) string {
	if s == nil {
		return ""
	}
	lines := []string{labeled(strings.TrimSpace(s.Name), richtext.ToPlainText(s.Description))}
	if lines[0] == "" {
		lines[0] = strings.TrimSpace(s.Name)
	}
	for _, k := range sortedAttributeKeys(s.Attributes) {
		lines = append(lines, labeled(k, s.Attributes[k]))
	}
	return joinLines(lines)
}

func settingLength(s *entity.Setting) int {
	if s == nil {
		return 0
	}
	total := utf8.RuneCountInString(s.Name) + richtext.PlainLength(s.Description)
	for k, v := range s.Attributes {
		total += utf8.RuneCountInString(k) + utf8.RuneCountInString(v)
	}
	return total
}

// snippetProvider 片段
type snippetProvider struct {
	*loader
}

func (p *snippetProvider) Kind() Kind { return KindSnippet }

func (p *snippetProvider) Fetch(ctx context.Context, contextID string, req *Request) Fragment {
	s := p.snippet(ctx, refID(contextID, KindSnippet))
	if s == nil {
		return emptyFragment(KindSnippet, contextID)
	}
	out := markup.FormatSnippet(s, markup.Options{IncludeIDs: req != nil && req.IncludeIDs})
	return Fragment{Markup: out, Kind: KindSnippet, ContextID: contextID}
}

func (p *snippetProvider) FetchForSubstitution(ctx context.Context, _, _ string, contentID string, _ Params) string {
	s := p.snippet(ctx, refID(contentID, KindSnippet))
	if s == nil {
		return ""
	}
	return strings.TrimSpace(richtext.ToPlainText(s.Content))
}

func (p *snippetProvider) EstimateLength(ctx context.Context, params Params) int {
	s := p.snippet(ctx, refID(params.ContentID, KindSnippet))
	if s == nil {
		return 0
	}
	return utf8.RuneCountInString(s.Title) + richtext.PlainLength(s.Content)
}

func sortedAttributeKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
