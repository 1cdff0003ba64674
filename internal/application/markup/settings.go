package markup

import (
	"strings"

	"z-novel-context-api/internal/domain/entity"
)

// FormatSetting 输出设定条目
func FormatSetting(s *entity.Setting, opts Options) string {
	if s == nil {
		return ""
	}
	var attributes string
	if len(s.Attributes) > 0 {
		items := make([]string, 0, len(s.Attributes))
		for _, k := range sortedKeys(s.Attributes) {
			v := strings.TrimSpace(s.Attributes[k])
			if v == "" {
				continue
			}
			items = append(items, openTag("attribute", attrs(Attr{Key: "name", Value: k}))+Escape(v)+"</attribute>")
		}
		attributes = Block("attributes", nil, items...)
	}
	return Block("setting",
		attrs(Attr{Key: "type", Value: string(s.Type)}, opts.idAttr(s.ID)),
		Text("name", s.Name),
		Text("description", s.Description),
		attributes,
	)
}

// FormatSettingGroup 输出设定分组及其成员；没有成员时只输出名称与描述
func FormatSettingGroup(g *entity.SettingGroup, settings []*entity.Setting, opts Options) string {
	if g == nil {
		return ""
	}
	children := make([]string, 0, len(settings)+2)
	children = append(children, Text("name", g.Name), Text("description", g.Description))
	for _, s := range settings {
		children = append(children, FormatSetting(s, opts))
	}
	return Block("setting_group", attrs(opts.idAttr(g.ID)), children...)
}

// FormatSnippet 输出片段
func FormatSnippet(s *entity.Snippet, opts Options) string {
	if s == nil {
		return ""
	}
	content := strings.TrimSpace(plain(s.Content))
	if content == "" && strings.TrimSpace(s.Title) == "" {
		return ""
	}
	return Block("snippet",
		attrs(opts.idAttr(s.ID)),
		Text("title", s.Title),
		Text("content", content),
	)
}

// FormatNovelBasicInfo 输出小说基本信息
func FormatNovelBasicInfo(n *entity.Novel, opts Options) string {
	if n == nil {
		return ""
	}
	return Block("novel_basic_info",
		attrs(opts.idAttr(n.ID)),
		Text("title", n.Title),
		Text("author", n.Author),
		Text("genre", n.Genre),
		Text("tags", strings.Join(n.Tags, ", ")),
		Text("description", plain(n.Description)),
	)
}

// SelectedContext 把多个已格式化片段包进 selected_context；全部为空时返回空串
func SelectedContext(fragments []string) string {
	return Block("selected_context", nil, fragments...)
}
