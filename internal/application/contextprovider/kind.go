package contextprovider

import "strings"

// Kind 内容类型，每种类型对应唯一一个 Provider
type Kind string

const (
	KindScene                   Kind = "scene"
	KindChapter                 Kind = "chapter"
	KindAct                     Kind = "act"
	KindFullNovelText           Kind = "full_novel_text"
	KindFullNovelSummary        Kind = "full_novel_summary"
	KindRecentChaptersContent   Kind = "recent_chapters_content"
	KindRecentChaptersSummary   Kind = "recent_chapters_summary"
	KindPreviousChaptersContent Kind = "previous_chapters_content"
	KindPreviousChaptersSummary Kind = "previous_chapters_summary"
	KindCurrentChapterContent   Kind = "current_chapter_content"
	KindCurrentChapterSummary   Kind = "current_chapter_summary"
	KindCurrentSceneContent     Kind = "current_scene_content"
	KindCurrentSceneSummary     Kind = "current_scene_summary"
	KindSetting                 Kind = "setting"
	KindSettingGroup            Kind = "setting_group"
	KindSnippet                 Kind = "snippet"
	KindNovelBasicInfo          Kind = "novel_basic_info"
)

// idPrefixes 可被剥离的 ID 前缀，较长的放前面
var idPrefixes = []string{
	"setting_group_", "setting_group:",
	"full_novel_text_", "full_novel_summary_",
	"flat_",
	"act_", "act:",
	"chapter_", "chapter:",
	"scene_", "scene:",
	"setting_", "setting:",
	"group_", "group:",
	"snippet_", "snippet:",
	"novel_", "novel:",
}

// NormalizeID 去掉 ID 上的一到两层类型前缀。
// 例如 "chapter_flat_abc"、"flat_chapter_abc"、"chapter:abc" 都得到 "abc"。
func NormalizeID(raw string) string {
	id := strings.TrimSpace(raw)
	for i := 0; i < 2; i++ {
		stripped := false
		for _, p := range idPrefixes {
			if strings.HasPrefix(id, p) && len(id) > len(p) {
				id = id[len(p):]
				stripped = true
				break
			}
		}
		if !stripped {
			break
		}
	}
	return id
}

// ContextRef 一个被选中的上下文
type ContextRef struct {
	Kind Kind   `json:"type"`
	ID   string `json:"id,omitempty"`
}

// String 返回 "kind:id" 或 "kind"
func (r ContextRef) String() string {
	if r.ID == "" {
		return string(r.Kind)
	}
	return string(r.Kind) + ":" + r.ID
}

// ParseRef 解析 "kind"、"kind:id" 形式的上下文标识
func ParseRef(s string) ContextRef {
	s = strings.TrimSpace(s)
	kind, id, found := strings.Cut(s, ":")
	if !found {
		return ContextRef{Kind: Kind(s)}
	}
	return ContextRef{Kind: Kind(strings.TrimSpace(kind)), ID: strings.TrimSpace(id)}
}

// refID 解析上下文标识中的实体 ID；标识就是类型名本身时返回空
func refID(contextID string, kind Kind) string {
	raw := strings.TrimSpace(contextID)
	if raw == "" || raw == string(kind) {
		return ""
	}
	if ref := ParseRef(raw); ref.Kind == kind {
		raw = ref.ID
	}
	return NormalizeID(raw)
}
