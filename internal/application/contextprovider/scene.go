package contextprovider

import (
	"context"
	"strings"

	"z-novel-context-api/internal/application/markup"
	"z-novel-context-api/internal/application/ordering"
	"z-novel-context-api/internal/application/richtext"
	"z-novel-context-api/internal/domain/entity"
)

// sceneProvider 单个场景；current 为 true 时默认取请求中的当前场景，并在外层包一层类型标签
type sceneProvider struct {
	*loader
	kind    Kind
	detail  markup.Detail
	current bool
}

func (p *sceneProvider) Kind() Kind { return p.kind }

func (p *sceneProvider) sceneID(contextID string, currentSceneID string) string {
	if id := refID(contextID, p.kind); id != "" {
		return id
	}
	if p.current {
		return NormalizeID(currentSceneID)
	}
	return ""
}

func (p *sceneProvider) Fetch(ctx context.Context, contextID string, req *Request) Fragment {
	if req == nil {
		req = &Request{}
	}
	s := p.scene(ctx, p.sceneID(contextID, req.CurrentSceneID))
	if s == nil {
		return emptyFragment(p.kind, contextID)
	}
	ms := toMarkupScene(s)
	if !ms.Renderable(p.detail) {
		return emptyFragment(p.kind, contextID)
	}

	novelID := s.NovelID
	if novelID == "" {
		novelID = req.NovelID
	}
	doc := p.document(ctx, novelID)
	out := markup.FormatScene(ms, p.orderTag(ctx, doc, s), p.detail, formatOptions(doc, req))
	if p.current {
		out = markup.Block(string(p.kind), nil, out)
	}
	return Fragment{Markup: out, Kind: p.kind, ContextID: contextID}
}

// orderTag 场景的 "<章节序号>-<章内序号>"；无法确定时返回空
func (p *sceneProvider) orderTag(ctx context.Context, doc *document, s *entity.Scene) string {
	if doc == nil || s.ChapterID == "" {
		return ""
	}
	chapterOrder := ordering.ChapterOrder(doc.chapterOrders, s.ChapterID)
	if chapterOrder == ordering.UnknownOrder {
		return ""
	}
	node, _ := doc.novel.Structure.FindChapter(s.ChapterID)
	if node == nil {
		return ""
	}
	index := 0
	for _, sibling := range p.chapterScenes(ctx, doc.novel.ID, *node) {
		if !toMarkupScene(sibling).Renderable(markup.DetailFull) {
			continue
		}
		index++
		if sibling.ID == s.ID {
			return ordering.SceneOrderTag(chapterOrder, index)
		}
	}
	return ""
}

func (p *sceneProvider) FetchForSubstitution(ctx context.Context, _ string, _ string, contentID string, params Params) string {
	s := p.scene(ctx, p.sceneID(contentID, params.CurrentSceneID))
	if s == nil {
		return ""
	}
	return scenePlainText(s, p.detail)
}

func (p *sceneProvider) EstimateLength(ctx context.Context, params Params) int {
	return sceneLength(p.scene(ctx, p.sceneID(params.ContentID, params.CurrentSceneID)), p.detail)
}

func scenePlainText(s *entity.Scene, detail markup.Detail) string {
	summary := strings.TrimSpace(richtext.ToPlainText(s.Summary))
	content := strings.TrimSpace(richtext.ToPlainText(s.Content))
	switch detail {
	case markup.DetailSummary:
		return summary
	case markup.DetailContent:
		return content
	default:
		if content == "" {
			return summary
		}
		return content
	}
}
