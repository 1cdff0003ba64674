package contextprovider

import (
	"context"
	"fmt"
	"strings"

	"z-novel-context-api/internal/application/markup"
	"z-novel-context-api/internal/application/ordering"
	"z-novel-context-api/internal/domain/entity"
)

// chapterProvider 单个章节；current 为 true 时默认取请求中的当前章节
type chapterProvider struct {
	*loader
	kind    Kind
	detail  markup.Detail
	current bool
}

func (p *chapterProvider) Kind() Kind { return p.kind }

func (p *chapterProvider) chapterID(contextID, currentChapterID string) string {
	if id := refID(contextID, p.kind); id != "" {
		return id
	}
	if p.current {
		return NormalizeID(currentChapterID)
	}
	return ""
}

// node 在结构树中定位章节；小说不存在时返回仅含 ID 的节点
func (p *chapterProvider) node(doc *document, chapterID string) (entity.ChapterNode, bool) {
	if doc == nil {
		return entity.ChapterNode{ID: chapterID}, false
	}
	n, _ := doc.novel.Structure.FindChapter(chapterID)
	if n == nil {
		return entity.ChapterNode{ID: chapterID}, false
	}
	return *n, true
}

func (p *chapterProvider) Fetch(ctx context.Context, contextID string, req *Request) Fragment {
	if req == nil {
		req = &Request{}
	}
	id := p.chapterID(contextID, req.CurrentChapterID)
	if id == "" {
		return emptyFragment(p.kind, contextID)
	}
	doc := p.document(ctx, req.NovelID)
	node, ok := p.node(doc, id)
	if !ok {
		return emptyFragment(p.kind, contextID)
	}

	scenes := p.chapterScenes(ctx, doc.novel.ID, node)
	out := markup.FormatChapter(toMarkupChapter(node, scenes), p.detail, formatOptions(doc, req))
	if p.current {
		out = markup.Block(string(p.kind), nil, out)
	}
	return Fragment{Markup: out, Kind: p.kind, ContextID: contextID}
}

func (p *chapterProvider) FetchForSubstitution(ctx context.Context, _ string, novelID, contentID string, params Params) string {
	id := p.chapterID(contentID, params.CurrentChapterID)
	if id == "" {
		return ""
	}
	if novelID == "" {
		novelID = params.NovelID
	}
	doc := p.document(ctx, novelID)
	node, _ := p.node(doc, id)
	scenes := p.chapterScenes(ctx, novelID, node)
	order := ordering.UnknownOrder
	if doc != nil {
		order = ordering.ChapterOrder(doc.chapterOrders, id)
	}
	return chapterPlainText(node, order, scenes, p.detail)
}

func (p *chapterProvider) EstimateLength(ctx context.Context, params Params) int {
	id := p.chapterID(params.ContentID, params.CurrentChapterID)
	if id == "" {
		return 0
	}
	node, _ := p.node(p.document(ctx, params.NovelID), id)
	return scenesLength(p.chapterScenes(ctx, params.NovelID, node), p.detail)
}

// chapterPlainText 章节纯文本：标题行加各场景文本，空场景跳过
func chapterPlainText(node entity.ChapterNode, order int, scenes []*entity.Scene, detail markup.Detail) string {
	parts := make([]string, 0, len(scenes)+1)
	heading := strings.TrimSpace(node.Title)
	if order > 0 {
		heading = strings.TrimSpace(fmt.Sprintf("第%d章 %s", order, heading))
	}
	if heading != "" {
		parts = append(parts, heading)
	}
	for _, s := range scenes {
		if text := scenePlainText(s, detail); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 1 && heading != "" {
		return ""
	}
	return strings.Join(parts, "\n\n")
}
