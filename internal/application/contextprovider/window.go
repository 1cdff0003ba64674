package contextprovider

import (
	"context"
	"sort"
	"strings"

	"z-novel-context-api/internal/application/markup"
	"z-novel-context-api/internal/application/ordering"
)

type windowMode int

const (
	windowRecent windowMode = iota
	windowPrevious
)

// RecentWindow 当前章节及其之前共 n 章：[max(0, idx-(n-1)), idx]；idx 未知时取前 n 章
func RecentWindow(refs []ordering.ChapterRef, idx, n int) []ordering.ChapterRef {
	if n <= 0 || len(refs) == 0 {
		return nil
	}
	if idx < 0 || idx >= len(refs) {
		if n > len(refs) {
			n = len(refs)
		}
		return refs[:n]
	}
	start := idx - (n - 1)
	if start < 0 {
		start = 0
	}
	return refs[start : idx+1]
}

// PreviousWindow 当前章节之前的全部章节：[0, idx)；idx 未知时为空
func PreviousWindow(refs []ordering.ChapterRef, idx int) []ordering.ChapterRef {
	if idx <= 0 || idx > len(refs) {
		return nil
	}
	return refs[:idx]
}

// chapterWindowProvider 最近 N 章 / 之前全部章节
type chapterWindowProvider struct {
	*loader
	kind     Kind
	detail   markup.Detail
	mode     windowMode
	defaultN int
}

func (p *chapterWindowProvider) Kind() Kind { return p.kind }

func (p *chapterWindowProvider) anchor(contextID, currentChapterID string) string {
	if id := refID(contextID, p.kind); id != "" {
		return id
	}
	return NormalizeID(currentChapterID)
}

// window 在按序号排好的章节序列上取窗口
func (p *chapterWindowProvider) window(doc *document, anchor string, n int) []ordering.ChapterRef {
	if n <= 0 {
		n = p.defaultN
	}
	refs := make([]ordering.ChapterRef, len(doc.refs))
	copy(refs, doc.refs)
	sort.SliceStable(refs, func(i, j int) bool {
		return doc.chapterOrders[refs[i].Chapter.ID] < doc.chapterOrders[refs[j].Chapter.ID]
	})

	idx := -1
	if anchor != "" {
		idx = ordering.IndexOf(refs, anchor)
	}
	if p.mode == windowPrevious {
		return PreviousWindow(refs, idx)
	}
	return RecentWindow(refs, idx, n)
}

func (p *chapterWindowProvider) Fetch(ctx context.Context, contextID string, req *Request) Fragment {
	if req == nil {
		req = &Request{}
	}
	doc := p.document(ctx, req.NovelID)
	if doc == nil {
		return emptyFragment(p.kind, contextID)
	}
	refs := p.window(doc, p.anchor(contextID, req.CurrentChapterID), req.RecentChapters)
	if len(refs) == 0 {
		return emptyFragment(p.kind, contextID)
	}

	chapters := p.chapters(ctx, doc, refs)
	body := markup.FormatChapters(chapters, p.detail, formatOptions(doc, req))
	return Fragment{Markup: markup.Block(string(p.kind), nil, body), Kind: p.kind, ContextID: contextID}
}

func (p *chapterWindowProvider) FetchForSubstitution(ctx context.Context, _ string, novelID, contentID string, params Params) string {
	if novelID == "" {
		novelID = params.NovelID
	}
	doc := p.document(ctx, novelID)
	if doc == nil {
		return ""
	}
	refs := p.window(doc, p.anchor(contentID, params.CurrentChapterID), params.RecentChapters)
	sets := p.sceneSets(ctx, novelID, refs)

	parts := make([]string, 0, len(refs))
	for i, ref := range refs {
		text := chapterPlainText(ref.Chapter, ordering.ChapterOrder(doc.chapterOrders, ref.Chapter.ID), sets[i], p.detail)
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}

func (p *chapterWindowProvider) EstimateLength(ctx context.Context, params Params) int {
	doc := p.document(ctx, params.NovelID)
	if doc == nil {
		return 0
	}
	refs := p.window(doc, p.anchor(params.ContentID, params.CurrentChapterID), params.RecentChapters)
	total := 0
	for _, set := range p.sceneSets(ctx, params.NovelID, refs) {
		total += scenesLength(set, p.detail)
	}
	return total
}
