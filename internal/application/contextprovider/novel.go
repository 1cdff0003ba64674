package contextprovider

import (
	"context"
	"strings"
	"unicode/utf8"

	"z-novel-context-api/internal/application/markup"
	"z-novel-context-api/internal/application/ordering"
	"z-novel-context-api/internal/application/richtext"
	"z-novel-context-api/internal/domain/entity"
)

// actProvider 单个幕
type actProvider struct {
	*loader
}

func (p *actProvider) Kind() Kind { return KindAct }

func (p *actProvider) actChapters(doc *document, actID string) []ordering.ChapterRef {
	refs := make([]ordering.ChapterRef, 0)
	for _, ref := range doc.refs {
		if ref.ActID == actID {
			refs = append(refs, ref)
		}
	}
	return refs
}

func (p *actProvider) Fetch(ctx context.Context, contextID string, req *Request) Fragment {
	if req == nil {
		req = &Request{}
	}
	doc := p.document(ctx, req.NovelID)
	if doc == nil {
		return emptyFragment(KindAct, contextID)
	}
	act := doc.novel.Structure.FindAct(refID(contextID, KindAct))
	if act == nil {
		return emptyFragment(KindAct, contextID)
	}

	chapters := p.chapters(ctx, doc, p.actChapters(doc, act.ID))
	out := markup.FormatAct(markup.Act{
		ID:          act.ID,
		Title:       act.Title,
		Description: act.Description,
		Chapters:    chapters,
	}, markup.DetailFull, formatOptions(doc, req))
	return Fragment{Markup: out, Kind: KindAct, ContextID: contextID}
}

func (p *actProvider) FetchForSubstitution(ctx context.Context, _ string, novelID, contentID string, params Params) string {
	if novelID == "" {
		novelID = params.NovelID
	}
	doc := p.document(ctx, novelID)
	if doc == nil {
		return ""
	}
	act := doc.novel.Structure.FindAct(refID(contentID, KindAct))
	if act == nil {
		return ""
	}
	refs := p.actChapters(doc, act.ID)
	sets := p.sceneSets(ctx, novelID, refs)
	parts := []string{strings.TrimSpace(act.Title)}
	for i, ref := range refs {
		parts = append(parts, chapterPlainText(ref.Chapter, ordering.ChapterOrder(doc.chapterOrders, ref.Chapter.ID), sets[i], markup.DetailContent))
	}
	return joinText(parts)
}

func (p *actProvider) EstimateLength(ctx context.Context, params Params) int {
	doc := p.document(ctx, params.NovelID)
	if doc == nil {
		return 0
	}
	act := doc.novel.Structure.FindAct(refID(params.ContentID, KindAct))
	if act == nil {
		return 0
	}
	total := utf8.RuneCountInString(act.Description)
	for _, set := range p.sceneSets(ctx, params.NovelID, p.actChapters(doc, act.ID)) {
		total += scenesLength(set, markup.DetailFull)
	}
	return total
}

// fullNovelProvider 整本正文或整本摘要
type fullNovelProvider struct {
	*loader
	kind   Kind
	detail markup.Detail
}

func (p *fullNovelProvider) Kind() Kind { return p.kind }

// build 先过滤无内容场景再按章节分组，避免输出空章节
func (p *fullNovelProvider) build(ctx context.Context, doc *document) markup.Novel {
	byChapter := make(map[string][]*entity.Scene)
	for _, s := range p.novelScenes(ctx, doc.novel.ID) {
		if s == nil || !toMarkupScene(s).Renderable(p.detail) {
			continue
		}
		byChapter[s.ChapterID] = append(byChapter[s.ChapterID], s)
	}

	n := markup.Novel{ID: doc.novel.ID, Title: doc.novel.Title}
	seen := make(map[string]struct{})
	for _, act := range doc.novel.Structure.Acts {
		ma := markup.Act{ID: act.ID, Title: act.Title, Description: act.Description}
		for _, ch := range act.Chapters {
			if _, ok := seen[ch.ID]; ok {
				continue
			}
			seen[ch.ID] = struct{}{}
			scenes, ok := byChapter[ch.ID]
			if !ok {
				continue
			}
			ma.Chapters = append(ma.Chapters, toMarkupChapter(ch, ordering.SortScenesBySequence(scenes)))
		}
		if len(ma.Chapters) > 0 {
			n.Acts = append(n.Acts, ma)
		}
	}
	return n
}

func (p *fullNovelProvider) Fetch(ctx context.Context, contextID string, req *Request) Fragment {
	if req == nil {
		req = &Request{}
	}
	novelID := req.NovelID
	if id := refID(contextID, p.kind); id != "" {
		novelID = id
	}
	doc := p.document(ctx, novelID)
	if doc == nil {
		return emptyFragment(p.kind, contextID)
	}

	n := p.build(ctx, doc)
	opts := formatOptions(doc, req)
	var out string
	if p.detail == markup.DetailSummary {
		out = markup.FormatFullNovelSummary(n, opts)
	} else {
		out = markup.FormatFullNovelText(n, opts)
	}
	return Fragment{Markup: out, Kind: p.kind, ContextID: contextID}
}

func (p *fullNovelProvider) FetchForSubstitution(ctx context.Context, _ string, novelID, _ string, params Params) string {
	if novelID == "" {
		novelID = params.NovelID
	}
	doc := p.document(ctx, novelID)
	if doc == nil {
		return ""
	}
	n := p.build(ctx, doc)
	parts := make([]string, 0)
	for _, act := range n.Acts {
		for _, ch := range act.Chapters {
			texts := []string{strings.TrimSpace(ch.Title)}
			for _, s := range ch.Scenes {
				raw := s.Content
				if p.detail == markup.DetailSummary {
					raw = s.Summary
				}
				texts = append(texts, strings.TrimSpace(richtext.ToPlainText(raw)))
			}
			parts = append(parts, joinText(texts))
		}
	}
	return joinText(parts)
}

func (p *fullNovelProvider) EstimateLength(ctx context.Context, params Params) int {
	return scenesLength(p.novelScenes(ctx, params.NovelID), p.detail)
}

// basicInfoProvider 小说基本信息
type basicInfoProvider struct {
	*loader
}

func (p *basicInfoProvider) Kind() Kind { return KindNovelBasicInfo }

func (p *basicInfoProvider) target(contextID, fallback string) string {
	if id := refID(contextID, KindNovelBasicInfo); id != "" {
		return id
	}
	return fallback
}

func (p *basicInfoProvider) Fetch(ctx context.Context, contextID string, req *Request) Fragment {
	if req == nil {
		req = &Request{}
	}
	n := p.novel(ctx, p.target(contextID, req.NovelID))
	if n == nil {
		return emptyFragment(KindNovelBasicInfo, contextID)
	}
	out := markup.FormatNovelBasicInfo(n, markup.Options{IncludeIDs: req.IncludeIDs})
	return Fragment{Markup: out, Kind: KindNovelBasicInfo, ContextID: contextID}
}

func (p *basicInfoProvider) FetchForSubstitution(ctx context.Context, _ string, novelID, contentID string, params Params) string {
	if novelID == "" {
		novelID = params.NovelID
	}
	n := p.novel(ctx, p.target(contentID, novelID))
	if n == nil {
		return ""
	}
	lines := []string{
		labeled("标题", n.Title),
		labeled("作者", n.Author),
		labeled("类型", n.Genre),
		labeled("标签", strings.Join(n.Tags, "、")),
		labeled("简介", richtext.ToPlainText(n.Description)),
	}
	return joinLines(lines)
}

func (p *basicInfoProvider) EstimateLength(ctx context.Context, params Params) int {
	n := p.novel(ctx, p.target(params.ContentID, params.NovelID))
	if n == nil {
		return 0
	}
	total := utf8.RuneCountInString(n.Title) + utf8.RuneCountInString(n.Author) + utf8.RuneCountInString(n.Genre)
	for _, tag := range n.Tags {
		total += utf8.RuneCountInString(tag)
	}
	return total + richtext.PlainLength(n.Description)
}

func labeled(label, value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return ""
	}
	return label + "：" + v
}

func joinLines(lines []string) string {
	kept := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}

// joinText 以空行连接非空段落
func joinText(parts []string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}
