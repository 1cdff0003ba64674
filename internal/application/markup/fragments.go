package markup

import (
	"strconv"
	"strings"

	"z-novel-context-api/internal/application/ordering"
	"z-novel-context-api/internal/application/richtext"
)

// Detail 场景输出哪些文本
type Detail int

const (
	// DetailFull 摘要与正文
	DetailFull Detail = iota
	// DetailContent 仅正文
	DetailContent
	// DetailSummary 仅摘要
	DetailSummary
)

// Options 格式化选项
type Options struct {
	// IncludeIDs 是否输出 id 属性
	IncludeIDs bool
	// ChapterOrders 章节序号；缺失的章节按首次出现顺序自增编号
	ChapterOrders ordering.OrderMap
	// ActOrders 幕序号；规则同上
	ActOrders ordering.OrderMap
}

// Scene 场景片段，Content / Summary 可为富文本原文
type Scene struct {
	ID      string
	Title   string
	Content string
	Summary string
}

// Chapter 章节片段
type Chapter struct {
	ID      string
	Title   string
	Summary string
	Scenes  []Scene
}

// Act 幕片段
type Act struct {
	ID          string
	Title       string
	Description string
	Chapters    []Chapter
}

// Novel 整本小说
type Novel struct {
	ID    string
	Title string
	Acts  []Act
}

func (s Scene) plainContent() string {
	return strings.TrimSpace(richtext.ToPlainText(s.Content))
}

func (s Scene) plainSummary() string {
	return strings.TrimSpace(richtext.ToPlainText(s.Summary))
}

// Renderable 场景在给定 detail 下是否有可输出内容
func (s Scene) Renderable(detail Detail) bool {
	switch detail {
	case DetailContent:
		return s.plainContent() != ""
	case DetailSummary:
		return s.plainSummary() != ""
	default:
		return s.plainContent() != "" || s.plainSummary() != ""
	}
}

// FilterScenes 去掉没有可输出内容的场景
func FilterScenes(scenes []Scene, detail Detail) []Scene {
	out := make([]Scene, 0, len(scenes))
	for _, s := range scenes {
		if s.Renderable(detail) {
			out = append(out, s)
		}
	}
	return out
}

// sequencer 章节/幕编号：优先使用外部序号，否则取未被占用的最小序号。
// 外部序号全部预先占位，部分有序的输入也不会出现重复编号。
type sequencer struct {
	orders ordering.OrderMap
	used   map[int]bool
	last   int
}

func (q *sequencer) next(id string) int {
	if v, ok := q.orders[id]; ok && v > 0 {
		return v
	}
	if q.used == nil {
		q.used = make(map[int]bool, len(q.orders))
		for _, v := range q.orders {
			q.used[v] = true
		}
	}
	for {
		q.last++
		if !q.used[q.last] {
			q.used[q.last] = true
			return q.last
		}
	}
}

func (o Options) idAttr(id string) Attr {
	if !o.IncludeIDs {
		return Attr{}
	}
	return Attr{Key: "id", Value: id}
}

// FormatScene 输出单个场景，order 为场景序号标签，可为空
func FormatScene(s Scene, orderTag string, detail Detail, opts Options) string {
	if !s.Renderable(detail) {
		return ""
	}
	var summary, content string
	if detail != DetailContent {
		summary = Text("summary", s.plainSummary())
	}
	if detail != DetailSummary {
		content = Text("content", s.plainContent())
	}
	return Block("scene",
		attrs(Attr{Key: "order", Value: orderTag}, opts.idAttr(s.ID)),
		Text("title", s.Title),
		summary,
		content,
	)
}

// FormatChapter 输出章节。场景先过滤再编号，章内序号从 1 开始；
// 过滤后没有场景时仍输出章节外壳。
func FormatChapter(ch Chapter, detail Detail, opts Options) string {
	q := &sequencer{orders: opts.ChapterOrders}
	return formatChapter(ch, q.next(ch.ID), detail, opts)
}

func formatChapter(ch Chapter, order int, detail Detail, opts Options) string {
	scenes := FilterScenes(ch.Scenes, detail)
	parts := make([]string, 0, len(scenes)+2)
	parts = append(parts, Text("title", ch.Title))
	if detail == DetailSummary {
		parts = append(parts, Text("summary", richtext.ToPlainText(ch.Summary)))
	}
	for i, s := range scenes {
		parts = append(parts, FormatScene(s, ordering.SceneOrderTag(order, i+1), detail, opts))
	}
	return Envelope("chapter",
		attrs(Attr{Key: "order", Value: strconv.Itoa(order)}, opts.idAttr(ch.ID)),
		parts...,
	)
}

// FormatChapters 输出多个章节，没有可输出场景的章节被跳过；列表为空返回空串
func FormatChapters(chapters []Chapter, detail Detail, opts Options) string {
	return formatChapterList(chapters, detail, opts, &sequencer{orders: opts.ChapterOrders})
}

func formatChapterList(chapters []Chapter, detail Detail, opts Options, q *sequencer) string {
	parts := make([]string, 0, len(chapters))
	for _, ch := range chapters {
		order := q.next(ch.ID)
		if len(FilterScenes(ch.Scenes, detail)) == 0 {
			continue
		}
		parts = append(parts, formatChapter(ch, order, detail, opts))
	}
	return joinNonEmpty(parts)
}

// FormatAct 输出幕及其章节；没有可输出章节时返回空串
func FormatAct(act Act, detail Detail, opts Options) string {
	q := &sequencer{orders: opts.ActOrders}
	return formatAct(act, q.next(act.ID), detail, opts, &sequencer{orders: opts.ChapterOrders})
}

func formatAct(act Act, order int, detail Detail, opts Options, chapterSeq *sequencer) string {
	chapters := formatChapterList(act.Chapters, detail, opts, chapterSeq)
	if chapters == "" {
		return ""
	}
	return Block("act",
		attrs(Attr{Key: "order", Value: strconv.Itoa(order)}, opts.idAttr(act.ID)),
		Text("title", act.Title),
		Text("description", act.Description),
		chapters,
	)
}

// FormatFullNovelText 整本正文
func FormatFullNovelText(n Novel, opts Options) string {
	return formatNovel("full_novel_text", n, DetailContent, opts)
}

// FormatFullNovelSummary 整本摘要
func FormatFullNovelSummary(n Novel, opts Options) string {
	return formatNovel("full_novel_summary", n, DetailSummary, opts)
}

func formatNovel(name string, n Novel, detail Detail, opts Options) string {
	actSeq := &sequencer{orders: opts.ActOrders}
	chapterSeq := &sequencer{orders: opts.ChapterOrders}
	acts := make([]string, 0, len(n.Acts))
	for _, act := range n.Acts {
		acts = append(acts, formatAct(act, actSeq.next(act.ID), detail, opts, chapterSeq))
	}
	body := joinNonEmpty(acts)
	if body == "" {
		return ""
	}
	return Block(name, attrs(opts.idAttr(n.ID)), Text("title", n.Title), body)
}
