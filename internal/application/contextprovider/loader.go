package contextprovider

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"z-novel-context-api/internal/application/markup"
	"z-novel-context-api/internal/application/ordering"
	"z-novel-context-api/internal/application/richtext"
	"z-novel-context-api/internal/domain/entity"
	"z-novel-context-api/internal/domain/repository"
	"z-novel-context-api/pkg/logger"
)

// loader 各 Provider 共用的查询逻辑；所有方法失败时记录日志并返回空结果
type loader struct {
	repos       repository.Lookups
	concurrency int
}

// document 一次请求内的小说结构快照，序号每次重新计算
type document struct {
	novel         *entity.Novel
	refs          []ordering.ChapterRef
	chapterOrders ordering.OrderMap
	actOrders     ordering.OrderMap
}

func (l *loader) novel(ctx context.Context, novelID string) *entity.Novel {
	if novelID == "" || l.repos.Novels == nil {
		return nil
	}
	n, err := l.repos.Novels.FindByID(ctx, novelID)
	if err != nil {
		logger.Warn(ctx, "context provider: load novel failed", "novel_id", novelID, "error", err.Error())
		return nil
	}
	return n
}

func (l *loader) document(ctx context.Context, novelID string) *document {
	n := l.novel(ctx, novelID)
	if n == nil {
		return nil
	}
	return &document{
		novel:         n,
		refs:          ordering.FlattenChapters(n.Structure),
		chapterOrders: ordering.BuildOrderMap(n.Structure),
		actOrders:     ordering.BuildActOrderMap(n.Structure),
	}
}

func (l *loader) scene(ctx context.Context, sceneID string) *entity.Scene {
	if sceneID == "" || l.repos.Scenes == nil {
		return nil
	}
	s, err := l.repos.Scenes.FindByID(ctx, sceneID)
	if err != nil {
		logger.Warn(ctx, "context provider: load scene failed", "scene_id", sceneID, "error", err.Error())
		return nil
	}
	return s
}

func (l *loader) novelScenes(ctx context.Context, novelID string) []*entity.Scene {
	if novelID == "" || l.repos.Scenes == nil {
		return nil
	}
	scenes, err := l.repos.Scenes.FindByNovel(ctx, novelID)
	if err != nil {
		logger.Warn(ctx, "context provider: load novel scenes failed", "novel_id", novelID, "error", err.Error())
		return nil
	}
	return scenes
}

// chapterScenes 章节下的场景，按 sequence 排序。
// 结构树里有场景引用时逐个并发查询，否则按章节查询。
func (l *loader) chapterScenes(ctx context.Context, novelID string, ch entity.ChapterNode) []*entity.Scene {
	if l.repos.Scenes == nil {
		return nil
	}
	if len(ch.SceneIDs) == 0 {
		scenes, err := l.repos.Scenes.FindByChapterOrdered(ctx, novelID, ch.ID)
		if err != nil {
			logger.Warn(ctx, "context provider: load chapter scenes failed", "chapter_id", ch.ID, "error", err.Error())
			return nil
		}
		return ordering.SortScenesBySequence(scenes)
	}

	slots := make([]*entity.Scene, len(ch.SceneIDs))
	var g errgroup.Group
	g.SetLimit(l.concurrency)
	for i, id := range ch.SceneIDs {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			slots[i] = l.scene(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	scenes := make([]*entity.Scene, 0, len(slots))
	for _, s := range slots {
		if s != nil {
			scenes = append(scenes, s)
		}
	}
	return ordering.SortScenesBySequence(scenes)
}

// sceneSets 每个章节一个并发查询，结果与 refs 一一对应
func (l *loader) sceneSets(ctx context.Context, novelID string, refs []ordering.ChapterRef) [][]*entity.Scene {
	sets := make([][]*entity.Scene, len(refs))
	var g errgroup.Group
	g.SetLimit(l.concurrency)
	for i, ref := range refs {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			sets[i] = l.chapterScenes(ctx, novelID, ref.Chapter)
			return nil
		})
	}
	_ = g.Wait()
	return sets
}

// chapters 并发加载一组章节，最终顺序按序号映射重排，与完成顺序无关
func (l *loader) chapters(ctx context.Context, doc *document, refs []ordering.ChapterRef) []markup.Chapter {
	sets := l.sceneSets(ctx, doc.novel.ID, refs)
	out := make([]markup.Chapter, len(refs))
	for i, ref := range refs {
		out[i] = toMarkupChapter(ref.Chapter, sets[i])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return ordering.ChapterOrder(doc.chapterOrders, out[i].ID) < ordering.ChapterOrder(doc.chapterOrders, out[j].ID)
	})
	return out
}

func (l *loader) settings(ctx context.Context, ids []string) []*entity.Setting {
	if len(ids) == 0 || l.repos.Settings == nil {
		return nil
	}
	settings, err := l.repos.Settings.FindByIDs(ctx, ids)
	if err != nil {
		logger.Warn(ctx, "context provider: load settings failed", "count", len(ids), "error", err.Error())
		return nil
	}
	return settings
}

func (l *loader) setting(ctx context.Context, id string) *entity.Setting {
	if id == "" || l.repos.Settings == nil {
		return nil
	}
	s, err := l.repos.Settings.FindByID(ctx, id)
	if err != nil {
		logger.Warn(ctx, "context provider: load setting failed", "setting_id", id, "error", err.Error())
		return nil
	}
	return s
}

func (l *loader) settingGroup(ctx context.Context, id string) *entity.SettingGroup {
	if id == "" || l.repos.Settings == nil {
		return nil
	}
	g, err := l.repos.Settings.FindGroupByID(ctx, id)
	if err != nil {
		logger.Warn(ctx, "context provider: load setting group failed", "group_id", id, "error", err.Error())
		return nil
	}
	return g
}

func (l *loader) snippet(ctx context.Context, id string) *entity.Snippet {
	if id == "" || l.repos.Snippets == nil {
		return nil
	}
	s, err := l.repos.Snippets.FindByID(ctx, id)
	if err != nil {
		logger.Warn(ctx, "context provider: load snippet failed", "snippet_id", id, "error", err.Error())
		return nil
	}
	return s
}

func toMarkupScene(s *entity.Scene) markup.Scene {
	return markup.Scene{ID: s.ID, Title: s.Title, Content: s.Content, Summary: s.Summary}
}

func toMarkupChapter(node entity.ChapterNode, scenes []*entity.Scene) markup.Chapter {
	ch := markup.Chapter{ID: node.ID, Title: node.Title, Summary: node.Summary}
	ch.Scenes = make([]markup.Scene, 0, len(scenes))
	for _, s := range scenes {
		ch.Scenes = append(ch.Scenes, toMarkupScene(s))
	}
	return ch
}

func sceneLength(s *entity.Scene, detail markup.Detail) int {
	if s == nil {
		return 0
	}
	switch detail {
	case markup.DetailContent:
		return richtext.PlainLength(s.Content)
	case markup.DetailSummary:
		return richtext.PlainLength(s.Summary)
	default:
		return richtext.PlainLength(s.Content) + richtext.PlainLength(s.Summary)
	}
}

func scenesLength(scenes []*entity.Scene, detail markup.Detail) int {
	total := 0
	for _, s := range scenes {
		total += sceneLength(s, detail)
	}
	return total
}

func formatOptions(doc *document, req *Request) markup.Options {
	opts := markup.Options{IncludeIDs: req != nil && req.IncludeIDs}
	if doc != nil {
		opts.ChapterOrders = doc.chapterOrders
		opts.ActOrders = doc.actOrders
	}
	return opts
}
