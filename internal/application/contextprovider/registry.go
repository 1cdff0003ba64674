package contextprovider

import (
	"fmt"
	"sort"

	"z-novel-context-api/internal/application/markup"
	"z-novel-context-api/internal/domain/repository"
)

// Registry 内容类型到 Provider 的静态映射，构建后只读
type Registry struct {
	providers map[Kind]Provider
}

// NewRegistry 用给定的 Provider 构建注册表；同一类型重复注册返回错误
func NewRegistry(providers ...Provider) (*Registry, error) {
	m := make(map[Kind]Provider, len(providers))
	for _, p := range providers {
		if p == nil {
			continue
		}
		if _, dup := m[p.Kind()]; dup {
			return nil, fmt.Errorf("context provider %q registered twice", p.Kind())
		}
		m[p.Kind()] = p
	}
	return &Registry{providers: m}, nil
}

// NewDefaultRegistry 注册全部内置类型
func NewDefaultRegistry(repos repository.Lookups, cfg Config) *Registry {
	cfg = cfg.withDefaults()
	l := &loader{repos: repos, concurrency: cfg.FetchConcurrency}

	r, err := NewRegistry(
		&sceneProvider{loader: l, kind: KindScene, detail: markup.DetailFull},
		&sceneProvider{loader: l, kind: KindCurrentSceneContent, detail: markup.DetailContent, current: true},
		&sceneProvider{loader: l, kind: KindCurrentSceneSummary, detail: markup.DetailSummary, current: true},
		&chapterProvider{loader: l, kind: KindChapter, detail: markup.DetailFull},
		&chapterProvider{loader: l, kind: KindCurrentChapterContent, detail: markup.DetailContent, current: true},
		&chapterProvider{loader: l, kind: KindCurrentChapterSummary, detail: markup.DetailSummary, current: true},
		&chapterWindowProvider{loader: l, kind: KindRecentChaptersContent, detail: markup.DetailContent, mode: windowRecent, defaultN: cfg.RecentChapters},
		&chapterWindowProvider{loader: l, kind: KindRecentChaptersSummary, detail: markup.DetailSummary, mode: windowRecent, defaultN: cfg.RecentChapters},
		&chapterWindowProvider{loader: l, kind: KindPreviousChaptersContent, detail: markup.DetailContent, mode: windowPrevious, defaultN: cfg.RecentChapters},
		&chapterWindowProvider{loader: l, kind: KindPreviousChaptersSummary, detail: markup.DetailSummary, mode: windowPrevious, defaultN: cfg.RecentChapters},
		&actProvider{loader: l},
		&fullNovelProvider{loader: l, kind: KindFullNovelText, detail: markup.DetailContent},
		&fullNovelProvider{loader: l, kind: KindFullNovelSummary, detail: markup.DetailSummary},
		&settingProvider{loader: l},
		&settingGroupProvider{loader: l},
		&snippetProvider{loader: l},
		&basicInfoProvider{loader: l},
	)
	if err != nil {
		// 内置类型不会重复
		panic(err)
	}
	return r
}

// Get 按类型查找 Provider
func (r *Registry) Get(kind Kind) (Provider, bool) {
	p, ok := r.providers[kind]
	return p, ok
}

// Kinds 已注册的类型，按名称排序
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.providers))
	for k := range r.providers {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
