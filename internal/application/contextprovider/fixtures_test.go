package contextprovider

import (
	"context"
	"errors"
	"sync"
	"time"

	"z-novel-context-api/internal/domain/entity"
	"z-novel-context-api/internal/domain/repository"
)

var errStoreDown = errors.New("store down")

// memStore 内存版仓储，支持按 ID 注入错误与延迟
type memStore struct {
	mu       sync.Mutex
	novels   map[string]*entity.Novel
	scenes   map[string]*entity.Scene
	settings map[string]*entity.Setting
	groups   map[string]*entity.SettingGroup
	snippets map[string]*entity.Snippet
	failing  map[string]bool
	delays   map[string]time.Duration
}

func (m *memStore) hit(id string) error {
	m.mu.Lock()
	fail := m.failing[id]
	delay := m.delays[id]
	m.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if fail {
		return errStoreDown
	}
	return nil
}

func (m *memStore) lookups() repository.Lookups {
	return repository.Lookups{
		Novels:   novelRepo{m},
		Scenes:   sceneRepo{m},
		Settings: settingRepo{m},
		Snippets: snippetRepo{m},
	}
}

type novelRepo struct{ m *memStore }

func (r novelRepo) FindByID(_ context.Context, id string) (*entity.Novel, error) {
	if err := r.m.hit(id); err != nil {
		return nil, err
	}
	return r.m.novels[id], nil
}

type sceneRepo struct{ m *memStore }

func (r sceneRepo) FindByID(_ context.Context, id string) (*entity.Scene, error) {
	if err := r.m.hit(id); err != nil {
		return nil, err
	}
	return r.m.scenes[id], nil
}

func (r sceneRepo) FindByChapterOrdered(_ context.Context, novelID, chapterID string) ([]*entity.Scene, error) {
	if err := r.m.hit(chapterID); err != nil {
		return nil, err
	}
	var out []*entity.Scene
	for _, s := range r.m.scenes {
		if s.NovelID == novelID && s.ChapterID == chapterID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r sceneRepo) FindByNovel(_ context.Context, novelID string) ([]*entity.Scene, error) {
	var out []*entity.Scene
	for _, s := range r.m.scenes {
		if s.NovelID == novelID {
			out = append(out, s)
		}
	}
	return out, nil
}

type settingRepo struct{ m *memStore }

func (r settingRepo) FindByID(_ context.Context, id string) (*entity.Setting, error) {
	if err := r.m.hit(id); err != nil {
		return nil, err
	}
	return r.m.settings[id], nil
}

func (r settingRepo) FindByIDs(_ context.Context, ids []string) ([]*entity.Setting, error) {
	var out []*entity.Setting
	for _, id := range ids {
		if s, ok := r.m.settings[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r settingRepo) FindGroupByID(_ context.Context, id string) (*entity.SettingGroup, error) {
	return r.m.groups[id], nil
}

type snippetRepo struct{ m *memStore }

func (r snippetRepo) FindByID(_ context.Context, id string) (*entity.Snippet, error) {
	return r.m.snippets[id], nil
}

// newFixture 构造一部小说：
//
//	a1(order 0): c1(order 0, 场景 s1/s2/s3), c2(order 1)
//	a2(order 1): c3(order 2), c4(order 3), c5(order 4, 只有空场景)
func newFixture() *memStore {
	novel := &entity.Novel{
		ID:     "n1",
		Title:  "长夜",
		Author: "佚名",
		Genre:  "武侠",
		Tags:   []string{"江湖", "悬疑"},
		Structure: entity.NovelStructure{Acts: []entity.Act{
			{ID: "a1", Title: "上卷", Order: entity.IntRef(0), Chapters: []entity.ChapterNode{
				{ID: "c1", Title: "雨夜", Order: entity.IntRef(0), SceneIDs: []string{"s1", "s2", "s3"}},
				{ID: "c2", Title: "客栈", Order: entity.IntRef(1)},
			}},
			{ID: "a2", Title: "下卷", Order: entity.IntRef(1), Chapters: []entity.ChapterNode{
				{ID: "c3", Title: "追兵", Order: entity.IntRef(2)},
				{ID: "c4", Title: "断桥", Order: entity.IntRef(3)},
				{ID: "c5", Title: "留白", Order: entity.IntRef(4)},
			}},
		}},
	}
	scenes := []*entity.Scene{
		{ID: "s1", NovelID: "n1", ChapterID: "c1", Sequence: entity.IntRef(2), Content: "第一章第二场"},
		{ID: "s2", NovelID: "n1", ChapterID: "c1"},
		{ID: "s3", NovelID: "n1", ChapterID: "c1", Sequence: entity.IntRef(1), Content: `[{"insert":"第一章第一场\n"}]`, Summary: "开端"},
		{ID: "s4", NovelID: "n1", ChapterID: "c2", Sequence: entity.IntRef(1), Content: "<p>第二章</p>", Summary: "二"},
		{ID: "s5", NovelID: "n1", ChapterID: "c3", Sequence: entity.IntRef(1), Content: "第三章", Summary: "三"},
		{ID: "s6", NovelID: "n1", ChapterID: "c4", Sequence: entity.IntRef(1), Content: "第四章"},
		{ID: "s7", NovelID: "n1", ChapterID: "c5", Content: " ", Summary: "<p></p>"},
	}
	m := &memStore{
		novels:   map[string]*entity.Novel{"n1": novel},
		scenes:   make(map[string]*entity.Scene),
		settings: map[string]*entity.Setting{"st1": {ID: "st1", NovelID: "n1", Name: "林默", Type: entity.SettingTypeCharacter, Description: "沉默的剑客"}},
		groups:   map[string]*entity.SettingGroup{"g1": {ID: "g1", NovelID: "n1", Name: "主角团", SettingIDs: []string{"st1", "missing"}}},
		snippets: map[string]*entity.Snippet{"sp1": {ID: "sp1", NovelID: "n1", Title: "灵感", Content: "断桥上的对峙"}},
		failing:  make(map[string]bool),
		delays:   make(map[string]time.Duration),
	}
	for _, s := range scenes {
		m.scenes[s.ID] = s
	}
	return m
}

func newTestRegistry(m *memStore) *Registry {
	return NewDefaultRegistry(m.lookups(), Config{RecentChapters: 2, FetchConcurrency: 4})
}
