package repository

import (
	"context"

	"z-novel-context-api/internal/domain/entity"
)

// SceneRepository 场景仓储接口
type SceneRepository interface {
	// FindByID 根据 ID 获取场景
	FindByID(ctx context.Context, id string) (*entity.Scene, error)

	// FindByChapterOrdered 获取章节下的场景，按 sequence 升序，空值在后
	FindByChapterOrdered(ctx context.Context, novelID, chapterID string) ([]*entity.Scene, error)

	// FindByNovel 获取小说全部场景
	FindByNovel(ctx context.Context, novelID string) ([]*entity.Scene, error)
}
