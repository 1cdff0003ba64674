package postgres

import (
	"context"
	"fmt"

	"z-novel-context-api/internal/domain/entity"
	"z-novel-context-api/internal/domain/repository"
)

// SceneRepository 场景仓储实现
type SceneRepository struct {
	client *Client
}

// NewSceneRepository 创建场景仓储
func NewSceneRepository(client *Client) *SceneRepository {
	return &SceneRepository{client: client}
}

// FindByID 根据 ID 获取场景
func (r *SceneRepository) FindByID(ctx context.Context, id string) (*entity.Scene, error) {
	ctx, span := tracer.Start(ctx, "postgres.SceneRepository.FindByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var scene entity.Scene
	if err := db.First(&scene, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get scene: %w", err)
	}
	return &scene, nil
}

// FindByChapterOrdered 获取章节下的场景，sequence 升序，空值在后，同序按创建时间
func (r *SceneRepository) FindByChapterOrdered(ctx context.Context, novelID, chapterID string) ([]*entity.Scene, error) {
	ctx, span := tracer.Start(ctx, "postgres.SceneRepository.FindByChapterOrdered")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var scenes []*entity.Scene
	if err := db.Where("novel_id = ? AND chapter_id = ?", novelID, chapterID).
		Order("sequence ASC NULLS LAST").
		Order("created_at ASC").
		Find(&scenes).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list scenes by chapter: %w", err)
	}
	return scenes, nil
}

// FindByNovel 获取小说全部场景
func (r *SceneRepository) FindByNovel(ctx context.Context, novelID string) ([]*entity.Scene, error) {
	ctx, span := tracer.Start(ctx, "postgres.SceneRepository.FindByNovel")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var scenes []*entity.Scene
	if err := db.Where("novel_id = ?", novelID).
		Order("chapter_id ASC").
		Order("sequence ASC NULLS LAST").
		Order("created_at ASC").
		Find(&scenes).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list scenes by novel: %w", err)
	}
	return scenes, nil
}

var _ repository.SceneRepository = (*SceneRepository)(nil)
