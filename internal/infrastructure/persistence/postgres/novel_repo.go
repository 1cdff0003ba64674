// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"z-novel-context-api/internal/domain/entity"
	"z-novel-context-api/internal/domain/repository"
)

// NovelRepository 小说仓储实现
type NovelRepository struct {
	client *Client
}

// NewNovelRepository 创建小说仓储
func NewNovelRepository(client *Client) *NovelRepository {
	return &NovelRepository{client: client}
}

// FindByID 根据 ID 获取小说
func (r *NovelRepository) FindByID(ctx context.Context, id string) (*entity.Novel, error) {
	ctx, span := tracer.Start(ctx, "postgres.NovelRepository.FindByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var novel entity.Novel
	if err := db.First(&novel, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get novel: %w", err)
	}
	return &novel, nil
}

var _ repository.NovelRepository = (*NovelRepository)(nil)
