package postgres

import (
	"context"
	"fmt"

	"z-novel-context-api/internal/domain/entity"
	"z-novel-context-api/internal/domain/repository"
)

// SnippetRepository 片段仓储实现
type SnippetRepository struct {
	client *Client
}

// NewSnippetRepository 创建片段仓储
func NewSnippetRepository(client *Client) *SnippetRepository {
	return &SnippetRepository{client: client}
}

// FindByID 根据 ID 获取片段
func (r *SnippetRepository) FindByID(ctx context.Context, id string) (*entity.Snippet, error) {
	ctx, span := tracer.Start(ctx, "postgres.SnippetRepository.FindByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var snippet entity.Snippet
	if err := db.First(&snippet, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get snippet: %w", err)
	}
	return &snippet, nil
}

var _ repository.SnippetRepository = (*SnippetRepository)(nil)
