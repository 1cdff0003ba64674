package repository

import (
	"context"

	"z-novel-context-api/internal/domain/entity"
)

// SnippetRepository 片段仓储接口
type SnippetRepository interface {
	// FindByID 根据 ID 获取片段
	FindByID(ctx context.Context, id string) (*entity.Snippet, error)
}
