package repository

import (
	"context"

	"z-novel-context-api/internal/domain/entity"
)

// NovelRepository 小说仓储接口
type NovelRepository interface {
	// FindByID 根据 ID 获取小说（含结构树）
	FindByID(ctx context.Context, id string) (*entity.Novel, error)
}
