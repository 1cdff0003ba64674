package repository

import (
	"context"

	"z-novel-context-api/internal/domain/entity"
)

// SettingRepository 设定仓储接口
type SettingRepository interface {
	// FindByID 根据 ID 获取设定
	FindByID(ctx context.Context, id string) (*entity.Setting, error)

	// FindByIDs 批量获取设定，结果顺序与 ids 一致，缺失项跳过
	FindByIDs(ctx context.Context, ids []string) ([]*entity.Setting, error)

	// FindGroupByID 根据 ID 获取设定分组
	FindGroupByID(ctx context.Context, id string) (*entity.SettingGroup, error)
}
