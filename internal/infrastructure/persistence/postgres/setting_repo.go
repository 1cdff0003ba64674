package postgres

import (
	"context"
	"fmt"

	"z-novel-context-api/internal/domain/entity"
	"z-novel-context-api/internal/domain/repository"
)

// SettingRepository 设定仓储实现
type SettingRepository struct {
	client *Client
}

// NewSettingRepository 创建设定仓储
func NewSettingRepository(client *Client) *SettingRepository {
	return &SettingRepository{client: client}
}

// FindByID 根据 ID 获取设定
func (r *SettingRepository) FindByID(ctx context.Context, id string) (*entity.Setting, error) {
	ctx, span := tracer.Start(ctx, "postgres.SettingRepository.FindByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var setting entity.Setting
	if err := db.First(&setting, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get setting: %w", err)
	}
	return &setting, nil
}

// FindByIDs 批量获取设定，按 ids 顺序返回
func (r *SettingRepository) FindByIDs(ctx context.Context, ids []string) ([]*entity.Setting, error) {
	ctx, span := tracer.Start(ctx, "postgres.SettingRepository.FindByIDs")
	defer span.End()

	if len(ids) == 0 {
		return []*entity.Setting{}, nil
	}

	db := getDB(ctx, r.client.db)
	var settings []*entity.Setting
	if err := db.Where("id IN ?", ids).Find(&settings).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	return orderByIDs(ids, settings, func(s *entity.Setting) string { return s.ID }), nil
}

// FindGroupByID 根据 ID 获取设定分组
func (r *SettingRepository) FindGroupByID(ctx context.Context, id string) (*entity.SettingGroup, error) {
	ctx, span := tracer.Start(ctx, "postgres.SettingRepository.FindGroupByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var group entity.SettingGroup
	if err := db.First(&group, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get setting group: %w", err)
	}
	return &group, nil
}

// orderByIDs 按 ids 的顺序重排查询结果，缺失与重复的 ID 跳过
func orderByIDs[T any](ids []string, items []T, idOf func(T) string) []T {
	byID := make(map[string]T, len(items))
	for _, it := range items {
		byID[idOf(it)] = it
	}
	out := make([]T, 0, len(items))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if it, ok := byID[id]; ok {
			out = append(out, it)
		}
	}
	return out
}

var _ repository.SettingRepository = (*SettingRepository)(nil)
