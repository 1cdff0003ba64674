package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// getDB 绑定请求上下文，取消与超时会传到查询
func getDB(ctx context.Context, db *gorm.DB) *gorm.DB {
	return db.WithContext(ctx)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
