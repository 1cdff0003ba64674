package entity

import (
	"time"

	"github.com/lib/pq"
)

// Snippet 片段（素材摘录）
type Snippet struct {
	ID        string         `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NovelID   string         `json:"novel_id" gorm:"type:uuid;index;not null"`
	Title     string         `json:"title,omitempty" gorm:"type:varchar(255)"`
	Content   string         `json:"content,omitempty" gorm:"type:text"`
	Tags      pq.StringArray `json:"tags,omitempty" gorm:"type:text[]"`
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Snippet) TableName() string {
	return "snippets"
}
