package entity

import "time"

// Scene 场景实体
// Content / Summary 为富文本原文：可能是插入操作列表 JSON、HTML 或纯文本。
type Scene struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NovelID   string    `json:"novel_id" gorm:"type:uuid;index;not null"`
	ChapterID string    `json:"chapter_id" gorm:"type:varchar(64);index"`
	Title     string    `json:"title,omitempty" gorm:"type:varchar(255)"`
	Content   string    `json:"content,omitempty" gorm:"type:text"`
	Summary   string    `json:"summary,omitempty" gorm:"type:text"`
	Sequence  *int      `json:"sequence,omitempty"`
	WordCount int       `json:"word_count" gorm:"default:0"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Scene) TableName() string {
	return "scenes"
}
