// Package entity 定义领域实体
package entity

import (
	"time"

	"github.com/lib/pq"
)

// Novel 小说实体
type Novel struct {
	ID          string         `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID      string         `json:"user_id" gorm:"type:uuid;index"`
	Title       string         `json:"title" gorm:"type:varchar(255);not null"`
	Author      string         `json:"author,omitempty" gorm:"type:varchar(128)"`
	Description string         `json:"description,omitempty" gorm:"type:text"`
	Genre       string         `json:"genre,omitempty" gorm:"type:varchar(64)"`
	Tags        pq.StringArray `json:"tags,omitempty" gorm:"type:text[]"`
	Structure   NovelStructure `json:"structure" gorm:"type:jsonb;serializer:json"`
	CreatedAt   time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Novel) TableName() string {
	return "novels"
}

// NovelStructure 小说结构树：卷(幕) -> 章节 -> 场景引用
type NovelStructure struct {
	Acts []Act `json:"acts"`
}

// Act 幕
// Order 为编辑器写入的原始序号，可能从 0 或负数开始，也可能不连续。
type Act struct {
	ID          string        `json:"id"`
	Title       string        `json:"title,omitempty"`
	Description string        `json:"description,omitempty"`
	Order       *int          `json:"order,omitempty"`
	Chapters    []ChapterNode `json:"chapters"`
}

// ChapterNode 结构树中的章节节点
type ChapterNode struct {
	ID       string   `json:"id"`
	Title    string   `json:"title,omitempty"`
	Summary  string   `json:"summary,omitempty"`
	Order    *int     `json:"order,omitempty"`
	SceneIDs []string `json:"scene_ids,omitempty"`
}

// FindChapter 在结构树中查找章节，返回章节及其所属幕
func (s NovelStructure) FindChapter(chapterID string) (*ChapterNode, *Act) {
	for i := range s.Acts {
		act := &s.Acts[i]
		for j := range act.Chapters {
			if act.Chapters[j].ID == chapterID {
				return &act.Chapters[j], act
			}
		}
	}
	return nil, nil
}

// FindAct 在结构树中查找幕
func (s NovelStructure) FindAct(actID string) *Act {
	for i := range s.Acts {
		if s.Acts[i].ID == actID {
			return &s.Acts[i]
		}
	}
	return nil
}

// ChapterCount 章节总数
func (s NovelStructure) ChapterCount() int {
	n := 0
	for _, act := range s.Acts {
		n += len(act.Chapters)
	}
	return n
}

// IntRef 返回整数指针
func IntRef(v int) *int {
	return &v
}
