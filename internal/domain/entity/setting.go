package entity

import (
	"time"

	"github.com/lib/pq"
)

// SettingType 设定类型
type SettingType string

const (
	SettingTypeCharacter SettingType = "character"
	SettingTypeLocation  SettingType = "location"
	SettingTypeItem      SettingType = "item"
	SettingTypeFaction   SettingType = "faction"
	SettingTypeConcept   SettingType = "concept"
	SettingTypeOther     SettingType = "other"
)

// Setting 设定条目
type Setting struct {
	ID          string            `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NovelID     string            `json:"novel_id" gorm:"type:uuid;index;not null"`
	Name        string            `json:"name" gorm:"type:varchar(255);not null"`
	Type        SettingType       `json:"type" gorm:"type:varchar(50)"`
	Description string            `json:"description,omitempty" gorm:"type:text"`
	Attributes  map[string]string `json:"attributes,omitempty" gorm:"type:jsonb;serializer:json"`
	CreatedAt   time.Time         `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time         `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Setting) TableName() string {
	return "settings"
}

// SettingGroup 设定分组
type SettingGroup struct {
	ID          string         `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NovelID     string         `json:"novel_id" gorm:"type:uuid;index;not null"`
	Name        string         `json:"name" gorm:"type:varchar(255);not null"`
	Description string         `json:"description,omitempty" gorm:"type:text"`
	SettingIDs  pq.StringArray `json:"setting_ids" gorm:"type:text[]"`
	CreatedAt   time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (SettingGroup) TableName() string {
	return "setting_groups"
}
