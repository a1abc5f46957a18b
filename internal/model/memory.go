package model

import (
	"github.com/haierkeys/memory-server/pkg/timex"

	"gorm.io/datatypes"
)

const TableNameMemory = "memory_entries"

// Memory mapped from table <memory_entries>
// tags/keywords 以 JSON 数组文本存储
type Memory struct {
	ID        int64                       `gorm:"column:id;primaryKey;autoIncrement" json:"id" form:"id"`
	Content   string                      `gorm:"column:content;type:text;not null" json:"content" form:"content"`
	Tags      datatypes.JSONSlice[string] `gorm:"column:tags;type:text;not null" json:"tags" form:"tags"`
	Keywords  datatypes.JSONSlice[string] `gorm:"column:keywords;type:text;not null" json:"keywords" form:"keywords"`
	Summary   string                      `gorm:"column:summary;type:text;not null;default:''" json:"summary" form:"summary"`
	CreatedAt timex.Time                  `gorm:"column:created_at;not null;index:idx_memory_entries_created_at;autoCreateTime:false" json:"createdAt" form:"createdAt"`
	UpdatedAt timex.Time                  `gorm:"column:updated_at;not null;index:idx_memory_entries_updated_at;autoUpdateTime:false" json:"updatedAt" form:"updatedAt"`
}

// TableName Memory's table name
func (*Memory) TableName() string {
	return TableNameMemory
}
