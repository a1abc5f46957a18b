package model

import (
	"fmt"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// jsonArrayIndexes tags/keywords 列上的索引
// MySQL 的 TEXT 列不能直接建索引，只在 sqlite/postgres 上创建
var jsonArrayIndexes = map[string]string{
	"idx_memory_entries_tags":     "tags",
	"idx_memory_entries_keywords": "keywords",
}

// EnsureSchema 创建或升级表结构，可重复执行
func EnsureSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(&Memory{}); err != nil {
		return errors.Wrap(err, "auto migrate memory_entries")
	}

	switch db.Dialector.Name() {
	case "sqlite", "postgres":
		for name, column := range jsonArrayIndexes {
			sql := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", name, TableNameMemory, column)
			if err := db.Exec(sql).Error; err != nil {
				return errors.Wrapf(err, "create index %s", name)
			}
		}
	}
	return nil
}
