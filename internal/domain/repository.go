// Package domain 定义领域模型和接口
package domain

import "context"

// MemoryRepository 记忆条目仓储接口
// 查询结果一律按 created_at DESC, id DESC 排序
type MemoryRepository interface {
	// Create 创建条目，返回带 id 和时间戳的条目
	Create(ctx context.Context, memory *Memory) (*Memory, error)

	// GetByID 根据ID获取条目，不存在时返回 gorm.ErrRecordNotFound
	GetByID(ctx context.Context, id int64) (*Memory, error)

	// Update 部分更新条目，不存在时返回 gorm.ErrRecordNotFound
	Update(ctx context.Context, id int64, patch MemoryPatch) (*Memory, error)

	// Delete 删除条目，返回是否确实删除了一条记录
	Delete(ctx context.Context, id int64) (bool, error)

	// List 获取最新的 limit 条
	List(ctx context.Context, limit int) ([]*Memory, error)

	// Search 按条件检索，最多返回 limit 条
	Search(ctx context.Context, filter MemoryFilter, limit int) ([]*Memory, error)

	// Count 条目总数
	Count(ctx context.Context) (int64, error)

	// Ping 检查存储是否可用
	Ping(ctx context.Context) error
}
