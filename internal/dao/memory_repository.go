package dao

import (
	"context"
	"errors"
	"time"

	"github.com/haierkeys/memory-server/internal/domain"
	"github.com/haierkeys/memory-server/internal/model"
	"github.com/haierkeys/memory-server/internal/query"
	"github.com/haierkeys/memory-server/pkg/timex"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// searchBatchSize 检索时每批扫描的行数
const searchBatchSize = 200

// errStopScan 结果已满，停止扫描
var errStopScan = errors.New("stop scan")

// memoryRepository 实现 domain.MemoryRepository 接口
type memoryRepository struct {
	dao *Dao
}

// NewMemoryRepository 创建 MemoryRepository 实例
func NewMemoryRepository(dao *Dao) domain.MemoryRepository {
	return &memoryRepository{dao: dao}
}

// toDomain 将数据库模型转换为领域模型
func (r *memoryRepository) toDomain(m *model.Memory) *domain.Memory {
	if m == nil {
		return nil
	}
	return &domain.Memory{
		ID:        m.ID,
		Content:   m.Content,
		Tags:      append([]string{}, m.Tags...),
		Keywords:  append([]string{}, m.Keywords...),
		Summary:   m.Summary,
		CreatedAt: time.Time(m.CreatedAt),
		UpdatedAt: time.Time(m.UpdatedAt),
	}
}

// toModel 将领域模型转换为数据库模型
func (r *memoryRepository) toModel(memory *domain.Memory) *model.Memory {
	if memory == nil {
		return nil
	}
	return &model.Memory{
		ID:        memory.ID,
		Content:   memory.Content,
		Tags:      jsonSlice(memory.Tags),
		Keywords:  jsonSlice(memory.Keywords),
		Summary:   memory.Summary,
		CreatedAt: timex.Time(memory.CreatedAt),
		UpdatedAt: timex.Time(memory.UpdatedAt),
	}
}

// jsonSlice nil 切片存为 [] 而不是 null
func jsonSlice(s []string) datatypes.JSONSlice[string] {
	if s == nil {
		s = []string{}
	}
	return datatypes.NewJSONSlice(s)
}

// Create 创建条目
func (r *memoryRepository) Create(ctx context.Context, memory *domain.Memory) (*domain.Memory, error) {
	m := r.toModel(memory)
	m.ID = 0

	err := r.dao.ExecuteWrite(ctx, func(tx *gorm.DB) error {
		now := timex.Now()
		m.CreatedAt = now
		m.UpdatedAt = now
		return tx.Create(m).Error
	})
	if err != nil {
		return nil, err
	}
	return r.toDomain(m), nil
}

// GetByID 根据ID获取条目
func (r *memoryRepository) GetByID(ctx context.Context, id int64) (*domain.Memory, error) {
	var m model.Memory
	if err := r.dao.Db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return r.toDomain(&m), nil
}

// Update 部分更新条目
// updated_at 严格晚于之前的 updated_at 和 created_at
func (r *memoryRepository) Update(ctx context.Context, id int64, patch domain.MemoryPatch) (*domain.Memory, error) {
	var out *domain.Memory

	err := r.dao.ExecuteWrite(ctx, func(tx *gorm.DB) error {
		var m model.Memory
		if err := tx.Where("id = ?", id).First(&m).Error; err != nil {
			return err
		}

		previous := timex.Max(m.UpdatedAt, m.CreatedAt)
		now := timex.Now()
		if !previous.Before(now) {
			now = timex.Time(previous.Std().Add(time.Microsecond))
		}

		current := r.toDomain(&m)
		patch.Apply(current)
		current.UpdatedAt = now.Std()

		updates := map[string]any{
			"content":    current.Content,
			"tags":       jsonSlice(current.Tags),
			"keywords":   jsonSlice(current.Keywords),
			"summary":    current.Summary,
			"updated_at": now,
		}
		if err := tx.Model(&model.Memory{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		out = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete 删除条目
func (r *memoryRepository) Delete(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := r.dao.ExecuteWrite(ctx, func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&model.Memory{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	return deleted, err
}

// List 获取最新的 limit 条
func (r *memoryRepository) List(ctx context.Context, limit int) ([]*domain.Memory, error) {
	var ms []*model.Memory
	if err := r.dao.Db.WithContext(ctx).Scopes(query.Newest).Limit(limit).Find(&ms).Error; err != nil {
		return nil, err
	}
	return r.toDomainList(ms), nil
}

// Search 按条件检索
// SQL 预过滤后按批次扫描，在应用层精确匹配，收集满 limit 条即停止
// 扫描在一个只读事务中进行，批次之间看到同一份数据
func (r *memoryRepository) Search(ctx context.Context, filter domain.MemoryFilter, limit int) ([]*domain.Memory, error) {
	if filter.IsEmpty() {
		return r.List(ctx, limit)
	}

	out := make([]*domain.Memory, 0)
	err := r.dao.Db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for offset := 0; ; offset += searchBatchSize {
			var batch []*model.Memory
			err := tx.Model(&model.Memory{}).
				Scopes(query.Scope(filter), query.Newest).
				Limit(searchBatchSize).
				Offset(offset).
				Find(&batch).Error
			if err != nil {
				return err
			}
			for _, m := range batch {
				d := r.toDomain(m)
				if !query.Match(filter, d) {
					continue
				}
				out = append(out, d)
				if len(out) >= limit {
					return errStopScan
				}
			}
			if len(batch) < searchBatchSize {
				return nil
			}
		}
	})
	if err != nil && !errors.Is(err, errStopScan) {
		return nil, err
	}
	return out, nil
}

// Count 条目总数
func (r *memoryRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.dao.Db.WithContext(ctx).Model(&model.Memory{}).Count(&n).Error
	return n, err
}

// Ping 检查数据库连接
func (r *memoryRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.dao.Db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *memoryRepository) toDomainList(ms []*model.Memory) []*domain.Memory {
	out := make([]*domain.Memory, 0, len(ms))
	for _, m := range ms {
		out = append(out, r.toDomain(m))
	}
	return out
}
