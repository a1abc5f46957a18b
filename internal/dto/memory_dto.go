// Package dto Defines data transfer objects (request parameters and response structs)
// Package dto 定义数据传输对象（请求参数和响应结构体），REST 与 MCP 两个入口共用
package dto

import (
	"github.com/haierkeys/memory-server/internal/domain"
	"github.com/haierkeys/memory-server/pkg/timex"
)

// MemoryDTO Memory entry data transfer object
// MemoryDTO 记忆条目数据传输对象
type MemoryDTO struct {
	ID        int64           `json:"id"`
	Content   string          `json:"content"`
	Tags      []string        `json:"tags"`
	Keywords  []string        `json:"keywords"`
	Summary   string          `json:"summary"`
	CreatedAt timex.Time      `json:"created_at"`
	UpdatedAt timex.Time      `json:"updated_at"`
	Metadata  *MemoryMetadata `json:"metadata,omitempty"` // Only set in list results // 仅列表结果携带
}

// MemoryMetadata 列表条目的附加统计
type MemoryMetadata struct {
	TagCount      int  `json:"tag_count"`
	KeywordCount  int  `json:"keyword_count"`
	ContentLength int  `json:"content_length"` // In characters // 字符数
	HasSummary    bool `json:"has_summary"`
}

// NewMemoryDTO converts a domain entry
// NewMemoryDTO 将领域模型转换为 DTO
func NewMemoryDTO(m *domain.Memory) *MemoryDTO {
	if m == nil {
		return nil
	}
	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}
	keywords := m.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return &MemoryDTO{
		ID:        m.ID,
		Content:   m.Content,
		Tags:      tags,
		Keywords:  keywords,
		Summary:   m.Summary,
		CreatedAt: timex.Time(m.CreatedAt),
		UpdatedAt: timex.Time(m.UpdatedAt),
	}
}

// NewMemoryListItemDTO 转换为带 metadata 的列表条目
func NewMemoryListItemDTO(m *domain.Memory) *MemoryDTO {
	d := NewMemoryDTO(m)
	if d == nil {
		return nil
	}
	d.Metadata = &MemoryMetadata{
		TagCount:      len(m.Tags),
		KeywordCount:  len(m.Keywords),
		ContentLength: len([]rune(m.Content)),
		HasSummary:    m.HasSummary(),
	}
	return d
}

// MemoryListDTO List response
// MemoryListDTO 列表响应
type MemoryListDTO struct {
	Entries    []*MemoryDTO `json:"entries"`
	TotalCount int          `json:"total_count"` // Number of entries returned // 本次返回的条目数
	Limit      int          `json:"limit"`       // Effective limit after normalization // 归一化后的 limit
}

// NewMemoryListDTO 构造列表响应
func NewMemoryListDTO(list []*domain.Memory, limit int) *MemoryListDTO {
	entries := make([]*MemoryDTO, 0, len(list))
	for _, m := range list {
		entries = append(entries, NewMemoryListItemDTO(m))
	}
	return &MemoryListDTO{
		Entries:    entries,
		TotalCount: len(entries),
		Limit:      limit,
	}
}

// MemoryCreateRequest Request parameters for creating an entry
// MemoryCreateRequest 创建条目的请求参数
type MemoryCreateRequest struct {
	Content  string   `json:"content" form:"content" validate:"notblank"`
	Tags     []string `json:"tags" form:"tags" validate:"omitempty,dive,notblank"`
	Keywords []string `json:"keywords" form:"keywords" validate:"omitempty,dive,notblank"`
	Summary  string   `json:"summary" form:"summary"`
}

// MemoryUpdateRequest Partial update, nil fields are left unchanged
// MemoryUpdateRequest 部分更新，nil 字段保持不变
type MemoryUpdateRequest struct {
	ID       int64     `json:"entry_id" validate:"gt=0"`
	Content  *string   `json:"content" validate:"omitnil,notblank"`
	Tags     *[]string `json:"tags" validate:"omitnil,dive,notblank"`
	Keywords *[]string `json:"keywords" validate:"omitnil,dive,notblank"`
	Summary  *string   `json:"summary"`
}

// MemorySearchRequest Search parameters
// MemorySearchRequest 检索参数，query 与 tags 之间为 AND
type MemorySearchRequest struct {
	Query string   `json:"query" form:"q"`
	Tags  []string `json:"tags" form:"tags"`
	Limit int      `json:"limit" form:"limit"` // <=0 means default // <=0 使用默认值
}

// MemoryListRequest 列表参数，可选过滤
type MemoryListRequest struct {
	Query string   `json:"query" form:"q"`
	Tags  []string `json:"tags" form:"tags"`
	Limit int      `json:"limit" form:"limit"`
}

// MemoryTagRequest 按标签子串查询
type MemoryTagRequest struct {
	Tag   string `json:"tag" form:"tag" validate:"notblank"`
	Limit int    `json:"limit" form:"limit"`
}

// MemoryRulesRequest 规则条目查询
type MemoryRulesRequest struct {
	Limit int `json:"limit" form:"limit"`
}

// MemoryDeleteDTO Delete result
// MemoryDeleteDTO 删除结果
type MemoryDeleteDTO struct {
	Deleted bool `json:"deleted"`
}
