// Package domain 定义领域模型和接口
package domain

import "time"

// RuleTags 标记项目规则的固定标签集合
var RuleTags = []string{"ルール", "rule", "rules", "規則", "原則", "方針"}

// Memory 记忆条目领域模型
type Memory struct {
	ID        int64
	Content   string
	Tags      []string
	Keywords  []string
	Summary   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasSummary 是否有摘要
func (m *Memory) HasSummary() bool {
	return m.Summary != ""
}

// MemoryPatch 部分更新，nil 字段保持原值
type MemoryPatch struct {
	Content  *string
	Tags     *[]string
	Keywords *[]string
	Summary  *string
}

// Apply 将补丁应用到条目上，不修改时间戳
func (p MemoryPatch) Apply(m *Memory) {
	if p.Content != nil {
		m.Content = *p.Content
	}
	if p.Tags != nil {
		m.Tags = append([]string{}, (*p.Tags)...)
	}
	if p.Keywords != nil {
		m.Keywords = append([]string{}, (*p.Keywords)...)
	}
	if p.Summary != nil {
		m.Summary = *p.Summary
	}
}

// MemoryFilter 检索条件
// 各条件之间为 AND 关系，零值条件不参与过滤
type MemoryFilter struct {
	// Query 自由文本，匹配 content/tags/keywords/summary 任意一项（不区分大小写的子串）
	Query string
	// Tags 全部包含（区分大小写的完全匹配）
	Tags []string
	// TagContains 任意标签包含该子串（区分大小写）
	TagContains string
	// AnyTags 至少包含其中一个标签（区分大小写的完全匹配）
	AnyTags []string
}

// IsEmpty 是否没有任何过滤条件
func (f MemoryFilter) IsEmpty() bool {
	return f.Query == "" && len(f.Tags) == 0 && f.TagContains == "" && len(f.AnyTags) == 0
}
