// Package service implements the business logic layer
// Package service 实现业务逻辑层
package service

// ServiceConfig service layer configuration
// ServiceConfig 服务层配置
type ServiceConfig struct {
	Memory MemoryServiceConfig // Memory store related config // 记忆存储相关配置
}

// MemoryServiceConfig limits applied to list and search operations
// MemoryServiceConfig 列表与检索的条数限制
type MemoryServiceConfig struct {
	DefaultSearchLimit int // Default limit of search // 检索默认条数
	DefaultListLimit   int // Default limit of list // 列表默认条数
	MaxResults         int // Upper bound of any limit // 任意 limit 的上限
}

// DefaultServiceConfig 默认配置
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		Memory: MemoryServiceConfig{
			DefaultSearchLimit: 10,
			DefaultListLimit:   50,
			MaxResults:         100,
		},
	}
}

// normalizeLimit 缺省或非正数取默认值，超过上限取上限
func (c MemoryServiceConfig) normalizeLimit(limit, def int) int {
	max := c.MaxResults
	if max <= 0 {
		max = 100
	}
	if limit <= 0 {
		limit = def
	}
	if limit <= 0 {
		limit = max
	}
	if limit > max {
		limit = max
	}
	return limit
}
