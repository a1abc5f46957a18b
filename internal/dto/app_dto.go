package dto

import "github.com/haierkeys/memory-server/pkg/timex"

// HealthDTO Health check response
// HealthDTO 健康检查响应
type HealthDTO struct {
	Status    string     `json:"status"`   // healthy | unhealthy
	Version   string     `json:"version"`
	Uptime    string     `json:"uptime"`
	Database  string     `json:"database"` // connected | error
	Timestamp timex.Time `json:"timestamp"`
	Entries   int64      `json:"entries"`
}

// StatsDTO 存储统计
type StatsDTO struct {
	DatabaseOK bool  `json:"database_ok"`
	Entries    int64 `json:"entries"`
}

// VersionDTO 版本信息
type VersionDTO struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GitTag    string `json:"gitTag"`
	BuildTime string `json:"buildTime"`
}
