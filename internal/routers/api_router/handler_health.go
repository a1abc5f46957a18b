// Package api_router 提供 HTTP API 路由处理器
package api_router

import (
	"net/http"
	"time"

	"github.com/haierkeys/memory-server/internal/dto"
	"github.com/haierkeys/memory-server/pkg/timex"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthHandler 健康检查处理器
type HealthHandler struct {
	*Handler
}

// NewHealthHandler 创建健康检查处理器实例
func NewHealthHandler(h *Handler) *HealthHandler {
	return &HealthHandler{Handler: h}
}

// Check 健康检查接口
// 数据库不可用时 status 为 unhealthy，HTTP 状态仍为 200
func (h *HealthHandler) Check(c *gin.Context) {
	response := dto.HealthDTO{
		Status:    "healthy",
		Version:   h.App.Version().Version,
		Uptime:    h.App.Uptime().Round(time.Second).String(),
		Database:  "connected",
		Timestamp: timex.Now(),
	}

	stats, err := h.App.MemoryService.Stats(c.Request.Context())
	if err != nil || !stats.DatabaseOK {
		h.App.Logger().Warn("health check failed", zap.Error(err))
		response.Status = "unhealthy"
		response.Database = "error"
	}
	if stats != nil {
		response.Entries = stats.Entries
	}

	c.JSON(http.StatusOK, response)
}

// Index 服务信息
func (h *HealthHandler) Index(c *gin.Context) {
	cfg := h.App.Config()
	info := gin.H{
		"name":    h.App.Version().Name,
		"version": h.App.Version().Version,
		"status":  "running",
	}
	if cfg.Server.McpPort != 0 {
		info["mcp_endpoint"] = cfg.McpAddr() + cfg.Server.McpPath
	}
	c.JSON(http.StatusOK, info)
}
