// Package api_router 提供 HTTP API 路由处理器
package api_router

import (
	"github.com/haierkeys/memory-server/internal/dto"
	pkgapp "github.com/haierkeys/memory-server/pkg/app"
	"github.com/haierkeys/memory-server/pkg/code"

	"github.com/gin-gonic/gin"
)

// MemoryHandler 记忆条目 API 处理器
// 只负责解码请求和编码响应，校验与业务都在 MemoryService
type MemoryHandler struct {
	*Handler
}

// NewMemoryHandler 创建记忆条目处理器实例
func NewMemoryHandler(h *Handler) *MemoryHandler {
	return &MemoryHandler{Handler: h}
}

// Create 创建条目
// POST /memories
func (h *MemoryHandler) Create(c *gin.Context) {
	response := pkgapp.NewResponse(c)

	params := &dto.MemoryCreateRequest{}
	if err := pkgapp.BindJSON(c, params); err != nil {
		response.ToErrorResponse(err)
		return
	}

	entry, err := h.App.MemoryService.Create(c.Request.Context(), params)
	if err != nil {
		response.ToErrorResponse(err)
		return
	}
	response.ToResponse(code.Created, entry)
}

// Get 获取单条条目
// GET /memories/:id
func (h *MemoryHandler) Get(c *gin.Context) {
	response := pkgapp.NewResponse(c)

	id, err := pkgapp.ParamInt64(c, "id")
	if err != nil {
		response.ToErrorResponse(err)
		return
	}

	entry, err := h.App.MemoryService.Get(c.Request.Context(), id)
	if err != nil {
		response.ToErrorResponse(err)
		return
	}
	response.ToResponse(code.Success, entry)
}

// Update 部分更新条目
// PUT /memories/:id
func (h *MemoryHandler) Update(c *gin.Context) {
	response := pkgapp.NewResponse(c)

	id, err := pkgapp.ParamInt64(c, "id")
	if err != nil {
		response.ToErrorResponse(err)
		return
	}

	params := &dto.MemoryUpdateRequest{}
	if err := pkgapp.BindOptionalJSON(c, params); err != nil {
		response.ToErrorResponse(err)
		return
	}
	// 以路径中的 id 为准
	params.ID = id

	entry, err := h.App.MemoryService.Update(c.Request.Context(), params)
	if err != nil {
		response.ToErrorResponse(err)
		return
	}
	response.ToResponse(code.Updated, entry)
}

// Delete 删除条目
// DELETE /memories/:id
func (h *MemoryHandler) Delete(c *gin.Context) {
	response := pkgapp.NewResponse(c)

	id, err := pkgapp.ParamInt64(c, "id")
	if err != nil {
		response.ToErrorResponse(err)
		return
	}

	deleted, err := h.App.MemoryService.Delete(c.Request.Context(), id)
	if err != nil {
		response.ToErrorResponse(err)
		return
	}
	response.ToResponse(code.Deleted, dto.MemoryDeleteDTO{Deleted: deleted})
}

// List 条目列表
// GET /memories?q=&tags=&limit=
func (h *MemoryHandler) List(c *gin.Context) {
	response := pkgapp.NewResponse(c)

	limit, err := pkgapp.QueryInt(c, "limit")
	if err != nil {
		response.ToErrorResponse(err)
		return
	}

	list, err := h.App.MemoryService.List(c.Request.Context(), &dto.MemoryListRequest{
		Query: c.Query("q"),
		Tags:  pkgapp.QueryStrings(c, "tags"),
		Limit: limit,
	})
	if err != nil {
		response.ToErrorResponse(err)
		return
	}
	response.ToResponse(code.Listed, list)
}

// Search 检索
// GET /memories/search?q=&tags=&limit=
func (h *MemoryHandler) Search(c *gin.Context) {
	response := pkgapp.NewResponse(c)

	limit, err := pkgapp.QueryInt(c, "limit")
	if err != nil {
		response.ToErrorResponse(err)
		return
	}

	list, err := h.App.MemoryService.Search(c.Request.Context(), &dto.MemorySearchRequest{
		Query: c.Query("q"),
		Tags:  pkgapp.QueryStrings(c, "tags"),
		Limit: limit,
	})
	if err != nil {
		response.ToErrorResponse(err)
		return
	}
	response.ToResponse(code.Listed, list)
}

// ListByTag 标签包含子串的条目
// GET /memories/tags/:tag
func (h *MemoryHandler) ListByTag(c *gin.Context) {
	response := pkgapp.NewResponse(c)

	limit, err := pkgapp.QueryInt(c, "limit")
	if err != nil {
		response.ToErrorResponse(err)
		return
	}

	list, err := h.App.MemoryService.ListByTagContains(c.Request.Context(), &dto.MemoryTagRequest{
		Tag:   c.Param("tag"),
		Limit: limit,
	})
	if err != nil {
		response.ToErrorResponse(err)
		return
	}
	response.ToResponse(code.Listed, list)
}

// ListRules 规则条目
// GET /memories/rules
func (h *MemoryHandler) ListRules(c *gin.Context) {
	response := pkgapp.NewResponse(c)

	limit, err := pkgapp.QueryInt(c, "limit")
	if err != nil {
		response.ToErrorResponse(err)
		return
	}

	list, err := h.App.MemoryService.ListRules(c.Request.Context(), &dto.MemoryRulesRequest{Limit: limit})
	if err != nil {
		response.ToErrorResponse(err)
		return
	}
	response.ToResponse(code.Listed, list)
}
