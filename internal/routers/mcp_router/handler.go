// Package mcp_router 提供 MCP 工具处理器
// 与 REST 共用 MemoryService，只负责参数解码和结果编码
package mcp_router

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/haierkeys/memory-server/internal/app"
	"github.com/haierkeys/memory-server/internal/domain"
	"github.com/haierkeys/memory-server/internal/dto"
	"github.com/haierkeys/memory-server/pkg/code"
	apperrors "github.com/haierkeys/memory-server/pkg/errors"
	"github.com/haierkeys/memory-server/pkg/logger"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

// 工具名称
const (
	ToolAddNote      = "add_note_to_memory"
	ToolSearch       = "search_memory"
	ToolProjectRules = "get_project_rules"
	ToolUpdateEntry  = "update_memory_entry"
	ToolDeleteEntry  = "delete_memory_entry"
	ToolListAll      = "list_all_memories"
)

// Handler MCP 工具处理器
type Handler struct {
	App *app.App
}

// NewHandler 创建工具处理器实例
func NewHandler(a *app.App) *Handler {
	return &Handler{App: a}
}

// toolFunc 解码后的工具实现，返回成功 payload
type toolFunc func(ctx context.Context, args toolArgs) (any, error)

// wrap 统一处理参数解码、错误编码、日志和指标
// 业务错误以 isError=true 的结果返回，不作为 JSON-RPC 错误
func (h *Handler) wrap(name string, fn toolFunc) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()

		var payload any
		args, err := newToolArgs(request.Params.Arguments)
		if err == nil {
			payload, err = fn(ctx, args)
		}

		result := "ok"
		if err != nil {
			appErr := apperrors.From(err)
			result = appErr.Kind()
			h.App.Metrics().ObserveTool(name, result)
			h.App.Logger().Warn("tool call failed",
				zap.String(logger.FieldTool, name),
				zap.String(logger.FieldKind, appErr.Kind()),
				zap.Duration(logger.FieldDuration, time.Since(start)))
			return errorResult(appErr), nil
		}

		h.App.Metrics().ObserveTool(name, result)
		h.App.Logger().Debug("tool call",
			zap.String(logger.FieldTool, name),
			zap.Duration(logger.FieldDuration, time.Since(start)))
		return jsonResult(payload, false), nil
	}
}

// AddNote add_note_to_memory
func (h *Handler) AddNote(ctx context.Context, args toolArgs) (any, error) {
	content, err := args.str("content")
	if err != nil {
		return nil, err
	}
	tags, err := args.strList("tags")
	if err != nil {
		return nil, err
	}
	keywords, err := args.strList("keywords")
	if err != nil {
		return nil, err
	}
	summary, err := args.str("summary")
	if err != nil {
		return nil, err
	}

	entry, err := h.App.MemoryService.Create(ctx, &dto.MemoryCreateRequest{
		Content:  content,
		Tags:     tags,
		Keywords: keywords,
		Summary:  summary,
	})
	if err != nil {
		return nil, err
	}
	return dto.ToolEntryResult{
		Success: true,
		Message: fmt.Sprintf("%s (ID: %d)", code.Created.Msg(), entry.ID),
		Entry:   entry,
	}, nil
}

// Search search_memory
func (h *Handler) Search(ctx context.Context, args toolArgs) (any, error) {
	query, err := args.str("query")
	if err != nil {
		return nil, err
	}
	tags, err := args.strList("tags")
	if err != nil {
		return nil, err
	}
	limit, err := args.integer("limit")
	if err != nil {
		return nil, err
	}

	list, err := h.App.MemoryService.Search(ctx, &dto.MemorySearchRequest{Query: query, Tags: tags, Limit: limit})
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []string{}
	}
	return dto.ToolSearchResult{
		Success:    true,
		Message:    fmt.Sprintf("Found %d memory entries", list.TotalCount),
		Results:    list.Entries,
		TotalCount: list.TotalCount,
		SearchParams: dto.ToolSearchParams{
			Query: query,
			Tags:  tags,
			Limit: list.Limit,
		},
	}, nil
}

// ProjectRules get_project_rules
func (h *Handler) ProjectRules(ctx context.Context, args toolArgs) (any, error) {
	limit, err := args.integer("limit")
	if err != nil {
		return nil, err
	}

	list, err := h.App.MemoryService.ListRules(ctx, &dto.MemoryRulesRequest{Limit: limit})
	if err != nil {
		return nil, err
	}
	return dto.ToolRulesResult{
		Success:          true,
		Message:          fmt.Sprintf("Found %d project rules", list.TotalCount),
		Rules:            list.Entries,
		TotalCount:       list.TotalCount,
		RuleTagsSearched: append([]string{}, domain.RuleTags...),
	}, nil
}

// UpdateEntry update_memory_entry
func (h *Handler) UpdateEntry(ctx context.Context, args toolArgs) (any, error) {
	id, err := args.requiredInt("entry_id")
	if err != nil {
		return nil, err
	}
	params := &dto.MemoryUpdateRequest{ID: id}
	if params.Content, err = args.optString("content"); err != nil {
		return nil, err
	}
	if params.Tags, err = args.optStrings("tags"); err != nil {
		return nil, err
	}
	if params.Keywords, err = args.optStrings("keywords"); err != nil {
		return nil, err
	}
	if params.Summary, err = args.optString("summary"); err != nil {
		return nil, err
	}

	entry, err := h.App.MemoryService.Update(ctx, params)
	if err != nil {
		return nil, err
	}
	return dto.ToolEntryResult{
		Success: true,
		Message: fmt.Sprintf("%s (ID: %d)", code.Updated.Msg(), entry.ID),
		Entry:   entry,
	}, nil
}

// DeleteEntry delete_memory_entry
// 条目不存在时 deleted=false，不视为错误
func (h *Handler) DeleteEntry(ctx context.Context, args toolArgs) (any, error) {
	id, err := args.requiredInt("entry_id")
	if err != nil {
		return nil, err
	}

	deleted, err := h.App.MemoryService.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	message := fmt.Sprintf("%s (ID: %d)", code.Deleted.Msg(), id)
	if !deleted {
		message = fmt.Sprintf("Memory entry with ID %d did not exist", id)
	}
	return dto.ToolDeleteResult{
		Success: true,
		Message: message,
		Deleted: deleted,
		EntryID: id,
	}, nil
}

// ListAll list_all_memories
func (h *Handler) ListAll(ctx context.Context, args toolArgs) (any, error) {
	limit, err := args.integer("limit")
	if err != nil {
		return nil, err
	}

	list, err := h.App.MemoryService.List(ctx, &dto.MemoryListRequest{Limit: limit})
	if err != nil {
		return nil, err
	}
	return dto.ToolListResult{
		Success:    true,
		Message:    fmt.Sprintf("Retrieved %d memory entries", list.TotalCount),
		Entries:    list.Entries,
		TotalCount: list.TotalCount,
		Limit:      list.Limit,
	}, nil
}

// errorResult 工具错误 payload，存储故障只输出通用消息
func errorResult(appErr *apperrors.AppError) *mcp.CallToolResult {
	message := appErr.Message
	if appErr.Code == code.ErrorDatabase || appErr.Code == code.ErrorServerInternal || message == "" {
		message = appErr.Code.Msg()
	}
	return jsonResult(dto.ToolErrorResult{Error: dto.ToolErrorBody{
		Code:    appErr.Code.RPCCode(),
		Kind:    appErr.Kind(),
		Message: message,
		Data:    appErr.Details,
	}}, true)
}

func jsonResult(payload any, isError bool) *mcp.CallToolResult {
	b, err := json.Marshal(payload)
	if err != nil {
		b = []byte(`{"error":{"code":-32603,"kind":"INTERNAL_ERROR","message":"failed to encode result"}}`)
		isError = true
	}
	res := mcp.NewToolResultText(string(b))
	res.IsError = isError
	return res
}
