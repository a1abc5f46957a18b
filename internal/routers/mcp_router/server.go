package mcp_router

import (
	"net/http"

	"github.com/haierkeys/memory-server/internal/app"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// NewServer 创建 MCP 服务并注册全部工具
func NewServer(appContainer *app.App) *server.MCPServer {
	s := server.NewMCPServer(
		app.ShortName,
		appContainer.Version().Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	h := NewHandler(appContainer)
	for _, t := range tools(h) {
		s.AddTool(t.tool, h.ToolHandler(t.tool.Name))
	}

	appContainer.Logger().Info("MCP tools registered", zap.Strings("tools", ToolNames()))
	return s
}

// NewHTTPHandler 以 streamable HTTP 方式提供 MCP 服务
func NewHTTPHandler(s *server.MCPServer, path string) http.Handler {
	if path == "" {
		path = "/mcp"
	}
	mux := http.NewServeMux()
	mux.Handle(path, server.NewStreamableHTTPServer(s, server.WithEndpointPath(path)))
	return mux
}

// ToolHandler 按名称返回包装后的工具处理函数，未知名称返回 nil
func (h *Handler) ToolHandler(name string) server.ToolHandlerFunc {
	for _, t := range tools(h) {
		if t.tool.Name == name {
			return h.wrap(name, t.fn)
		}
	}
	return nil
}

type toolDef struct {
	tool mcp.Tool
	fn   toolFunc
}

// ToolNames 已注册的工具名
func ToolNames() []string {
	return []string{ToolAddNote, ToolSearch, ToolProjectRules, ToolUpdateEntry, ToolDeleteEntry, ToolListAll}
}

func tools(h *Handler) []toolDef {
	return []toolDef{
		{
			tool: mcp.NewTool(ToolAddNote,
				mcp.WithDescription("Add a note to memory. Tag entries with rule, rules, ルール, 規則, 原則 or 方針 to mark them as project rules."),
				mcp.WithString("content", mcp.Required(), mcp.Description("Note body, must not be blank")),
				mcp.WithArray("tags", mcp.Description("Exact-match labels"), mcp.WithStringItems()),
				mcp.WithArray("keywords", mcp.Description("Labels used by free-text search"), mcp.WithStringItems()),
				mcp.WithString("summary", mcp.Description("Optional short summary")),
			),
			fn: h.AddNote,
		},
		{
			tool: mcp.NewTool(ToolSearch,
				mcp.WithDescription("Search memory. query matches content, tags, keywords and summary (case-insensitive substring); every tag in tags must be present."),
				mcp.WithString("query", mcp.Description("Free-text query")),
				mcp.WithArray("tags", mcp.Description("Required tags (all must match)"), mcp.WithStringItems()),
				mcp.WithNumber("limit", mcp.Description("Maximum results, default 10")),
			),
			fn: h.Search,
		},
		{
			tool: mcp.NewTool(ToolProjectRules,
				mcp.WithDescription("List entries tagged as project rules, newest first."),
				mcp.WithNumber("limit", mcp.Description("Maximum results")),
			),
			fn: h.ProjectRules,
		},
		{
			tool: mcp.NewTool(ToolUpdateEntry,
				mcp.WithDescription("Update fields of an entry. Omitted fields are left unchanged."),
				mcp.WithNumber("entry_id", mcp.Required(), mcp.Description("Entry id")),
				mcp.WithString("content", mcp.Description("New content")),
				mcp.WithArray("tags", mcp.Description("Replacement tags"), mcp.WithStringItems()),
				mcp.WithArray("keywords", mcp.Description("Replacement keywords"), mcp.WithStringItems()),
				mcp.WithString("summary", mcp.Description("New summary")),
			),
			fn: h.UpdateEntry,
		},
		{
			tool: mcp.NewTool(ToolDeleteEntry,
				mcp.WithDescription("Delete an entry. Deleting a missing entry reports deleted=false."),
				mcp.WithNumber("entry_id", mcp.Required(), mcp.Description("Entry id")),
			),
			fn: h.DeleteEntry,
		},
		{
			tool: mcp.NewTool(ToolListAll,
				mcp.WithDescription("List the most recent entries with metadata."),
				mcp.WithNumber("limit", mcp.Description("Maximum results, default 50")),
			),
			fn: h.ListAll,
		},
	}
}
