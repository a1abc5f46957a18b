package mcp_router

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/haierkeys/memory-server/internal/app"
	"github.com/haierkeys/memory-server/internal/dao"
	"github.com/haierkeys/memory-server/pkg/metrics"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	c, err := app.NewDefaultConfig()
	require.NoError(t, err)
	c.Database.Path = filepath.Join(t.TempDir(), "memory.db")

	db, err := dao.NewDBEngineWithConfig(c.GetDatabaseConfig(), nil)
	require.NoError(t, err)

	a, err := app.NewApp(c, zap.NewNop(), db, app.WithMetrics(metrics.New(nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return a
}

// call 调用工具并把文本结果解析为 map
func call(t *testing.T, h *Handler, name string, fn toolFunc, args map[string]any) (map[string]any, bool) {
	t.Helper()
	var raw any
	if args != nil {
		raw = args
	}
	res, err := h.wrap(name, fn)(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: raw},
	})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out, res.IsError
}

func errorOf(t *testing.T, out map[string]any) map[string]any {
	t.Helper()
	e, ok := out["error"].(map[string]any)
	require.True(t, ok, "expected error payload, got %v", out)
	return e
}

func TestAddNote(t *testing.T) {
	h := NewHandler(newTestApp(t))

	out, isErr := call(t, h, ToolAddNote, h.AddNote, map[string]any{
		"content":  "  use gofmt  ",
		"tags":     []any{"rule", "go"},
		"keywords": []any{"format"},
	})
	require.False(t, isErr)
	assert.Equal(t, true, out["success"])
	assert.Contains(t, out["message"], "Memory entry created")

	entry := out["entry"].(map[string]any)
	assert.Equal(t, "use gofmt", entry["content"])
	assert.Equal(t, []any{"rule", "go"}, entry["tags"])
	assert.Equal(t, "", entry["summary"])
	assert.EqualValues(t, 1, entry["id"])
}

func TestAddNoteValidation(t *testing.T) {
	h := NewHandler(newTestApp(t))

	tests := []struct {
		name  string
		args  map[string]any
		kind  string
		field string
	}{
		{"missing content", map[string]any{}, "VALIDATION_ERROR", "content"},
		{"blank content", map[string]any{"content": " \t\n"}, "VALIDATION_ERROR", "content"},
		{"blank tag", map[string]any{"content": "x", "tags": []any{"a", " "}}, "VALIDATION_ERROR", "tags[1]"},
		{"content wrong type", map[string]any{"content": 42}, "MCP_PROTOCOL_ERROR", "content"},
		{"tags not array", map[string]any{"content": "x", "tags": "rule"}, "MCP_PROTOCOL_ERROR", "tags"},
		{"tag not string", map[string]any{"content": "x", "tags": []any{"a", 1}}, "MCP_PROTOCOL_ERROR", "tags[1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, isErr := call(t, h, ToolAddNote, h.AddNote, tt.args)
			require.True(t, isErr)
			e := errorOf(t, out)
			assert.Equal(t, tt.kind, e["kind"])
			assert.EqualValues(t, -32602, e["code"])
			assert.Equal(t, tt.field, e["data"].(map[string]any)["field"])
		})
	}

	list, isErr := call(t, h, ToolListAll, h.ListAll, nil)
	require.False(t, isErr)
	assert.EqualValues(t, 0, list["total_count"])
}

func TestSearchMemory(t *testing.T) {
	h := NewHandler(newTestApp(t))

	for _, args := range []map[string]any{
		{"content": "Deploy with Docker", "tags": []any{"ops"}},
		{"content": "Write tests", "tags": []any{"dev"}, "keywords": []any{"docker"}},
		{"content": "Unrelated"},
	} {
		_, isErr := call(t, h, ToolAddNote, h.AddNote, args)
		require.False(t, isErr)
	}

	out, isErr := call(t, h, ToolSearch, h.Search, map[string]any{"query": "DOCKER"})
	require.False(t, isErr)
	assert.EqualValues(t, 2, out["total_count"])
	results := out["results"].([]any)
	// 新的在前
	assert.Equal(t, "Write tests", results[0].(map[string]any)["content"])

	params := out["search_params"].(map[string]any)
	assert.Equal(t, "DOCKER", params["query"])
	assert.Equal(t, []any{}, params["tags"])
	assert.EqualValues(t, 10, params["limit"])

	out, isErr = call(t, h, ToolSearch, h.Search, map[string]any{"query": "docker", "tags": []any{"ops"}, "limit": 5})
	require.False(t, isErr)
	assert.EqualValues(t, 1, out["total_count"])

	out, isErr = call(t, h, ToolSearch, h.Search, map[string]any{"limit": 1.5})
	require.True(t, isErr)
	assert.Equal(t, "MCP_PROTOCOL_ERROR", errorOf(t, out)["kind"])
}

func TestProjectRules(t *testing.T) {
	h := NewHandler(newTestApp(t))

	for _, args := range []map[string]any{
		{"content": "a", "tags": []any{"rule"}},
		{"content": "b", "tags": []any{"ルール"}},
		{"content": "c", "tags": []any{"rulebook"}},
		{"content": "d", "tags": []any{"方針", "rule"}},
	} {
		_, isErr := call(t, h, ToolAddNote, h.AddNote, args)
		require.False(t, isErr)
	}

	out, isErr := call(t, h, ToolProjectRules, h.ProjectRules, nil)
	require.False(t, isErr)
	assert.EqualValues(t, 3, out["total_count"])
	rules := out["rules"].([]any)
	var contents []string
	for _, r := range rules {
		contents = append(contents, r.(map[string]any)["content"].(string))
	}
	assert.Equal(t, []string{"d", "b", "a"}, contents)
	assert.Len(t, out["rule_tags_searched"], 6)
}

func TestUpdateEntry(t *testing.T) {
	h := NewHandler(newTestApp(t))

	_, isErr := call(t, h, ToolAddNote, h.AddNote, map[string]any{
		"content": "old", "tags": []any{"a"}, "summary": "s",
	})
	require.False(t, isErr)

	out, isErr := call(t, h, ToolUpdateEntry, h.UpdateEntry, map[string]any{
		"entry_id": float64(1), "content": "new", "tags": []any{},
	})
	require.False(t, isErr)
	entry := out["entry"].(map[string]any)
	assert.Equal(t, "new", entry["content"])
	assert.Equal(t, []any{}, entry["tags"])
	assert.Equal(t, "s", entry["summary"])

	out, isErr = call(t, h, ToolUpdateEntry, h.UpdateEntry, map[string]any{"entry_id": 99, "content": "x"})
	require.True(t, isErr)
	e := errorOf(t, out)
	assert.Equal(t, "MEMORY_NOT_FOUND", e["kind"])
	assert.EqualValues(t, 99, e["data"].(map[string]any)["entry_id"])

	out, isErr = call(t, h, ToolUpdateEntry, h.UpdateEntry, map[string]any{"content": "x"})
	require.True(t, isErr)
	assert.Equal(t, "MCP_PROTOCOL_ERROR", errorOf(t, out)["kind"])

	out, isErr = call(t, h, ToolUpdateEntry, h.UpdateEntry, map[string]any{"entry_id": "1"})
	require.True(t, isErr)
	assert.Equal(t, "MCP_PROTOCOL_ERROR", errorOf(t, out)["kind"])

	out, isErr = call(t, h, ToolUpdateEntry, h.UpdateEntry, map[string]any{"entry_id": 1, "content": "  "})
	require.True(t, isErr)
	assert.Equal(t, "VALIDATION_ERROR", errorOf(t, out)["kind"])
}

func TestDeleteEntryTwice(t *testing.T) {
	h := NewHandler(newTestApp(t))

	_, isErr := call(t, h, ToolAddNote, h.AddNote, map[string]any{"content": "bye"})
	require.False(t, isErr)

	out, isErr := call(t, h, ToolDeleteEntry, h.DeleteEntry, map[string]any{"entry_id": 1})
	require.False(t, isErr)
	assert.Equal(t, true, out["deleted"])
	assert.EqualValues(t, 1, out["entry_id"])

	out, isErr = call(t, h, ToolDeleteEntry, h.DeleteEntry, map[string]any{"entry_id": 1})
	require.False(t, isErr)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, false, out["deleted"])

	out, isErr = call(t, h, ToolDeleteEntry, h.DeleteEntry, map[string]any{"entry_id": 0})
	require.True(t, isErr)
	assert.Equal(t, "VALIDATION_ERROR", errorOf(t, out)["kind"])
}

func TestListAllMemories(t *testing.T) {
	a := newTestApp(t)
	h := NewHandler(a)

	for _, c := range []string{"one", "two", "three"} {
		_, isErr := call(t, h, ToolAddNote, h.AddNote, map[string]any{"content": c, "tags": []any{"x"}})
		require.False(t, isErr)
	}

	out, isErr := call(t, h, ToolListAll, h.ListAll, map[string]any{"limit": 2})
	require.False(t, isErr)
	assert.EqualValues(t, 2, out["total_count"])
	assert.EqualValues(t, 2, out["limit"])
	entries := out["entries"].([]any)
	first := entries[0].(map[string]any)
	assert.Equal(t, "three", first["content"])
	meta := first["metadata"].(map[string]any)
	assert.EqualValues(t, 1, meta["tag_count"])
	assert.EqualValues(t, 5, meta["content_length"])

	assert.Equal(t, float64(3), testutil.ToFloat64(a.Metrics().ToolCalls.WithLabelValues(ToolAddNote, "ok")))
}

func TestNewToolArgs(t *testing.T) {
	args, err := newToolArgs(json.RawMessage(`{"limit": 3}`))
	require.NoError(t, err)
	n, err := args.integer("limit")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = newToolArgs(json.RawMessage(`[1,2]`))
	assert.Error(t, err)

	_, err = newToolArgs("nope")
	assert.Error(t, err)

	args, err = newToolArgs(nil)
	require.NoError(t, err)
	s, err := args.optString("content")
	require.NoError(t, err)
	assert.Nil(t, s)

	args = toolArgs{"limit": float64(1 << 40), "summary": nil}
	n, err = args.integer("limit")
	require.NoError(t, err)
	assert.Equal(t, 1<<31-1, n)
	s, err = args.optString("summary")
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestNewServerRegistersTools(t *testing.T) {
	s := NewServer(newTestApp(t))
	resp := s.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	b, err := json.Marshal(resp)
	require.NoError(t, err)
	for _, name := range ToolNames() {
		assert.Contains(t, string(b), `"name":"`+name+`"`)
	}
}
