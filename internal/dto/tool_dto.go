package dto

// Tool payloads returned by the MCP adapter. Entry and list shapes are the REST ones.
// MCP 工具返回的结构，条目与列表沿用 REST 的形状

// ToolEntryResult add_note_to_memory / update_memory_entry 的返回
type ToolEntryResult struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Entry   *MemoryDTO `json:"entry"`
}

// ToolSearchParams 回显实际使用的检索参数
type ToolSearchParams struct {
	Query string   `json:"query"`
	Tags  []string `json:"tags"`
	Limit int      `json:"limit"`
}

// ToolSearchResult search_memory 的返回
type ToolSearchResult struct {
	Success      bool             `json:"success"`
	Message      string           `json:"message"`
	Results      []*MemoryDTO     `json:"results"`
	TotalCount   int              `json:"total_count"`
	SearchParams ToolSearchParams `json:"search_params"`
}

// ToolListResult list_all_memories 的返回
type ToolListResult struct {
	Success    bool         `json:"success"`
	Message    string       `json:"message"`
	Entries    []*MemoryDTO `json:"entries"`
	TotalCount int          `json:"total_count"`
	Limit      int          `json:"limit"`
}

// ToolRulesResult get_project_rules 的返回
type ToolRulesResult struct {
	Success          bool         `json:"success"`
	Message          string       `json:"message"`
	Rules            []*MemoryDTO `json:"rules"`
	TotalCount       int          `json:"total_count"`
	RuleTagsSearched []string     `json:"rule_tags_searched"`
}

// ToolDeleteResult delete_memory_entry 的返回
type ToolDeleteResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Deleted bool   `json:"deleted"`
	EntryID int64  `json:"entry_id"`
}

// ToolErrorBody 工具错误体
type ToolErrorBody struct {
	Code    int            `json:"code"` // JSON-RPC error code
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// ToolErrorResult isError=true 时的返回
type ToolErrorResult struct {
	Error ToolErrorBody `json:"error"`
}
