package logger

// 统一的日志字段命名常量
// 用于确保整个项目中日志字段命名的一致性，便于日志查询和分析
const (
	// FieldTraceID 追踪 ID 字段
	FieldTraceID = "traceId"

	// FieldEntryID 记忆条目 ID 字段
	FieldEntryID = "entryId"

	// FieldOperation 存储操作名称字段
	FieldOperation = "operation"

	// FieldTool 工具名称字段
	FieldTool = "tool"

	// FieldDuration 耗时字段
	FieldDuration = "duration"

	// FieldMethod 方法名称字段
	FieldMethod = "method"

	// FieldCount 结果数量字段
	FieldCount = "count"

	// FieldKind 错误类型字段
	FieldKind = "kind"

	// FieldError 错误信息字段
	FieldError = "error"
)
