package errors

import (
	"errors"
	"fmt"
	"time"

	"github.com/haierkeys/memory-server/pkg/code"
)

// AppError 统一应用错误结构体
// 包含错误码、消息、详情和原始错误，不依赖任何传输层
type AppError struct {
	// Code 错误码
	Code *code.Code
	// Message 错误消息
	Message string
	// Details 错误详情（可选）
	Details map[string]any
	// Cause 原始错误（不对外输出）
	Cause error
	// Timestamp 错误发生时间
	Timestamp time.Time
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code.Kind(), e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code.Kind(), e.Message)
}

// Unwrap 实现 errors.Unwrap 接口，支持错误链路追踪
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Kind 返回机器可读的错误类型
func (e *AppError) Kind() string {
	return e.Code.Kind()
}

// NewAppError 从 Code 对象创建 AppError
func NewAppError(c *code.Code, cause error) *AppError {
	return &AppError{
		Code:      c,
		Message:   c.Msg(),
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// NewAppErrorWithMessage 创建带自定义消息的 AppError
func NewAppErrorWithMessage(c *code.Code, message string, cause error) *AppError {
	return &AppError{
		Code:      c,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// WithDetail 设置单个详情并返回自身（链式调用）
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Validation 输入不合法，field 为出错字段
func Validation(field string, value any, message string) *AppError {
	e := NewAppErrorWithMessage(code.ErrorValidation, message, nil).WithDetail("field", field)
	if value != nil {
		e.WithDetail("value", value)
	}
	return e
}

// NotFound 指定 id 的条目不存在
func NotFound(id int64) *AppError {
	return NewAppErrorWithMessage(code.ErrorMemoryNotFound, fmt.Sprintf("Memory entry with ID %d not found", id), nil).
		WithDetail("entry_id", id)
}

// Storage 存储层故障，对外只暴露通用消息，原始错误保留在 Cause 中
func Storage(operation string, cause error) *AppError {
	return NewAppError(code.ErrorDatabase, cause).WithDetail("operation", operation)
}

// Protocol 工具调用参数形态错误
func Protocol(field string, message string) *AppError {
	return NewAppErrorWithMessage(code.ErrorProtocol, message, nil).WithDetail("field", field)
}

// Internal 未预期的内部错误
func Internal(cause error) *AppError {
	return NewAppError(code.ErrorServerInternal, cause)
}

// IsAppError 检查错误是否为 AppError 类型
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError 从错误链中获取 AppError
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// Is 判断错误链中的 AppError 是否为指定错误码
func Is(err error, c *code.Code) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Code == c
}

// From 将任意错误转换为 AppError，非 AppError 视为内部错误
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr := GetAppError(err); appErr != nil {
		return appErr
	}
	return Internal(err)
}
