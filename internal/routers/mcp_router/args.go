package mcp_router

import (
	"encoding/json"
	"fmt"
	"math"

	apperrors "github.com/haierkeys/memory-server/pkg/errors"
)

// toolArgs 严格解码工具参数
// 类型不符一律返回 ProtocolError，缺省和 null 视为未提供
type toolArgs map[string]any

func newToolArgs(raw any) (toolArgs, error) {
	switch v := raw.(type) {
	case nil:
		return toolArgs{}, nil
	case map[string]any:
		return toolArgs(v), nil
	case json.RawMessage:
		return decodeRaw(v)
	case []byte:
		return decodeRaw(v)
	default:
		return nil, apperrors.Protocol("arguments", "arguments must be a JSON object")
	}
}

func decodeRaw(b []byte) (toolArgs, error) {
	if len(b) == 0 {
		return toolArgs{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, apperrors.Protocol("arguments", "arguments must be a JSON object")
	}
	if m == nil {
		m = map[string]any{}
	}
	return toolArgs(m), nil
}

func (a toolArgs) lookup(name string) (any, bool) {
	v, ok := a[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// optString 可选字符串
func (a toolArgs) optString(name string) (*string, error) {
	v, ok := a.lookup(name)
	if !ok {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, typeError(name, "a string", v)
	}
	return &s, nil
}

// str 缺省返回空串
func (a toolArgs) str(name string) (string, error) {
	s, err := a.optString(name)
	if err != nil || s == nil {
		return "", err
	}
	return *s, nil
}

// optStrings 可选字符串数组
func (a toolArgs) optStrings(name string) (*[]string, error) {
	v, ok := a.lookup(name)
	if !ok {
		return nil, nil
	}
	var out []string
	switch items := v.(type) {
	case []string:
		out = append([]string{}, items...)
	case []any:
		out = make([]string, 0, len(items))
		for i, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, typeError(fmt.Sprintf("%s[%d]", name, i), "a string", item)
			}
			out = append(out, s)
		}
	default:
		return nil, typeError(name, "an array of strings", v)
	}
	return &out, nil
}

// strList 缺省返回 nil
func (a toolArgs) strList(name string) ([]string, error) {
	s, err := a.optStrings(name)
	if err != nil || s == nil {
		return nil, err
	}
	return *s, nil
}

// optInt 可选整数，带小数部分的数字视为类型错误
func (a toolArgs) optInt(name string) (*int64, error) {
	v, ok := a.lookup(name)
	if !ok {
		return nil, nil
	}
	var n int64
	switch num := v.(type) {
	case float64:
		if math.IsNaN(num) || math.IsInf(num, 0) || num != math.Trunc(num) || math.Abs(num) > 1<<53 {
			return nil, typeError(name, "an integer", v)
		}
		n = int64(num)
	case int:
		n = int64(num)
	case int64:
		n = num
	case json.Number:
		i, err := num.Int64()
		if err != nil {
			return nil, typeError(name, "an integer", v)
		}
		n = i
	default:
		return nil, typeError(name, "an integer", v)
	}
	return &n, nil
}

// integer 缺省返回 0，超出 int32 范围时截断
func (a toolArgs) integer(name string) (int, error) {
	n, err := a.optInt(name)
	if err != nil || n == nil {
		return 0, err
	}
	if *n > math.MaxInt32 {
		return math.MaxInt32, nil
	}
	if *n < math.MinInt32 {
		return math.MinInt32, nil
	}
	return int(*n), nil
}

// requiredInt 必填整数
func (a toolArgs) requiredInt(name string) (int64, error) {
	n, err := a.optInt(name)
	if err != nil {
		return 0, err
	}
	if n == nil {
		return 0, apperrors.Protocol(name, name+" is required")
	}
	return *n, nil
}

func typeError(field, want string, got any) error {
	return apperrors.Protocol(field, fmt.Sprintf("%s must be %s, got %s", field, want, jsonType(got)))
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64, int, int64, json.Number:
		return "number"
	case string:
		return "string"
	case []any, []string:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
