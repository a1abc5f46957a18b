// Package app gin response and binding helpers for the REST adapter
// Package app REST 入口的响应与参数绑定工具
package app

import (
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/haierkeys/memory-server/pkg/code"
	apperrors "github.com/haierkeys/memory-server/pkg/errors"
	"github.com/haierkeys/memory-server/pkg/util"

	"github.com/gin-gonic/gin"
)

// StatusCodeKey 响应状态码在 gin.Context 中的键，访问日志读取
const StatusCodeKey = "status_code"

type Response struct {
	Ctx *gin.Context
}

// ErrorBody REST 错误体
type ErrorBody struct {
	Code    string         `json:"code"` // Error kind, e.g. VALIDATION_ERROR // 错误类型
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

// ErrorRes REST 错误响应 {"error": {...}}
type ErrorRes struct {
	Error ErrorBody `json:"error"`
}

func NewResponse(ctx *gin.Context) *Response {
	return &Response{
		Ctx: ctx,
	}
}

// ToResponse writes data with the HTTP status of codeObj
// ToResponse 按 codeObj 的 HTTP 状态码输出数据
func (r *Response) ToResponse(codeObj *code.Code, data any) {
	r.Ctx.Set(StatusCodeKey, codeObj.StatusCode())
	r.Ctx.JSON(codeObj.StatusCode(), data)
}

// ToErrorResponse maps an error onto the REST error envelope
// ToErrorResponse 将错误映射为 REST 错误响应
// 非 AppError 一律视为内部错误，原始信息不对外输出
func (r *Response) ToErrorResponse(err error) {
	appErr := apperrors.From(err)

	message := appErr.Message
	if appErr.Code == code.ErrorDatabase || appErr.Code == code.ErrorServerInternal || message == "" {
		message = appErr.Code.MsgIn(r.lang())
	}

	details := appErr.Details
	if details == nil {
		details = map[string]any{}
	}

	status := appErr.Code.StatusCode()
	r.Ctx.Set(StatusCodeKey, status)
	r.Ctx.AbortWithStatusJSON(status, ErrorRes{Error: ErrorBody{
		Code:    appErr.Kind(),
		Message: message,
		Details: details,
	}})
}

func (r *Response) lang() string {
	if v, ok := r.Ctx.Get("lang"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return code.FALLBACK_LNG
}

// BindJSON decodes the request body into obj
// BindJSON 解析 JSON 请求体，格式错误转为 ValidationError(field=body)
// 只负责解码，字段校验在 service 层完成，未知字段忽略
func BindJSON(c *gin.Context, obj any) error {
	return bindJSON(c, obj, false)
}

// BindOptionalJSON is BindJSON for partial updates, an empty body decodes as {}
// BindOptionalJSON 用于部分更新，空请求体视为 {}
func BindOptionalJSON(c *gin.Context, obj any) error {
	return bindJSON(c, obj, true)
}

func bindJSON(c *gin.Context, obj any, optional bool) error {
	if c.Request.Body == nil {
		if optional {
			return nil
		}
		return apperrors.Validation("body", nil, "request body is required")
	}
	dec := json.NewDecoder(c.Request.Body)
	if err := dec.Decode(obj); err != nil {
		if errors.Is(err, io.EOF) {
			if optional {
				return nil
			}
			return apperrors.Validation("body", nil, "request body is required")
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return apperrors.Validation(typeErr.Field, nil, "invalid type for field "+typeErr.Field+": expected "+typeErr.Type.String())
		}
		return apperrors.Validation("body", nil, "malformed JSON body")
	}
	// 第一个 JSON 值之后只允许空白
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return apperrors.Validation("body", nil, "malformed JSON body")
	}
	return nil
}

// ParamInt64 解析路径参数中的整数
func ParamInt64(c *gin.Context, name string) (int64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.Validation(name, raw, name+" must be an integer")
	}
	return id, nil
}

// QueryInt 解析可选的整数查询参数，缺省返回 0
func QueryInt(c *gin.Context, name string) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, apperrors.Validation(name, raw, name+" must be an integer")
	}
	return n, nil
}

// QueryStrings reads a list query parameter
// QueryStrings 解析列表查询参数
// 只出现一次时按逗号拆分（?tags=a,b，\, 为字面逗号），重复出现时每个值原样使用（?tags=a,b&tags=c）
func QueryStrings(c *gin.Context, name string) []string {
	values := c.QueryArray(name)
	if len(values) == 1 {
		return util.SplitComma(values[0])
	}
	return values
}

// GetRequestIP gets the request IP
// GetRequestIP 获取ip
func GetRequestIP(c *gin.Context) string {
	reqIP := c.ClientIP()
	if reqIP == "::1" {
		reqIP = "127.0.0.1"
	}
	return reqIP
}
