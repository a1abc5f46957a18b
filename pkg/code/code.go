package code

import (
	"fmt"
	"net/http"
)

// JSON-RPC 2.0 error codes reported through the tool protocol
// 工具协议使用的 JSON-RPC 2.0 错误码
const (
	RPCParseError     = -32700
	RPCInvalidRequest = -32600
	RPCMethodNotFound = -32601
	RPCInvalidParams  = -32602
	RPCInternalError  = -32603
)

type Code struct {
	// 状态码
	code int
	// 机器可读的错误类型，例如 VALIDATION_ERROR
	kind string
	// 是否成功
	status bool
	// HTTP 状态码
	httpStatus int
	// JSON-RPC 错误码
	rpcCode int
	// 错误消息
	Lang lang
}

var codes = map[int]string{}
var kinds = map[string]int{}

func NewError(code int, kind string, httpStatus, rpcCode int, l lang) *Code {
	if _, ok := codes[code]; ok {
		panic(fmt.Sprintf("error code %d already exists", code))
	}
	if _, ok := kinds[kind]; ok {
		panic(fmt.Sprintf("error kind %s already exists", kind))
	}
	codes[code] = l.GetMessage()
	kinds[kind] = code

	return &Code{code: code, kind: kind, status: false, httpStatus: httpStatus, rpcCode: rpcCode, Lang: l}
}

var sussCodes = map[int]string{}

func NewSuss(code int, httpStatus int, l lang) *Code {
	if _, ok := sussCodes[code]; ok {
		panic(fmt.Sprintf("success code %d already exists", code))
	}
	sussCodes[code] = l.GetMessage()

	return &Code{code: code, kind: "OK", status: true, httpStatus: httpStatus, Lang: l}
}

func (e *Code) Error() string {
	return e.Msg()
}

func (e *Code) Code() int {
	return e.code
}

// Kind returns the machine-readable error type
// Kind 返回机器可读的错误类型
func (e *Code) Kind() string {
	return e.kind
}

func (e *Code) Status() bool {
	return e.status
}

func (e *Code) Msg() string {
	return e.Lang.GetMessage()
}

// MsgIn returns the message in the given language, falling back to English
// MsgIn 返回指定语言的消息，不存在时回退到英文
func (e *Code) MsgIn(language string) string {
	return e.Lang.messageFor(language)
}

func (e *Code) StatusCode() int {
	if e.httpStatus == 0 {
		return http.StatusOK
	}
	return e.httpStatus
}

// RPCCode returns the JSON-RPC error code for the tool protocol
// RPCCode 返回工具协议使用的 JSON-RPC 错误码
func (e *Code) RPCCode() int {
	if e.rpcCode == 0 {
		return RPCInternalError
	}
	return e.rpcCode
}
