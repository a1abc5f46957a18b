package code

import "net/http"

var (
	Success = NewSuss(1, http.StatusOK, lang{en: "Success", ja: "成功しました"})
	Created = NewSuss(2, http.StatusCreated, lang{en: "Memory entry created", ja: "メモリエントリが正常に追加されました"})
	Updated = NewSuss(3, http.StatusOK, lang{en: "Memory entry updated", ja: "メモリエントリが正常に更新されました"})
	Deleted = NewSuss(4, http.StatusOK, lang{en: "Memory entry deleted", ja: "メモリエントリが正常に削除されました"})
	Listed  = NewSuss(5, http.StatusOK, lang{en: "Memory entries found", ja: "件のメモリエントリが見つかりました"})

	ErrorValidation      = NewError(400, "VALIDATION_ERROR", http.StatusBadRequest, RPCInvalidParams, lang{en: "Invalid parameters", ja: "入力パラメータが不正です"})
	ErrorMemoryNotFound  = NewError(404, "MEMORY_NOT_FOUND", http.StatusNotFound, RPCInvalidParams, lang{en: "Memory entry not found", ja: "メモリエントリが見つかりません"})
	ErrorNotFoundAPI     = NewError(405, "API_NOT_FOUND", http.StatusNotFound, RPCMethodNotFound, lang{en: "API not found", ja: "APIが見つかりません"})
	ErrorTooManyRequests = NewError(429, "TOO_MANY_REQUESTS", http.StatusTooManyRequests, RPCInternalError, lang{en: "Too many requests", ja: "リクエストが多すぎます"})
	ErrorDatabase        = NewError(500, "DATABASE_ERROR", http.StatusInternalServerError, RPCInternalError, lang{en: "Database operation failed", ja: "データベース操作中にエラーが発生しました"})
	ErrorServerInternal  = NewError(501, "INTERNAL_ERROR", http.StatusInternalServerError, RPCInternalError, lang{en: "Unexpected internal error", ja: "予期しないエラーが発生しました"})
	ErrorProtocol        = NewError(502, "MCP_PROTOCOL_ERROR", http.StatusBadRequest, RPCInvalidParams, lang{en: "Malformed tool invocation", ja: "ツール呼び出しの形式が不正です"})
)
