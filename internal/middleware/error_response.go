package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/examexperts/internal/model"
)

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// ボディは {"error": メッセージ, "code": エラーコード} で、
// Detailsの各キーはトップレベルに展開される（例: requirements）。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	body := make(map[string]any, len(apiErr.Details)+2)
	for k, v := range apiErr.Details {
		body[k] = v
	}
	body["error"] = apiErr.Message
	body["code"] = apiErr.Code

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}
