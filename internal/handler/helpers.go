// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/boardman/internal/model"
)

const sessionCookieName = "session_id"

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	writeJSON(w, statusCode, apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// writeUnauthorized は認証エラーレスポンスを書き込む。
func writeUnauthorized(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
		Code:     "UNAUTHORIZED",
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	})
}

// writeInvalidRequest はリクエストボディ解析失敗レスポンスを書き込む。
func writeInvalidRequest(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
// ストレージ操作のタイムアウトはTIMEOUTとして区別し、部分適用の
// 可能性をユーザーに伝える。
func handleServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		writeAPIErrorResponse(w, http.StatusGatewayTimeout, model.NewTimeoutError())
		return
	}

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeTokenNotFound, model.ErrCodeUserNotFound,
		model.ErrCodeBoardNotFound, model.ErrCodeReplyNotFound:
		return http.StatusNotFound
	case model.ErrCodeTokenExpired, model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeTokenAlreadyUsed, model.ErrCodeAlreadyVerified,
		model.ErrCodeConflict, model.ErrCodeDuplicateUsername,
		model.ErrCodeDuplicateEmail:
		return http.StatusConflict
	case model.ErrCodeEmailNotVerified, model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeInvalidContent, model.ErrCodeInvalidTitle,
		model.ErrCodeBoardMismatch, model.ErrCodeLastRole:
		return http.StatusBadRequest
	case model.ErrCodeMaxDepthExceeded, model.ErrCodeParentUnavailable:
		return http.StatusUnprocessableEntity
	case model.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		if apiErr.Category == "validation" {
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	}
}
