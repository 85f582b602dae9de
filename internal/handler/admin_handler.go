package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/boardman/internal/model"
)

// AdminServiceInterface は管理者ハンドラーが必要とするサービスインターフェース。
type AdminServiceInterface interface {
	Stats(ctx context.Context) (*model.Stats, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*model.User, error)
	GrantAdmin(ctx context.Context, targetID string) (*model.User, error)
	RevokeAdmin(ctx context.Context, targetID string) (*model.User, error)
}

// AdminHandler は管理者向けのHTTPハンドラー。
// すべてのエンドポイントはAdminMiddlewareの配下に配置する。
type AdminHandler struct {
	service AdminServiceInterface
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(service AdminServiceInterface) *AdminHandler {
	return &AdminHandler{
		service: service,
	}
}

// statsResponse はシステム統計のAPIレスポンス。
type statsResponse struct {
	TotalUsers  int64 `json:"total_users"`
	TotalBoards int64 `json:"total_boards"`
	TotalViews  int64 `json:"total_views"`
}

// Stats は現在のシステム統計を返す。
// GET /api/admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		TotalUsers:  stats.TotalUsers,
		TotalBoards: stats.TotalBoards,
		TotalViews:  stats.TotalViews,
	})
}

// ListUsers はユーザー一覧を返す。
// GET /api/admin/users?limit=20&offset=0
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	users, err := h.service.ListUsers(r.Context(), limit, offset)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]userResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, responses)
}

// GrantAdmin は指定ユーザーに管理者権限を付与する。
// POST /api/admin/users/{id}/roles/admin
func (h *AdminHandler) GrantAdmin(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "id")

	user, err := h.service.GrantAdmin(r.Context(), targetID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// RevokeAdmin は指定ユーザーから管理者権限を剥奪する。
// 剥奪によってロールが空になる場合は400を返す。
// DELETE /api/admin/users/{id}/roles/admin
func (h *AdminHandler) RevokeAdmin(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "id")

	user, err := h.service.RevokeAdmin(r.Context(), targetID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}
