package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/boardman/internal/middleware"
	"github.com/hitoshi/boardman/internal/model"
)

// ReplyServiceInterface は返信ハンドラーが必要とするサービスインターフェース。
type ReplyServiceInterface interface {
	Add(ctx context.Context, authorID string, target model.ReplyTarget, content string) (*model.Reply, error)
	ListTree(ctx context.Context, boardID string) ([]*model.Reply, error)
	Update(ctx context.Context, actorID, replyID, content string) (*model.Reply, error)
	Delete(ctx context.Context, actorID, replyID string) error
}

// ReplyHandler は返信管理のHTTPハンドラー。
type ReplyHandler struct {
	service ReplyServiceInterface
}

// NewReplyHandler はReplyHandlerを生成する。
func NewReplyHandler(service ReplyServiceInterface) *ReplyHandler {
	return &ReplyHandler{
		service: service,
	}
}

// replyRequest は返信の作成・更新リクエストのボディ。
type replyRequest struct {
	Content string `json:"content"`
}

// replyResponse は返信情報のAPIレスポンス。
// 墓標化済みの返信はdeleted=trueかつcontent=""で返る。
type replyResponse struct {
	ID        string    `json:"id"`
	BoardID   string    `json:"board_id"`
	ParentID  *string   `json:"parent_id,omitempty"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	Depth     int       `json:"depth"`
	Deleted   bool      `json:"deleted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateOnBoard は投稿直下（depth 0）の返信を作成する。
// POST /api/boards/{id}/replies
func (h *ReplyHandler) CreateOnBoard(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	boardID := chi.URLParam(r, "id")

	var req replyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	reply, err := h.service.Add(r.Context(), userID, model.BoardTarget(boardID), req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toReplyResponse(reply))
}

// CreateOnReply は既存返信の配下に返信を作成する。
// 親の深さが上限に達している場合は422を返す。
// POST /api/replies/{id}/replies
func (h *ReplyHandler) CreateOnReply(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	parentID := chi.URLParam(r, "id")

	var req replyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	reply, err := h.service.Add(r.Context(), userID, model.ReplyToTarget(parentID), req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toReplyResponse(reply))
}

// ListTree は投稿配下の返信ツリー全体を返す。
// 親は必ず子より先に現れ、兄弟はcreated_at昇順。
// GET /api/boards/{id}/replies
func (h *ReplyHandler) ListTree(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "id")

	replies, err := h.service.ListTree(r.Context(), boardID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]replyResponse, 0, len(replies))
	for _, reply := range replies {
		responses = append(responses, toReplyResponse(reply))
	}
	writeJSON(w, http.StatusOK, responses)
}

// Update は返信の本文を更新する。作成者本人または管理者のみ。
// PATCH /api/replies/{id}
func (h *ReplyHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	replyID := chi.URLParam(r, "id")

	var req replyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	reply, err := h.service.Update(r.Context(), userID, replyID, req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toReplyResponse(reply))
}

// Delete は返信を墓標化する。作成者本人または管理者のみ。
// 子返信はツリー上の位置を保ったまま残る。
// DELETE /api/replies/{id}
func (h *ReplyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	replyID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), userID, replyID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toReplyResponse はmodel.ReplyからAPIレスポンスに変換する。
func toReplyResponse(reply *model.Reply) replyResponse {
	return replyResponse{
		ID:        reply.ID,
		BoardID:   reply.BoardID,
		ParentID:  reply.ParentID,
		AuthorID:  reply.AuthorID,
		Content:   reply.Content,
		Depth:     reply.Depth,
		Deleted:   reply.Deleted,
		CreatedAt: reply.CreatedAt,
		UpdatedAt: reply.UpdatedAt,
	}
}
