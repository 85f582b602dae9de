package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/boardman/internal/middleware"
	"github.com/hitoshi/boardman/internal/model"
)

// BoardServiceInterface は投稿ハンドラーが必要とするサービスインターフェース。
type BoardServiceInterface interface {
	Create(ctx context.Context, authorID, title, content string) (*model.Board, error)
	// Get は投稿を取得し、閲覧数を+1する。
	Get(ctx context.Context, boardID string) (*model.Board, error)
	List(ctx context.Context, limit, offset int) ([]*model.Board, error)
	Update(ctx context.Context, actorID, boardID, title, content string) (*model.Board, error)
	Delete(ctx context.Context, actorID, boardID string) error
}

// BoardHandler は投稿管理のHTTPハンドラー。
type BoardHandler struct {
	service BoardServiceInterface
}

// NewBoardHandler はBoardHandlerを生成する。
func NewBoardHandler(service BoardServiceInterface) *BoardHandler {
	return &BoardHandler{
		service: service,
	}
}

// boardRequest は投稿の作成・更新リクエストのボディ。
type boardRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// boardResponse は投稿情報のAPIレスポンス。
type boardResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	AuthorID  string    `json:"author_id"`
	ViewCount int64     `json:"view_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Create は投稿を作成する。
// POST /api/boards
func (h *BoardHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req boardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	board, err := h.service.Create(r.Context(), userID, req.Title, req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toBoardResponse(board))
}

// Get は投稿詳細を取得する。閲覧数が+1され、加算後の値が返る。
// GET /api/boards/{id}
func (h *BoardHandler) Get(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "id")

	board, err := h.service.Get(r.Context(), boardID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBoardResponse(board))
}

// List は投稿一覧をcreated_at降順で返す。閲覧数は加算されない。
// GET /api/boards?limit=20&offset=0
func (h *BoardHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	boards, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]boardResponse, 0, len(boards))
	for _, b := range boards {
		responses = append(responses, toBoardResponse(b))
	}
	writeJSON(w, http.StatusOK, responses)
}

// Update はタイトルと本文を更新する。作成者本人または管理者のみ。
// PUT /api/boards/{id}
func (h *BoardHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	boardID := chi.URLParam(r, "id")

	var req boardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	board, err := h.service.Update(r.Context(), userID, boardID, req.Title, req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBoardResponse(board))
}

// Delete は投稿を削除する。配下の返信ツリーも同時に削除される。
// DELETE /api/boards/{id}
func (h *BoardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	boardID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), userID, boardID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toBoardResponse はmodel.BoardからAPIレスポンスに変換する。
func toBoardResponse(b *model.Board) boardResponse {
	return boardResponse{
		ID:        b.ID,
		Title:     b.Title,
		Content:   b.Content,
		AuthorID:  b.AuthorID,
		ViewCount: b.ViewCount,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}
