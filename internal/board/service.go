// Package board は掲示板投稿のドメインロジックを提供する。
package board

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/boardman/internal/model"
	"github.com/hitoshi/boardman/internal/repository"
	"github.com/hitoshi/boardman/internal/security"
)

// ServiceConfig は投稿サービスの設定。
type ServiceConfig struct {
	TitleMax   int // タイトルの最大文字数
	ContentMax int // 本文の最大文字数
}

// BoardRecorder は投稿メトリクスの記録インターフェース。
// metrics.Collectorの部分集合として定義する。
type BoardRecorder interface {
	RecordBoardCreated()
	RecordBoardView()
}

// Service は投稿のビジネスロジックを提供する。
type Service struct {
	boardRepo repository.BoardRepository
	userRepo  repository.UserRepository
	sanitizer security.ContentSanitizerService
	recorder  BoardRecorder
	config    ServiceConfig
}

// NewService はServiceを生成する。
// recorderはnilでもよい（メトリクス収集なしで動作する）。
func NewService(
	boardRepo repository.BoardRepository,
	userRepo repository.UserRepository,
	sanitizer security.ContentSanitizerService,
	recorder BoardRecorder,
	config ServiceConfig,
) *Service {
	return &Service{
		boardRepo: boardRepo,
		userRepo:  userRepo,
		sanitizer: sanitizer,
		recorder:  recorder,
		config:    config,
	}
}

// Create は投稿を作成する。本文は保存前にサニタイズされる。
func (s *Service) Create(ctx context.Context, authorID, title, content string) (*model.Board, error) {
	content = s.sanitizer.Sanitize(content)
	if err := s.validate(title, content); err != nil {
		return nil, err
	}

	now := time.Now()
	board := &model.Board{
		ID:        uuid.New().String(),
		Title:     title,
		Content:   content,
		AuthorID:  authorID,
		ViewCount: 0,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.boardRepo.Create(ctx, board); err != nil {
		return nil, fmt.Errorf("投稿の作成に失敗しました: %w", err)
	}

	slog.Info("board created",
		slog.String("board_id", board.ID),
		slog.String("author_id", authorID),
	)
	if s.recorder != nil {
		s.recorder.RecordBoardCreated()
	}
	return board, nil
}

// Get は投稿を取得し、閲覧数を+1する。
// 加算はストレージ層の単一UPDATE式で行うため、並行閲覧でも失われない。
// 返される投稿の閲覧数は加算後の値を反映する。
func (s *Service) Get(ctx context.Context, boardID string) (*model.Board, error) {
	incremented, err := s.boardRepo.IncrementViewCount(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("閲覧数の更新に失敗しました: %w", err)
	}
	if !incremented {
		return nil, model.NewBoardNotFoundError(boardID)
	}

	board, err := s.boardRepo.FindByID(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	if board == nil {
		// 加算直後に削除された場合
		return nil, model.NewBoardNotFoundError(boardID)
	}
	if s.recorder != nil {
		s.recorder.RecordBoardView()
	}
	return board, nil
}

// List は投稿一覧をcreated_at降順で返す。閲覧数は加算しない。
func (s *Service) List(ctx context.Context, limit, offset int) ([]*model.Board, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	boards, err := s.boardRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗しました: %w", err)
	}
	return boards, nil
}

// Update はタイトルと本文を更新する。作成者本人または管理者のみ実行できる。
func (s *Service) Update(ctx context.Context, actorID, boardID, title, content string) (*model.Board, error) {
	board, err := s.boardRepo.FindByID(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	if board == nil {
		return nil, model.NewBoardNotFoundError(boardID)
	}

	if err := s.authorize(ctx, actorID, board.AuthorID); err != nil {
		return nil, err
	}

	content = s.sanitizer.Sanitize(content)
	if err := s.validate(title, content); err != nil {
		return nil, err
	}

	board.Title = title
	board.Content = content
	if err := s.boardRepo.Update(ctx, board); err != nil {
		return nil, fmt.Errorf("投稿の更新に失敗しました: %w", err)
	}

	return s.boardRepo.FindByID(ctx, boardID)
}

// Delete は投稿を削除する。作成者本人または管理者のみ実行できる。
// 配下の返信ツリー全体もCASCADE削除される。
func (s *Service) Delete(ctx context.Context, actorID, boardID string) error {
	board, err := s.boardRepo.FindByID(ctx, boardID)
	if err != nil {
		return fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	if board == nil {
		return model.NewBoardNotFoundError(boardID)
	}

	if err := s.authorize(ctx, actorID, board.AuthorID); err != nil {
		return err
	}

	if err := s.boardRepo.DeleteByID(ctx, boardID); err != nil {
		return fmt.Errorf("投稿の削除に失敗しました: %w", err)
	}

	slog.Info("board deleted",
		slog.String("board_id", boardID),
		slog.String("actor_id", actorID),
	)
	return nil
}

// authorize は操作者が作成者本人または管理者であることを確認する。
func (s *Service) authorize(ctx context.Context, actorID, authorID string) error {
	if actorID == authorID {
		return nil
	}

	actor, err := s.userRepo.FindByID(ctx, actorID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if actor == nil || !actor.HasRole(model.RoleAdmin) {
		return model.NewForbiddenError()
	}
	return nil
}

// validate はタイトルと本文の長さ制約を検証する。長さは文字数で数える。
func (s *Service) validate(title, content string) error {
	if n := len([]rune(title)); n < 1 || n > s.config.TitleMax {
		return model.NewInvalidTitleError(s.config.TitleMax)
	}
	if n := len([]rune(content)); n < 1 || n > s.config.ContentMax {
		return model.NewInvalidContentError(s.config.ContentMax)
	}
	return nil
}
