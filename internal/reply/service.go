// Package reply は投稿への返信ツリーのドメインロジックを提供する。
package reply

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

// ServiceConfig は返信サービスの設定。
type ServiceConfig struct {
	MaxDepth   int // 返信ネストの最大深さ（投稿直下が0）
	ContentMax int // 本文の最大文字数
}

// Service は返信のビジネスロジックを提供する。
// 返信は削除されると墓標化され、本文は消えるがツリー上の位置は残る。
// 子返信を孤児にしないため、物理削除は投稿削除時のCASCADEに限る。
type Service struct {
	replyRepo repository.ReplyRepository
	boardRepo repository.BoardRepository
	userRepo  repository.UserRepository
	sanitizer security.ContentSanitizerService
	recorder  ReplyRecorder
	config    ServiceConfig
}

// ReplyRecorder は返信メトリクスの記録インターフェース。
// metrics.Collectorの部分集合として定義する。
type ReplyRecorder interface {
	RecordReplyCreated()
}

// NewService はServiceを生成する。
// recorderはnilでもよい（メトリクス収集なしで動作する）。
func NewService(
	replyRepo repository.ReplyRepository,
	boardRepo repository.BoardRepository,
	userRepo repository.UserRepository,
	sanitizer security.ContentSanitizerService,
	recorder ReplyRecorder,
	config ServiceConfig,
) *Service {
	return &Service{
		replyRepo: replyRepo,
		boardRepo: boardRepo,
		userRepo:  userRepo,
		sanitizer: sanitizer,
		recorder:  recorder,
		config:    config,
	}
}

// Add は投稿または既存返信への返信を作成する。
// 返信先が投稿本体の場合はdepth 0、既存返信の場合は親のdepth+1になる。
// 親のdepthがMaxDepthに達している場合はMAX_DEPTH_EXCEEDEDを返す。
// 墓標化済みの返信には返信できない。
func (s *Service) Add(ctx context.Context, authorID string, target model.ReplyTarget, content string) (*model.Reply, error) {
	content = s.sanitizer.Sanitize(content)
	if n := len([]rune(content)); n < 1 || n > s.config.ContentMax {
		return nil, model.NewInvalidContentError(s.config.ContentMax)
	}

	switch target.Kind {
	case model.TargetBoard:
		return s.addToBoard(ctx, authorID, target.ID, content)
	case model.TargetReply:
		return s.addToReply(ctx, authorID, target.ID, content)
	default:
		return nil, fmt.Errorf("unknown reply target kind: %s", target.Kind)
	}
}

// addToBoard は投稿直下（depth 0）の返信を作成する。
func (s *Service) addToBoard(ctx context.Context, authorID, boardID, content string) (*model.Reply, error) {
	board, err := s.boardRepo.FindByID(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	if board == nil {
		return nil, model.NewBoardNotFoundError(boardID)
	}

	reply := s.newReply(authorID, boardID, nil, content, 0)
	if err := s.replyRepo.Create(ctx, reply); err != nil {
		return nil, fmt.Errorf("返信の作成に失敗しました: %w", err)
	}

	slog.Info("reply created",
		slog.String("reply_id", reply.ID),
		slog.String("board_id", boardID),
		slog.Int("depth", 0),
	)
	if s.recorder != nil {
		s.recorder.RecordReplyCreated()
	}
	return reply, nil
}

// addToReply は既存返信の配下に返信を作成する。
// 挿入は「親が生きていて読み取ったdepthのままである」ことを同一SQL文内で
// 検証するINSERT ... SELECTで行う。親の墓標化と競合した場合は挿入されず、
// PARENT_UNAVAILABLEを返す。
func (s *Service) addToReply(ctx context.Context, authorID, parentID, content string) (*model.Reply, error) {
	parent, err := s.replyRepo.FindByID(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("返信の取得に失敗しました: %w", err)
	}
	if parent == nil {
		return nil, model.NewReplyNotFoundError(parentID)
	}
	if parent.Deleted {
		return nil, model.NewParentUnavailableError()
	}
	if parent.Depth >= s.config.MaxDepth {
		return nil, model.NewMaxDepthExceededError(s.config.MaxDepth)
	}

	reply := s.newReply(authorID, parent.BoardID, &parent.ID, content, parent.Depth+1)
	inserted, err := s.replyRepo.CreateUnderParent(ctx, reply, parent.Depth)
	if err != nil {
		return nil, fmt.Errorf("返信の作成に失敗しました: %w", err)
	}
	if !inserted {
		return nil, model.NewParentUnavailableError()
	}

	slog.Info("reply created",
		slog.String("reply_id", reply.ID),
		slog.String("board_id", parent.BoardID),
		slog.String("parent_id", parent.ID),
		slog.Int("depth", reply.Depth),
	)
	if s.recorder != nil {
		s.recorder.RecordReplyCreated()
	}
	return reply, nil
}

// ListTree は投稿配下の返信ツリー全体を返す。
// 親は必ず子より先に現れ、兄弟はcreated_at昇順。墓標化済みの返信も
// 位置を保ったまま含まれる（本文は空）。
func (s *Service) ListTree(ctx context.Context, boardID string) ([]*model.Reply, error) {
	board, err := s.boardRepo.FindByID(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	if board == nil {
		return nil, model.NewBoardNotFoundError(boardID)
	}

	replies, err := s.replyRepo.ListByBoardID(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("返信一覧の取得に失敗しました: %w", err)
	}
	return replies, nil
}

// Update は返信の本文を更新する。作成者本人または管理者のみ実行できる。
// 墓標化済みの返信は更新できない。
func (s *Service) Update(ctx context.Context, actorID, replyID, content string) (*model.Reply, error) {
	reply, err := s.replyRepo.FindByID(ctx, replyID)
	if err != nil {
		return nil, fmt.Errorf("返信の取得に失敗しました: %w", err)
	}
	if reply == nil || reply.Deleted {
		return nil, model.NewReplyNotFoundError(replyID)
	}

	if err := s.authorize(ctx, actorID, reply.AuthorID); err != nil {
		return nil, err
	}

	content = s.sanitizer.Sanitize(content)
	if n := len([]rune(content)); n < 1 || n > s.config.ContentMax {
		return nil, model.NewInvalidContentError(s.config.ContentMax)
	}

	if err := s.replyRepo.UpdateContent(ctx, replyID, content); err != nil {
		return nil, fmt.Errorf("返信の更新に失敗しました: %w", err)
	}
	return s.replyRepo.FindByID(ctx, replyID)
}

// Delete は返信を墓標化する。作成者本人または管理者のみ実行できる。
// 本文は空になるが行は残り、既存の子返信のdepthは変わらない。
// 既に墓標化済みの場合はREPLY_NOT_FOUNDを返す。
func (s *Service) Delete(ctx context.Context, actorID, replyID string) error {
	reply, err := s.replyRepo.FindByID(ctx, replyID)
	if err != nil {
		return fmt.Errorf("返信の取得に失敗しました: %w", err)
	}
	if reply == nil || reply.Deleted {
		return model.NewReplyNotFoundError(replyID)
	}

	if err := s.authorize(ctx, actorID, reply.AuthorID); err != nil {
		return err
	}

	tombstoned, err := s.replyRepo.Tombstone(ctx, replyID)
	if err != nil {
		return fmt.Errorf("返信の削除に失敗しました: %w", err)
	}
	if !tombstoned {
		// 並行する削除が先に墓標化していた
		return model.NewReplyNotFoundError(replyID)
	}

	slog.Info("reply tombstoned",
		slog.String("reply_id", replyID),
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

// newReply は返信モデルを構築する。
func (s *Service) newReply(authorID, boardID string, parentID *string, content string, depth int) *model.Reply {
	now := time.Now()
	return &model.Reply{
		ID:        uuid.New().String(),
		BoardID:   boardID,
		ParentID:  parentID,
		AuthorID:  authorID,
		Content:   content,
		Depth:     depth,
		Deleted:   false,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
