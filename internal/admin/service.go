// Package admin は管理者向けの統計とユーザー管理を提供する。
package admin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/boardman/internal/model"
	"github.com/hitoshi/boardman/internal/repository"
)

// Service は管理者操作のビジネスロジックを提供する。
type Service struct {
	statsRepo repository.StatsRepository
	userRepo  repository.UserRepository
}

// NewService はServiceを生成する。
func NewService(statsRepo repository.StatsRepository, userRepo repository.UserRepository) *Service {
	return &Service{
		statsRepo: statsRepo,
		userRepo:  userRepo,
	}
}

// Stats は現在のシステム統計を返す。
// 総閲覧数は投稿行のview_countの合算で、退会ユーザーの投稿の閲覧数も
// 投稿が残る限り含まれる。投稿削除時はその閲覧数も合計から消える。
func (s *Service) Stats(ctx context.Context) (*model.Stats, error) {
	stats, err := s.statsRepo.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("統計の集計に失敗しました: %w", err)
	}
	return stats, nil
}

// ListUsers はユーザー一覧をcreated_at昇順で返す。
func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*model.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	users, err := s.userRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return users, nil
}

// GrantAdmin は指定ユーザーに管理者権限を付与する。
// 既に管理者の場合は何もしない（冪等）。
func (s *Service) GrantAdmin(ctx context.Context, targetID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	if user.HasRole(model.RoleAdmin) {
		return user, nil
	}

	roles := append(user.Roles, model.RoleAdmin)
	if err := s.userRepo.UpdateRoles(ctx, targetID, roles); err != nil {
		return nil, fmt.Errorf("ロールの更新に失敗しました: %w", err)
	}
	user.Roles = roles

	slog.Info("admin role granted",
		slog.String("user_id", targetID),
	)
	return user, nil
}

// RevokeAdmin は指定ユーザーから管理者権限を剥奪する。
// 剥奪によってロールが空になる場合はLAST_ROLEで拒否する。
func (s *Service) RevokeAdmin(ctx context.Context, targetID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	if !user.HasRole(model.RoleAdmin) {
		return user, nil
	}

	var roles []model.Role
	for _, r := range user.Roles {
		if r != model.RoleAdmin {
			roles = append(roles, r)
		}
	}
	if len(roles) == 0 {
		return nil, model.NewLastRoleError()
	}

	if err := s.userRepo.UpdateRoles(ctx, targetID, roles); err != nil {
		return nil, fmt.Errorf("ロールの更新に失敗しました: %w", err)
	}
	user.Roles = roles

	slog.Info("admin role revoked",
		slog.String("user_id", targetID),
	)
	return user, nil
}
