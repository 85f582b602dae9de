// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/boardman/internal/model"
	"github.com/hitoshi/boardman/internal/repository"
)

// VerificationStarter はメール認証フローの開始インターフェース。
type VerificationStarter interface {
	Start(ctx context.Context, user *model.User) error
}

// RegistrationRecorder はユーザー登録メトリクスの記録インターフェース。
// metrics.Collectorの部分集合として定義する。
type RegistrationRecorder interface {
	RecordRegistration()
}

// RegisterInput は新規登録の入力。
type RegisterInput struct {
	Username string
	Name     string
	Email    string
	Password string
}

var (
	usernamePattern = regexp.MustCompile(`^[a-z0-9_-]{3,20}$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	verifier    VerificationStarter
	recorder    RegistrationRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
// recorderはnilでもよい（メトリクス収集なしで動作する）。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	verifier VerificationStarter,
	recorder RegistrationRecorder,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		verifier:    verifier,
		recorder:    recorder,
	}
}

// Register は新規ユーザーを登録しメール認証フローを開始する。
// アカウントはUNVERIFIEDで作成され、認証が完了するまでログインできない
// （REQUIRE_VERIFIED_LOGIN有効時）。
func (s *Service) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	if err := validateRegisterInput(input); err != nil {
		return nil, err
	}

	// 重複チェック。一意制約はDB側にもあるため、ここでの検査は
	// ユーザー向けエラーを返すためのもの。
	existing, err := s.userRepo.FindByUsername(ctx, input.Username)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateUsernameError()
	}

	existing, err = s.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateEmailError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Username:     input.Username,
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hash),
		Roles:        []model.Role{model.RoleUser},
		Verified:     false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	if s.recorder != nil {
		s.recorder.RecordRegistration()
	}

	if err := s.verifier.Start(ctx, user); err != nil {
		// 登録自体は完了している。認証メールは再送信で回復できる。
		slog.Error("failed to start verification",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	return user, nil
}

// Get は指定IDのユーザーを取得する。
func (s *Service) Get(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// UpdateName は表示名を更新する。
func (s *Service) UpdateName(ctx context.Context, userID, name string) (*model.User, error) {
	if name == "" || len([]rune(name)) > 50 {
		return nil, &model.APIError{
			Code:     "INVALID_NAME",
			Message:  "表示名は1文字以上50文字以下で入力してください。",
			Category: "validation",
			Action:   "表示名の長さを調整して再度お試しください。",
		}
	}

	if err := s.userRepo.UpdateName(ctx, userID, name); err != nil {
		return nil, fmt.Errorf("表示名の更新に失敗しました: %w", err)
	}
	return s.Get(ctx, userID)
}

// UpdatePassword は現在のパスワードを検証してから新しいパスワードに変更する。
func (s *Service) UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return model.NewInvalidCredentialsError()
	}

	if len(newPassword) < 8 {
		return &model.APIError{
			Code:     "INVALID_PASSWORD",
			Message:  "パスワードは8文字以上で入力してください。",
			Category: "validation",
			Action:   "より長いパスワードを指定してください。",
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("パスワードの更新に失敗しました: %w", err)
	}

	slog.Info("password updated", slog.String("user_id", userID))
	return nil
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: sessions → user（+ CASCADE: verification_tokens）
// 投稿と返信は削除せず、author参照はdanglingのまま残す。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("退会処理を開始します",
		slog.String("user_id", userID),
	)

	// 1. セッションを削除
	if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("セッションの削除に失敗しました: %w", err)
	}

	// 2. ユーザーを削除（verification_tokensはCASCADE削除）
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
	)

	return nil
}

// validateRegisterInput は登録入力の形式を検証する。
func validateRegisterInput(input RegisterInput) error {
	if !usernamePattern.MatchString(input.Username) {
		return &model.APIError{
			Code:     "INVALID_USERNAME",
			Message:  "ユーザー名は3〜20文字の英小文字・数字・ハイフン・アンダースコアで入力してください。",
			Category: "validation",
			Action:   "ユーザー名の形式を確認してください。",
		}
	}
	if input.Name == "" || len([]rune(input.Name)) > 50 {
		return &model.APIError{
			Code:     "INVALID_NAME",
			Message:  "表示名は1文字以上50文字以下で入力してください。",
			Category: "validation",
			Action:   "表示名の長さを調整して再度お試しください。",
		}
	}
	if !emailPattern.MatchString(input.Email) {
		return &model.APIError{
			Code:     "INVALID_EMAIL",
			Message:  "メールアドレスの形式が正しくありません。",
			Category: "validation",
			Action:   "メールアドレスを確認してください。",
		}
	}
	if len(input.Password) < 8 {
		return &model.APIError{
			Code:     "INVALID_PASSWORD",
			Message:  "パスワードは8文字以上で入力してください。",
			Category: "validation",
			Action:   "より長いパスワードを指定してください。",
		}
	}
	return nil
}
