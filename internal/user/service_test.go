package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/boardman/internal/model"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn       func(ctx context.Context, id string) (*model.User, error)
	findByUsernameFn func(ctx context.Context, username string) (*model.User, error)
	findByEmailFn    func(ctx context.Context, email string) (*model.User, error)
	createFn         func(ctx context.Context, user *model.User) error
	updateNameFn     func(ctx context.Context, id, name string) error
	updatePasswordFn func(ctx context.Context, id, hash string) error
	deleteByIDFn     func(ctx context.Context, id string) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, nil
}
func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}
func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}
func (m *mockUserRepo) List(ctx context.Context, limit, offset int) ([]*model.User, error) {
	return nil, nil
}
func (m *mockUserRepo) UpdateName(ctx context.Context, id, name string) error {
	if m.updateNameFn != nil {
		return m.updateNameFn(ctx, id, name)
	}
	return nil
}
func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	if m.updatePasswordFn != nil {
		return m.updatePasswordFn(ctx, id, hash)
	}
	return nil
}
func (m *mockUserRepo) UpdateRoles(ctx context.Context, id string, r []model.Role) error { return nil }
func (m *mockUserRepo) MarkVerified(ctx context.Context, id string, at time.Time) (bool, error) {
	return false, nil
}
func (m *mockUserRepo) RecordLastLogin(ctx context.Context, id string, at time.Time) error {
	return nil
}
func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

type mockSessionRepo struct {
	deleteByUserIDFn func(ctx context.Context, userID string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error { return nil }
func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return nil, nil
}
func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error { return nil }
func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if m.deleteByUserIDFn != nil {
		return m.deleteByUserIDFn(ctx, userID)
	}
	return nil
}

type mockVerifier struct {
	startFn    func(ctx context.Context, user *model.User) error
	startCount int
}

func (m *mockVerifier) Start(ctx context.Context, user *model.User) error {
	m.startCount++
	if m.startFn != nil {
		return m.startFn(ctx, user)
	}
	return nil
}

func validInput() RegisterInput {
	return RegisterInput{
		Username: "testuser",
		Name:     "テストユーザー",
		Email:    "test@example.com",
		Password: "password123",
	}
}

// --- テスト ---

// 新規登録でUNVERIFIEDユーザーが作成され認証フローが開始されることを検証
func TestService_Register(t *testing.T) {
	var created *model.User
	userRepo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	verifier := &mockVerifier{}

	svc := NewService(userRepo, &mockSessionRepo{}, verifier, nil)
	user, err := svc.Register(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if created == nil {
		t.Fatal("expected user to be persisted")
	}
	if user.Verified {
		t.Error("new user should be unverified")
	}
	if len(user.Roles) != 1 || user.Roles[0] != model.RoleUser {
		t.Errorf("roles = %v, want [USER]", user.Roles)
	}
	if user.PasswordHash == "password123" {
		t.Error("password must not be stored in plain text")
	}
	if verifier.startCount != 1 {
		t.Errorf("verifier.Start calls = %d, want 1", verifier.startCount)
	}
}

// 入力バリデーション違反が登録を拒否することを検証
func TestService_Register_Validation(t *testing.T) {
	tests := []struct {
		name     string
		modify   func(in *RegisterInput)
		wantCode string
	}{
		{
			name:     "username too short",
			modify:   func(in *RegisterInput) { in.Username = "ab" },
			wantCode: "INVALID_USERNAME",
		},
		{
			name:     "username with uppercase",
			modify:   func(in *RegisterInput) { in.Username = "TestUser" },
			wantCode: "INVALID_USERNAME",
		},
		{
			name:     "empty name",
			modify:   func(in *RegisterInput) { in.Name = "" },
			wantCode: "INVALID_NAME",
		},
		{
			name:     "malformed email",
			modify:   func(in *RegisterInput) { in.Email = "not-an-email" },
			wantCode: "INVALID_EMAIL",
		},
		{
			name:     "short password",
			modify:   func(in *RegisterInput) { in.Password = "short" },
			wantCode: "INVALID_PASSWORD",
		},
	}

	svc := NewService(&mockUserRepo{}, &mockSessionRepo{}, &mockVerifier{}, nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.modify(&input)

			_, err := svc.Register(context.Background(), input)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", apiErr.Code, tt.wantCode)
			}
		})
	}
}

// ユーザー名・メールアドレスの重複が拒否されることを検証
func TestService_Register_Duplicates(t *testing.T) {
	t.Run("duplicate username", func(t *testing.T) {
		userRepo := &mockUserRepo{
			findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
				return &model.User{ID: "existing", Username: username}, nil
			},
		}
		svc := NewService(userRepo, &mockSessionRepo{}, &mockVerifier{}, nil)

		_, err := svc.Register(context.Background(), validInput())
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if apiErr.Code != model.ErrCodeDuplicateUsername {
			t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeDuplicateUsername)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		userRepo := &mockUserRepo{
			findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
				return &model.User{ID: "existing", Email: email}, nil
			},
		}
		svc := NewService(userRepo, &mockSessionRepo{}, &mockVerifier{}, nil)

		_, err := svc.Register(context.Background(), validInput())
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if apiErr.Code != model.ErrCodeDuplicateEmail {
			t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeDuplicateEmail)
		}
	})
}

// 認証フロー開始の失敗が登録自体を失敗させないことを検証
func TestService_Register_VerificationFailureIsIgnored(t *testing.T) {
	verifier := &mockVerifier{
		startFn: func(ctx context.Context, user *model.User) error {
			return errors.New("mail service unavailable")
		},
	}

	svc := NewService(&mockUserRepo{}, &mockSessionRepo{}, verifier, nil)
	if _, err := svc.Register(context.Background(), validInput()); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
}

// 表示名更新のバリデーションと永続化を検証
func TestService_UpdateName(t *testing.T) {
	updatedName := ""
	userRepo := &mockUserRepo{
		updateNameFn: func(ctx context.Context, id, name string) error {
			updatedName = name
			return nil
		},
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Name: updatedName}, nil
		},
	}

	svc := NewService(userRepo, &mockSessionRepo{}, &mockVerifier{}, nil)

	user, err := svc.UpdateName(context.Background(), "user-1", "新しい名前")
	if err != nil {
		t.Fatalf("UpdateName returned error: %v", err)
	}
	if user.Name != "新しい名前" {
		t.Errorf("name = %q, want %q", user.Name, "新しい名前")
	}

	if _, err := svc.UpdateName(context.Background(), "user-1", ""); err == nil {
		t.Error("expected error for empty name")
	}
}

// パスワード変更が現在のパスワード検証を要求することを検証
func TestService_UpdatePassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("current-password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	updated := false
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, PasswordHash: string(hash)}, nil
		},
		updatePasswordFn: func(ctx context.Context, id, newHash string) error {
			updated = true
			return nil
		},
	}

	svc := NewService(userRepo, &mockSessionRepo{}, &mockVerifier{}, nil)

	if err := svc.UpdatePassword(context.Background(), "user-1", "current-password", "new-password-1"); err != nil {
		t.Fatalf("UpdatePassword returned error: %v", err)
	}
	if !updated {
		t.Error("expected password to be persisted")
	}

	err = svc.UpdatePassword(context.Background(), "user-1", "wrong-password", "new-password-1")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeInvalidCredentials {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeInvalidCredentials)
	}
}

// 退会処理がセッション→ユーザーの順で削除することを検証
func TestService_Withdraw(t *testing.T) {
	var order []string
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id}, nil
		},
		deleteByIDFn: func(ctx context.Context, id string) error {
			order = append(order, "user")
			return nil
		},
	}
	sessionRepo := &mockSessionRepo{
		deleteByUserIDFn: func(ctx context.Context, userID string) error {
			order = append(order, "sessions")
			return nil
		},
	}

	svc := NewService(userRepo, sessionRepo, &mockVerifier{}, nil)
	if err := svc.Withdraw(context.Background(), "user-1"); err != nil {
		t.Fatalf("Withdraw returned error: %v", err)
	}

	if len(order) != 2 || order[0] != "sessions" || order[1] != "user" {
		t.Errorf("deletion order = %v, want [sessions user]", order)
	}
}

// 存在しないユーザーの退会がUSER_NOT_FOUNDになることを検証
func TestService_Withdraw_UnknownUser(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockSessionRepo{}, &mockVerifier{}, nil)

	err := svc.Withdraw(context.Background(), "unknown")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeUserNotFound)
	}
}
