package auth

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
	findByUsernameFn  func(ctx context.Context, username string) (*model.User, error)
	findByIDFn        func(ctx context.Context, id string) (*model.User, error)
	recordLastLoginFn func(ctx context.Context, id string, at time.Time) error
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
	return nil, nil
}
func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error { return nil }
func (m *mockUserRepo) List(ctx context.Context, limit, offset int) ([]*model.User, error) {
	return nil, nil
}
func (m *mockUserRepo) UpdateName(ctx context.Context, id, name string) error         { return nil }
func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, hash string) error     { return nil }
func (m *mockUserRepo) UpdateRoles(ctx context.Context, id string, r []model.Role) error { return nil }
func (m *mockUserRepo) MarkVerified(ctx context.Context, id string, at time.Time) (bool, error) {
	return false, nil
}
func (m *mockUserRepo) RecordLastLogin(ctx context.Context, id string, at time.Time) error {
	if m.recordLastLoginFn != nil {
		return m.recordLastLoginFn(ctx, id, at)
	}
	return nil
}
func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error { return nil }

type mockSessionRepo struct {
	createFn         func(ctx context.Context, session *model.Session) error
	findByIDFn       func(ctx context.Context, id string) (*model.Session, error)
	deleteByIDFn     func(ctx context.Context, id string) error
	deleteByUserIDFn func(ctx context.Context, userID string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}
func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}
func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if m.deleteByUserIDFn != nil {
		return m.deleteByUserIDFn(ctx, userID)
	}
	return nil
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	return string(hash)
}

func defaultConfig() ServiceConfig {
	return ServiceConfig{
		SessionMaxAge:        86400,
		RequireVerifiedLogin: true,
	}
}

// --- テスト ---

// 正しい資格情報でログインするとセッションが発行されることを検証
func TestService_Login_Success(t *testing.T) {
	hash := mustHash(t, "correct-password")
	userRepo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return &model.User{ID: "user-1", Username: username, PasswordHash: hash, Verified: true}, nil
		},
	}
	var created *model.Session
	sessionRepo := &mockSessionRepo{
		createFn: func(ctx context.Context, session *model.Session) error {
			created = session
			return nil
		},
	}

	svc := NewService(userRepo, sessionRepo, nil, defaultConfig())
	session, user, err := svc.Login(context.Background(), "testuser", "correct-password")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if user.ID != "user-1" {
		t.Errorf("user ID = %q, want %q", user.ID, "user-1")
	}
	if created == nil {
		t.Fatal("expected session to be persisted")
	}
	if session.UserID != "user-1" {
		t.Errorf("session UserID = %q, want %q", session.UserID, "user-1")
	}
	if len(session.ID) != 64 {
		t.Errorf("session ID length = %d, want 64", len(session.ID))
	}
}

// ユーザー不在とパスワード不一致が同じINVALID_CREDENTIALSになることを検証
func TestService_Login_InvalidCredentials(t *testing.T) {
	hash := mustHash(t, "correct-password")

	tests := []struct {
		name string
		repo *mockUserRepo
	}{
		{
			name: "unknown user",
			repo: &mockUserRepo{},
		},
		{
			name: "wrong password",
			repo: &mockUserRepo{
				findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
					return &model.User{ID: "user-1", PasswordHash: hash, Verified: true}, nil
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.repo, &mockSessionRepo{}, nil, defaultConfig())
			_, _, err := svc.Login(context.Background(), "testuser", "wrong-password")

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Code != model.ErrCodeInvalidCredentials {
				t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeInvalidCredentials)
			}
		})
	}
}

// 未認証ユーザーのログインがEMAIL_NOT_VERIFIEDで拒否されることを検証
func TestService_Login_EmailNotVerified(t *testing.T) {
	hash := mustHash(t, "correct-password")
	userRepo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return &model.User{ID: "user-1", PasswordHash: hash, Verified: false}, nil
		},
	}

	svc := NewService(userRepo, &mockSessionRepo{}, nil, defaultConfig())
	_, _, err := svc.Login(context.Background(), "testuser", "correct-password")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeEmailNotVerified {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeEmailNotVerified)
	}
}

// RequireVerifiedLogin無効時は未認証ユーザーもログインできることを検証
func TestService_Login_UnverifiedAllowedWhenNotRequired(t *testing.T) {
	hash := mustHash(t, "correct-password")
	userRepo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return &model.User{ID: "user-1", PasswordHash: hash, Verified: false}, nil
		},
	}

	cfg := defaultConfig()
	cfg.RequireVerifiedLogin = false
	svc := NewService(userRepo, &mockSessionRepo{}, nil, cfg)

	_, _, err := svc.Login(context.Background(), "testuser", "correct-password")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
}

// 最終ログイン記録の失敗がログイン自体を妨げないことを検証
func TestService_Login_LastLoginFailureIsIgnored(t *testing.T) {
	hash := mustHash(t, "correct-password")
	userRepo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return &model.User{ID: "user-1", PasswordHash: hash, Verified: true}, nil
		},
		recordLastLoginFn: func(ctx context.Context, id string, at time.Time) error {
			return context.DeadlineExceeded
		},
	}

	svc := NewService(userRepo, &mockSessionRepo{}, nil, defaultConfig())
	_, _, err := svc.Login(context.Background(), "testuser", "correct-password")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
}

// Logoutがセッションを削除し、空IDでは何もしないことを検証
func TestService_Logout(t *testing.T) {
	deletedID := ""
	sessionRepo := &mockSessionRepo{
		deleteByIDFn: func(ctx context.Context, id string) error {
			deletedID = id
			return nil
		},
	}

	svc := NewService(&mockUserRepo{}, sessionRepo, nil, defaultConfig())

	if err := svc.Logout(context.Background(), "session-1"); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if deletedID != "session-1" {
		t.Errorf("deleted session = %q, want %q", deletedID, "session-1")
	}

	deletedID = ""
	if err := svc.Logout(context.Background(), ""); err != nil {
		t.Fatalf("Logout with empty ID returned error: %v", err)
	}
	if deletedID != "" {
		t.Error("expected no delete for empty session ID")
	}
}

// 有効なセッションから現在のユーザーを取得できることを検証
func TestService_GetCurrentUser(t *testing.T) {
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return &model.Session{ID: id, UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Username: "testuser"}, nil
		},
	}

	svc := NewService(userRepo, sessionRepo, nil, defaultConfig())
	user, err := svc.GetCurrentUser(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("GetCurrentUser returned error: %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("user ID = %q, want %q", user.ID, "user-1")
	}
}

// 期限切れセッションではユーザーを取得できないことを検証
func TestService_GetCurrentUser_ExpiredSession(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockSessionRepo{}, nil, defaultConfig())

	if _, err := svc.GetCurrentUser(context.Background(), "expired-session"); err == nil {
		t.Fatal("expected error for expired session")
	}
}
