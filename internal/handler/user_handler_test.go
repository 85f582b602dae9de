package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/boardman/internal/model"
	"github.com/hitoshi/boardman/internal/user"
)

// --- モック ---

type mockUserService struct {
	registerFn       func(ctx context.Context, input user.RegisterInput) (*model.User, error)
	getFn            func(ctx context.Context, userID string) (*model.User, error)
	updateNameFn     func(ctx context.Context, userID, name string) (*model.User, error)
	updatePasswordFn func(ctx context.Context, userID, currentPassword, newPassword string) error
	withdrawFn       func(ctx context.Context, userID string) error
}

func (m *mockUserService) Register(ctx context.Context, input user.RegisterInput) (*model.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, input)
	}
	return &model.User{ID: "user-1", Username: input.Username}, nil
}
func (m *mockUserService) Get(ctx context.Context, userID string) (*model.User, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID)
	}
	return nil, model.NewUserNotFoundError()
}
func (m *mockUserService) UpdateName(ctx context.Context, userID, name string) (*model.User, error) {
	if m.updateNameFn != nil {
		return m.updateNameFn(ctx, userID, name)
	}
	return &model.User{ID: userID, Name: name}, nil
}
func (m *mockUserService) UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if m.updatePasswordFn != nil {
		return m.updatePasswordFn(ctx, userID, currentPassword, newPassword)
	}
	return nil
}
func (m *mockUserService) Withdraw(ctx context.Context, userID string) error {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, userID)
	}
	return nil
}

type mockVerificationService struct {
	verifyFn func(ctx context.Context, tokenValue string) (*model.User, error)
	resendFn func(ctx context.Context, email string) error
}

func (m *mockVerificationService) Verify(ctx context.Context, tokenValue string) (*model.User, error) {
	if m.verifyFn != nil {
		return m.verifyFn(ctx, tokenValue)
	}
	return nil, model.NewTokenNotFoundError()
}
func (m *mockVerificationService) Resend(ctx context.Context, email string) error {
	if m.resendFn != nil {
		return m.resendFn(ctx, email)
	}
	return nil
}

// --- テスト ---

// 新規登録で201とユーザー情報が返ることを検証
func TestUserHandler_Register(t *testing.T) {
	svc := &mockUserService{
		registerFn: func(ctx context.Context, input user.RegisterInput) (*model.User, error) {
			return &model.User{
				ID:       "user-1",
				Username: input.Username,
				Email:    input.Email,
				Roles:    []model.Role{model.RoleUser},
				Verified: false,
			}, nil
		},
	}
	h := NewUserHandler(svc, &mockVerificationService{})

	body := `{"username": "testuser", "name": "テスト", "email": "test@example.com", "password": "password123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/users", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}

	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp["verified"] != false {
		t.Error("new user must be unverified in the response")
	}
}

// ユーザー名重複で409が返ることを検証
func TestUserHandler_Register_DuplicateUsername(t *testing.T) {
	svc := &mockUserService{
		registerFn: func(ctx context.Context, input user.RegisterInput) (*model.User, error) {
			return nil, model.NewDuplicateUsernameError()
		},
	}
	h := NewUserHandler(svc, &mockVerificationService{})

	body := `{"username": "taken", "name": "テスト", "email": "test@example.com", "password": "password123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/users", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

// 不正なJSONで400が返ることを検証
func TestUserHandler_Register_InvalidJSON(t *testing.T) {
	h := NewUserHandler(&mockUserService{}, &mockVerificationService{})

	req := httptest.NewRequest(http.MethodPost, "/api/users", bytes.NewBufferString(`{invalid`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// メール認証の結果がHTTPステータスに対応することを検証
func TestUserHandler_Verify(t *testing.T) {
	tests := []struct {
		name       string
		verifyErr  error
		wantStatus int
	}{
		{
			name:       "success",
			verifyErr:  nil,
			wantStatus: http.StatusOK,
		},
		{
			name:       "token not found",
			verifyErr:  model.NewTokenNotFoundError(),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "token expired",
			verifyErr:  model.NewTokenExpiredError(),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "token already used",
			verifyErr:  model.NewTokenAlreadyUsedError(),
			wantStatus: http.StatusConflict,
		},
		{
			name:       "already verified",
			verifyErr:  model.NewAlreadyVerifiedError(),
			wantStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verification := &mockVerificationService{
				verifyFn: func(ctx context.Context, tokenValue string) (*model.User, error) {
					if tt.verifyErr != nil {
						return nil, tt.verifyErr
					}
					return &model.User{ID: "user-1", Verified: true}, nil
				},
			}
			h := NewUserHandler(&mockUserService{}, verification)

			req := httptest.NewRequest(http.MethodGet, "/api/users/verify?token=tok-1", nil)
			w := httptest.NewRecorder()

			h.Verify(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

// トークン未指定で400が返ることを検証
func TestUserHandler_Verify_MissingToken(t *testing.T) {
	h := NewUserHandler(&mockUserService{}, &mockVerificationService{})

	req := httptest.NewRequest(http.MethodGet, "/api/users/verify", nil)
	w := httptest.NewRecorder()

	h.Verify(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// 認証メール再送信で202が返ることを検証
func TestUserHandler_Resend(t *testing.T) {
	resentTo := ""
	verification := &mockVerificationService{
		resendFn: func(ctx context.Context, email string) error {
			resentTo = email
			return nil
		},
	}
	h := NewUserHandler(&mockUserService{}, verification)

	body := `{"email": "test@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/users/resend", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.Resend(w, req)

	if w.Code != http.StatusAccepted {
		t.Errorf("status = %d, want %d", w.Code, http.StatusAccepted)
	}
	if resentTo != "test@example.com" {
		t.Errorf("resent to = %q, want %q", resentTo, "test@example.com")
	}
}

// 表示名更新が認証を要求することを検証
func TestUserHandler_UpdateName(t *testing.T) {
	h := NewUserHandler(&mockUserService{}, &mockVerificationService{})

	body := `{"name": "新しい名前"}`

	// 認証なし
	req := httptest.NewRequest(http.MethodPatch, "/api/users/me", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	h.UpdateName(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	// 認証あり
	req = httptest.NewRequest(http.MethodPatch, "/api/users/me", bytes.NewBufferString(body))
	req = withUserID(req, "user-1")
	w = httptest.NewRecorder()
	h.UpdateName(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

// パスワード変更で204が返ることを検証
func TestUserHandler_UpdatePassword(t *testing.T) {
	h := NewUserHandler(&mockUserService{}, &mockVerificationService{})

	body := `{"current_password": "old-password", "new_password": "new-password-1"}`
	req := httptest.NewRequest(http.MethodPut, "/api/users/me/password", bytes.NewBufferString(body))
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.UpdatePassword(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
}

// 退会で204が返りセッションCookieがクリアされることを検証
func TestUserHandler_Withdraw(t *testing.T) {
	withdrawn := ""
	svc := &mockUserService{
		withdrawFn: func(ctx context.Context, userID string) error {
			withdrawn = userID
			return nil
		},
	}
	h := NewUserHandler(svc, &mockVerificationService{})

	req := httptest.NewRequest(http.MethodDelete, "/api/users/me", nil)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.Withdraw(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if withdrawn != "user-1" {
		t.Errorf("withdrawn user = %q, want %q", withdrawn, "user-1")
	}

	cookie := sessionCookie(t, w)
	if cookie == nil || cookie.MaxAge != -1 {
		t.Error("expected session cookie to be cleared")
	}
}
