// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの権限を表す。
type Role string

const (
	// RoleUser は一般ユーザー権限。
	RoleUser Role = "USER"
	// RoleAdmin は管理者権限。
	RoleAdmin Role = "ADMIN"
)

// User はサービス利用ユーザーを表す。
// PasswordHash はbcryptハッシュであり、平文パスワードは保持しない。
type User struct {
	ID           string
	Username     string
	Name         string
	Email        string
	PasswordHash string
	Roles        []Role
	Verified     bool       // メール認証済みかどうか
	VerifiedAt   *time.Time // 認証完了日時（未認証の場合nil）
	LastLoginAt  *time.Time // 最終ログイン日時（未ログインの場合nil）
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasRole は指定ロールを保持しているかを返す。
func (u *User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// VerificationToken はメール認証用の単回使用トークンを表す。
// 発行時に同一ユーザーの未使用トークンは削除されるため、
// 有効（未使用・未期限切れ）なトークンはユーザーごとに高々1件になる。
type VerificationToken struct {
	Token     string
	UserID    string
	Email     string
	ExpiresAt time.Time
	UsedAt    *time.Time // 使用日時（未使用の場合nil）
	CreatedAt time.Time
}

// IsExpired は現在時刻が有効期限を過ぎているかを返す。
func (t *VerificationToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// IsUsed は消費済みかどうかを返す。
func (t *VerificationToken) IsUsed() bool {
	return t.UsedAt != nil
}
