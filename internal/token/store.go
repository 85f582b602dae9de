// Package token はメール認証用の単回使用トークンを管理する。
package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/hitoshi/boardman/internal/model"
	"github.com/hitoshi/boardman/internal/repository"
)

// Store は認証トークンの発行と消費を提供する。
// 有効なトークンはユーザーごとに高々1件で、消費はちょうど1回だけ成功する。
type Store struct {
	tokenRepo repository.TokenRepository
	ttl       time.Duration
	now       func() time.Time
}

// NewStore はStoreを生成する。
func NewStore(tokenRepo repository.TokenRepository, ttl time.Duration) *Store {
	return &Store{
		tokenRepo: tokenRepo,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Issue は新しい認証トークンを発行する。
// 同一ユーザーの未使用トークンは同一トランザクション内で削除されるため、
// 再発行後に旧トークンを消費しようとするとTOKEN_NOT_FOUNDになる。
func (s *Store) Issue(ctx context.Context, userID, email string) (*model.VerificationToken, error) {
	value, err := generateTokenValue()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token value: %w", err)
	}

	now := s.now()
	token := &model.VerificationToken{
		Token:     value,
		UserID:    userID,
		Email:     email,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}

	if err := s.tokenRepo.Replace(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to replace verification token: %w", err)
	}
	return token, nil
}

// Consume はトークンを消費する。成功した場合は消費済みトークンを返す。
// 失敗原因はAPIErrorで区別する:
//   - TOKEN_NOT_FOUND: 存在しない、または再発行で無効化された
//   - TOKEN_EXPIRED: 有効期限切れ
//   - TOKEN_ALREADY_USED: 消費済み
//
// 消費自体は条件付きUPDATEによる原子操作で、並行して同じトークンを
// 消費しようとした場合もちょうど1回だけ成功する。
func (s *Store) Consume(ctx context.Context, tokenValue string) (*model.VerificationToken, error) {
	now := s.now()

	consumed, err := s.tokenRepo.Consume(ctx, tokenValue, now)
	if err != nil {
		return nil, fmt.Errorf("failed to consume token: %w", err)
	}
	if consumed != nil {
		return consumed, nil
	}

	// 消費に失敗した場合は現在の状態を読み取って原因を分類する。
	token, err := s.tokenRepo.FindByToken(ctx, tokenValue)
	if err != nil {
		return nil, fmt.Errorf("failed to find token: %w", err)
	}
	switch {
	case token == nil:
		return nil, model.NewTokenNotFoundError()
	case token.IsUsed():
		return nil, model.NewTokenAlreadyUsedError()
	case token.IsExpired(now):
		return nil, model.NewTokenExpiredError()
	default:
		// UPDATEとSELECTの間で状態が変わった稀なケース
		return nil, model.NewConflictError()
	}
}

// generateTokenValue は暗号的に安全なトークン値を生成する。
func generateTokenValue() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
