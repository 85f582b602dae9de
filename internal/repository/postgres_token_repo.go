package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/boardman/internal/model"
)

// PostgresTokenRepo はPostgreSQLを使用したメール認証トークンリポジトリ。
type PostgresTokenRepo struct {
	db *sql.DB
}

// NewPostgresTokenRepo はPostgresTokenRepoを生成する。
func NewPostgresTokenRepo(db *sql.DB) *PostgresTokenRepo {
	return &PostgresTokenRepo{db: db}
}

// Replace は同一ユーザーの未使用トークンを削除してから新トークンを挿入する。
// 削除と挿入を同一トランザクションで行い、有効なトークンが同時に2件
// 存在する瞬間を作らない。削除されたトークンの消費はTOKEN_NOT_FOUNDになる。
func (r *PostgresTokenRepo) Replace(ctx context.Context, token *model.VerificationToken) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM verification_tokens WHERE user_id = $1 AND used_at IS NULL`,
		token.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to invalidate prior tokens: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO verification_tokens (token, user_id, email, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		token.Token, token.UserID, token.Email, token.ExpiresAt, token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert verification token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// FindByToken はトークン値でトークンを取得する。見つからない場合はnilを返す。
func (r *PostgresTokenRepo) FindByToken(ctx context.Context, tokenValue string) (*model.VerificationToken, error) {
	token := &model.VerificationToken{}
	err := r.db.QueryRowContext(ctx,
		`SELECT token, user_id, email, expires_at, used_at, created_at
		 FROM verification_tokens WHERE token = $1`,
		tokenValue,
	).Scan(&token.Token, &token.UserID, &token.Email, &token.ExpiresAt, &token.UsedAt, &token.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find verification token: %w", err)
	}
	return token, nil
}

// Consume は未使用かつ未期限切れのトークンを原子的に消費する。
// used_at IS NULL を条件に含む単一のUPDATE文のため、同一トークンの
// 並行消費はストレージ層でちょうど1回だけ成功する。プロセス内ロックに
// 依存しないので、複数インスタンス構成でも保証は保たれる。
// 条件を満たす行がない場合はnilを返す。
func (r *PostgresTokenRepo) Consume(ctx context.Context, tokenValue string, now time.Time) (*model.VerificationToken, error) {
	token := &model.VerificationToken{}
	err := r.db.QueryRowContext(ctx,
		`UPDATE verification_tokens SET used_at = $2
		 WHERE token = $1 AND used_at IS NULL AND expires_at > $2
		 RETURNING token, user_id, email, expires_at, used_at, created_at`,
		tokenValue, now,
	).Scan(&token.Token, &token.UserID, &token.Email, &token.ExpiresAt, &token.UsedAt, &token.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume verification token: %w", err)
	}
	return token, nil
}

// compile-time interface check
var _ TokenRepository = (*PostgresTokenRepo)(nil)
