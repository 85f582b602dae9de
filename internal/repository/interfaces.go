// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hitoshi/boardman/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// List はユーザー一覧をcreated_at昇順で返す。
	List(ctx context.Context, limit, offset int) ([]*model.User, error)

	// UpdateName は表示名を更新しupdated_atを進める。
	UpdateName(ctx context.Context, id, name string) error

	// UpdatePassword はパスワードハッシュを更新しupdated_atを進める。
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// UpdateRoles はロール集合を置き換える。
	UpdateRoles(ctx context.Context, id string, roles []model.Role) error

	// MarkVerified は未認証ユーザーを認証済みへ遷移させる。
	// 条件付きUPDATE（verified = false のときのみ）で、遷移が起きた場合にtrueを返す。
	MarkVerified(ctx context.Context, id string, at time.Time) (bool, error)

	// RecordLastLogin は最終ログイン日時を記録する。
	RecordLastLogin(ctx context.Context, id string, at time.Time) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 投稿・返信は削除せず、author参照はdanglingのまま保存される。
	DeleteByID(ctx context.Context, id string) error
}

// TokenRepository はメール認証トークンの永続化インターフェース。
type TokenRepository interface {
	// Replace は同一ユーザーの未使用トークンを削除してから新トークンを
	// 挿入する。両操作は同一トランザクションで行い、有効なトークンが
	// 同時に2件存在する瞬間を作らない。
	Replace(ctx context.Context, token *model.VerificationToken) error

	// FindByToken はトークン値でトークンを取得する。見つからない場合はnilを返す。
	FindByToken(ctx context.Context, token string) (*model.VerificationToken, error)

	// Consume は未使用かつ未期限切れのトークンを原子的に消費する。
	// 消費条件は used_at IS NULL AND expires_at > now の条件付きUPDATEで、
	// 同一トークンの並行消費はちょうど1回だけ成功する。
	// 条件を満たす行がない場合はnilを返す（原因の分類は呼び出し側が行う）。
	Consume(ctx context.Context, token string, now time.Time) (*model.VerificationToken, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。存在しない場合もエラーにしない（冪等）。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// BoardRepository は投稿データの永続化インターフェース。
type BoardRepository interface {
	// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Board, error)

	// Create は投稿を作成する。
	Create(ctx context.Context, board *model.Board) error

	// List は投稿一覧をcreated_at降順で返す。
	List(ctx context.Context, limit, offset int) ([]*model.Board, error)

	// Update はタイトルと本文を更新しupdated_atを進める。
	Update(ctx context.Context, board *model.Board) error

	// IncrementViewCount は閲覧数を原子的に+1する。
	// アプリケーション側のread-modify-writeではなく単一のUPDATE式で行い、
	// 並行閲覧でも加算が失われない。投稿が存在した場合にtrueを返す。
	IncrementViewCount(ctx context.Context, id string) (bool, error)

	// DeleteByID は指定IDの投稿を削除する。配下の返信はCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// ReplyRepository は返信データの永続化インターフェース。
type ReplyRepository interface {
	// FindByID は指定IDの返信を取得する。見つからない場合はnilを返す。
	// 墓標化済みの返信も返す（親としての可否は呼び出し側が判定する）。
	FindByID(ctx context.Context, id string) (*model.Reply, error)

	// Create は投稿直下（depth 0）の返信を作成する。
	Create(ctx context.Context, reply *model.Reply) error

	// CreateUnderParent は親返信の配下に返信を作成する。
	// INSERT ... SELECT で「親が存在し、墓標化されておらず、読み取った
	// depthのままである」ことを同一文の中で確認する。親が並行して
	// 墓標化されていた場合は挿入せずfalseを返す。
	CreateUnderParent(ctx context.Context, reply *model.Reply, parentDepth int) (bool, error)

	// ListByBoardID は投稿配下の返信ツリー全体を返す。
	// 兄弟はcreated_at昇順、親は必ず子より先に現れる。
	ListByBoardID(ctx context.Context, boardID string) ([]*model.Reply, error)

	// UpdateContent は本文を更新しupdated_atを進める。
	UpdateContent(ctx context.Context, id, content string) error

	// Tombstone は返信を墓標化する（deleted = true、本文は空にする）。
	// ツリー構造は保持され、子のdepthは再計算不要のまま有効であり続ける。
	// 既に墓標化済みの場合はfalseを返す。
	Tombstone(ctx context.Context, id string) (bool, error)
}

// StatsRepository は管理者向け統計の読み取り専用インターフェース。
type StatsRepository interface {
	// Snapshot は現在の永続状態から統計を集計する。書き込み副作用はない。
	// トランザクション分離は要求せず、集計中の並行書き込みは部分的に
	// 反映されうる（管理レポート用途では許容）。
	Snapshot(ctx context.Context) (*model.Stats, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
