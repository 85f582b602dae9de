package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/boardman/internal/model"
)

// PostgresReplyRepo はPostgreSQLを使用した返信リポジトリ。
type PostgresReplyRepo struct {
	db *sql.DB
}

// NewPostgresReplyRepo はPostgresReplyRepoを生成する。
func NewPostgresReplyRepo(db *sql.DB) *PostgresReplyRepo {
	return &PostgresReplyRepo{db: db}
}

const replyColumns = `id, board_id, parent_id, author_id, content, depth, deleted, created_at, updated_at`

func scanReply(row interface{ Scan(dest ...any) error }) (*model.Reply, error) {
	reply := &model.Reply{}
	err := row.Scan(
		&reply.ID, &reply.BoardID, &reply.ParentID, &reply.AuthorID,
		&reply.Content, &reply.Depth, &reply.Deleted,
		&reply.CreatedAt, &reply.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return reply, nil
}

// FindByID は指定IDの返信を取得する。見つからない場合はnilを返す。
// 墓標化済みの返信も返す。
func (r *PostgresReplyRepo) FindByID(ctx context.Context, id string) (*model.Reply, error) {
	reply, err := scanReply(r.db.QueryRowContext(ctx,
		`SELECT `+replyColumns+` FROM replies WHERE id = $1`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find reply: %w", err)
	}
	return reply, nil
}

// Create は投稿直下（depth 0）の返信を作成する。
func (r *PostgresReplyRepo) Create(ctx context.Context, reply *model.Reply) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO replies (id, board_id, parent_id, author_id, content, depth, deleted, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		reply.ID, reply.BoardID, reply.ParentID, reply.AuthorID,
		reply.Content, reply.Depth, reply.Deleted, reply.CreatedAt, reply.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reply: %w", err)
	}
	return nil
}

// CreateUnderParent は親返信の配下に返信を作成する。
// INSERT ... SELECT の形で「親が存在し、墓標化されておらず、読み取った
// depthのままである」ことを同一文の中で検証する。検証に失敗した場合は
// 行を挿入せずfalseを返す。親の墓標化と子の挿入が競合しても、
// 墓標の配下に新しい返信が入り込むことはない。
func (r *PostgresReplyRepo) CreateUnderParent(ctx context.Context, reply *model.Reply, parentDepth int) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO replies (id, board_id, parent_id, author_id, content, depth, deleted, created_at, updated_at)
		 SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9
		 WHERE EXISTS (
		     SELECT 1 FROM replies
		     WHERE id = $3 AND board_id = $2 AND deleted = false AND depth = $10
		 )`,
		reply.ID, reply.BoardID, reply.ParentID, reply.AuthorID,
		reply.Content, reply.Depth, reply.Deleted, reply.CreatedAt, reply.UpdatedAt,
		parentDepth,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert reply under parent: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// ListByBoardID は投稿配下の返信ツリー全体を返す。
// 再帰CTEで親から子へたどるため、親は必ず子より先に現れる。
// 兄弟間の順序はcreated_at昇順。
func (r *PostgresReplyRepo) ListByBoardID(ctx context.Context, boardID string) ([]*model.Reply, error) {
	rows, err := r.db.QueryContext(ctx,
		`WITH RECURSIVE reply_tree AS (
		     SELECT `+replyColumns+`, ARRAY[created_at] AS sort_path
		     FROM replies
		     WHERE board_id = $1 AND parent_id IS NULL
		   UNION ALL
		     SELECT c.id, c.board_id, c.parent_id, c.author_id, c.content,
		            c.depth, c.deleted, c.created_at, c.updated_at,
		            t.sort_path || c.created_at
		     FROM replies c
		     JOIN reply_tree t ON c.parent_id = t.id
		 )
		 SELECT `+replyColumns+` FROM reply_tree ORDER BY sort_path`,
		boardID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list replies: %w", err)
	}
	defer rows.Close()

	var replies []*model.Reply
	for rows.Next() {
		reply, err := scanReply(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reply: %w", err)
		}
		replies = append(replies, reply)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate replies: %w", err)
	}
	return replies, nil
}

// UpdateContent は本文を更新しupdated_atを進める。
func (r *PostgresReplyRepo) UpdateContent(ctx context.Context, id, content string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE replies SET content = $2, updated_at = now() WHERE id = $1`,
		id, content,
	)
	if err != nil {
		return fmt.Errorf("failed to update reply content: %w", err)
	}
	return nil
}

// Tombstone は返信を墓標化する。本文は空になり、行は残る。
// 子返信のdepthは親の行が残るためそのまま有効であり続ける。
// deleted = false の行だけを更新する条件付きUPDATEで、
// 墓標化が起きた場合にtrueを返す。
func (r *PostgresReplyRepo) Tombstone(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE replies SET deleted = true, content = '', updated_at = now()
		 WHERE id = $1 AND deleted = false`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to tombstone reply: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// compile-time interface check
var _ ReplyRepository = (*PostgresReplyRepo)(nil)
