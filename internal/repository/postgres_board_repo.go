package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/boardman/internal/model"
)

// PostgresBoardRepo はPostgreSQLを使用した投稿リポジトリ。
type PostgresBoardRepo struct {
	db *sql.DB
}

// NewPostgresBoardRepo はPostgresBoardRepoを生成する。
func NewPostgresBoardRepo(db *sql.DB) *PostgresBoardRepo {
	return &PostgresBoardRepo{db: db}
}

const boardColumns = `id, title, content, author_id, view_count, created_at, updated_at`

func scanBoard(row interface{ Scan(dest ...any) error }) (*model.Board, error) {
	board := &model.Board{}
	err := row.Scan(
		&board.ID, &board.Title, &board.Content, &board.AuthorID,
		&board.ViewCount, &board.CreatedAt, &board.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return board, nil
}

// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
func (r *PostgresBoardRepo) FindByID(ctx context.Context, id string) (*model.Board, error) {
	board, err := scanBoard(r.db.QueryRowContext(ctx,
		`SELECT `+boardColumns+` FROM boards WHERE id = $1`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find board: %w", err)
	}
	return board, nil
}

// Create は投稿を作成する。
func (r *PostgresBoardRepo) Create(ctx context.Context, board *model.Board) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO boards (id, title, content, author_id, view_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		board.ID, board.Title, board.Content, board.AuthorID,
		board.ViewCount, board.CreatedAt, board.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert board: %w", err)
	}
	return nil
}

// List は投稿一覧をcreated_at降順で返す。
func (r *PostgresBoardRepo) List(ctx context.Context, limit, offset int) ([]*model.Board, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+boardColumns+` FROM boards ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list boards: %w", err)
	}
	defer rows.Close()

	var boards []*model.Board
	for rows.Next() {
		board, err := scanBoard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan board: %w", err)
		}
		boards = append(boards, board)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate boards: %w", err)
	}
	return boards, nil
}

// Update はタイトルと本文を更新しupdated_atを進める。
func (r *PostgresBoardRepo) Update(ctx context.Context, board *model.Board) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE boards SET title = $2, content = $3, updated_at = now() WHERE id = $1`,
		board.ID, board.Title, board.Content,
	)
	if err != nil {
		return fmt.Errorf("failed to update board: %w", err)
	}
	return nil
}

// IncrementViewCount は閲覧数を原子的に+1する。
// view_count = view_count + 1 の単一UPDATE式で行うため、並行閲覧でも
// 加算は失われない。投稿が存在した場合にtrueを返す。
func (r *PostgresBoardRepo) IncrementViewCount(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE boards SET view_count = view_count + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to increment view count: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// DeleteByID は指定IDの投稿を削除する。配下の返信はCASCADE削除される。
func (r *PostgresBoardRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM boards WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete board: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("board not found: %s", id)
	}
	return nil
}

// compile-time interface check
var _ BoardRepository = (*PostgresBoardRepo)(nil)
