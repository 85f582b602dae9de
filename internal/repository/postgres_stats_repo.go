package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/boardman/internal/model"
)

// PostgresStatsRepo はPostgreSQLを使用した統計リポジトリ。
type PostgresStatsRepo struct {
	db *sql.DB
}

// NewPostgresStatsRepo はPostgresStatsRepoを生成する。
func NewPostgresStatsRepo(db *sql.DB) *PostgresStatsRepo {
	return &PostgresStatsRepo{db: db}
}

// Snapshot は現在の永続状態から統計を集計する。
// 閲覧数の合計は投稿行のview_countを合算する。投稿が1件もない場合は
// COALESCEにより0を返す。
func (r *PostgresStatsRepo) Snapshot(ctx context.Context) (*model.Stats, error) {
	stats := &model.Stats{}
	err := r.db.QueryRowContext(ctx,
		`SELECT
		     (SELECT COUNT(*) FROM users),
		     (SELECT COUNT(*) FROM boards),
		     (SELECT COALESCE(SUM(view_count), 0) FROM boards)`,
	).Scan(&stats.TotalUsers, &stats.TotalBoards, &stats.TotalViews)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate stats: %w", err)
	}
	return stats, nil
}

// compile-time interface check
var _ StatsRepository = (*PostgresStatsRepo)(nil)
