// Package model はドメインモデルを定義する。
package model

import "time"

// Board は掲示板の投稿を表す。
// ViewCount は閲覧によってのみ加算され、減少しない。
type Board struct {
	ID        string
	Title     string
	Content   string
	AuthorID  string
	ViewCount int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Reply は投稿への返信を表す。
// Depth は投稿直下が0で、親返信のDepth+1。BoardIDは効率的な
// サブツリー読み込みのため親をたどらず常に保持する（非正規化）。
type Reply struct {
	ID        string
	BoardID   string
	ParentID  *string // 親返信ID（投稿直下の場合nil）
	AuthorID  string
	Content   string
	Depth     int
	Deleted   bool // 墓標化済みかどうか。子の深さ計算のためレコードは残る
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReplyTargetKind は返信先の種別を表す。
type ReplyTargetKind string

const (
	// TargetBoard は投稿本体への返信。
	TargetBoard ReplyTargetKind = "board"
	// TargetReply は既存返信への返信。
	TargetReply ReplyTargetKind = "reply"
)

// ReplyTarget は返信先（投稿または返信）のタグ付きバリアント。
// nullableな二重外部キーではなく種別タグで分岐する。
type ReplyTarget struct {
	Kind ReplyTargetKind
	ID   string
}

// BoardTarget は投稿本体を返信先とするReplyTargetを生成する。
func BoardTarget(boardID string) ReplyTarget {
	return ReplyTarget{Kind: TargetBoard, ID: boardID}
}

// ReplyToTarget は既存返信を返信先とするReplyTargetを生成する。
func ReplyToTarget(replyID string) ReplyTarget {
	return ReplyTarget{Kind: TargetReply, ID: replyID}
}

// Stats は管理者向けのシステム統計スナップショットを表す。
// 集計中の並行書き込みが部分的に反映されることは許容する。
type Stats struct {
	TotalUsers  int64
	TotalBoards int64
	TotalViews  int64
}
