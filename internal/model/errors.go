// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, board, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeTokenNotFound      = "TOKEN_NOT_FOUND"
	ErrCodeTokenExpired       = "TOKEN_EXPIRED"
	ErrCodeTokenAlreadyUsed   = "TOKEN_ALREADY_USED"
	ErrCodeAlreadyVerified    = "ALREADY_VERIFIED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeEmailNotVerified   = "EMAIL_NOT_VERIFIED"
	ErrCodeInvalidContent     = "INVALID_CONTENT"
	ErrCodeInvalidTitle       = "INVALID_TITLE"
	ErrCodeMaxDepthExceeded   = "MAX_DEPTH_EXCEEDED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeParentUnavailable  = "PARENT_UNAVAILABLE"
	ErrCodeTimeout            = "TIMEOUT"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeBoardNotFound      = "BOARD_NOT_FOUND"
	ErrCodeReplyNotFound      = "REPLY_NOT_FOUND"
	ErrCodeDuplicateUsername  = "DUPLICATE_USERNAME"
	ErrCodeDuplicateEmail     = "DUPLICATE_EMAIL"
	ErrCodeBoardMismatch      = "BOARD_MISMATCH"
	ErrCodeLastRole           = "LAST_ROLE"
)

// NewTokenNotFoundError は認証トークン未検出エラーを生成する。
// 再発行によって無効化されたトークンの消費もこのエラーになる。
func NewTokenNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenNotFound,
		Message:  "認証トークンが見つかりません。",
		Category: "auth",
		Action:   "認証メールの再送信を依頼してください。",
	}
}

// NewTokenExpiredError はトークン期限切れエラーを生成する。
func NewTokenExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenExpired,
		Message:  "認証トークンの有効期限が切れています。",
		Category: "auth",
		Action:   "認証メールの再送信を依頼してください。",
	}
}

// NewTokenAlreadyUsedError はトークン再使用エラーを生成する。
func NewTokenAlreadyUsedError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenAlreadyUsed,
		Message:  "この認証トークンは既に使用されています。",
		Category: "auth",
		Action:   "ログインしてアカウントの状態を確認してください。",
	}
}

// NewAlreadyVerifiedError は認証済みアカウントへの再認証要求エラーを生成する。
func NewAlreadyVerifiedError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyVerified,
		Message:  "このアカウントは既にメール認証が完了しています。",
		Category: "auth",
		Action:   "そのままログインしてください。",
	}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// ユーザー不在とパスワード不一致は区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewEmailNotVerifiedError は未認証アカウントのログイン拒否エラーを生成する。
func NewEmailNotVerifiedError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailNotVerified,
		Message:  "メールアドレスの認証が完了していません。",
		Category: "auth",
		Action:   "受信した認証メールのリンクを開くか、再送信を依頼してください。",
	}
}

// NewInvalidContentError は本文の長さ制約違反エラーを生成する。
func NewInvalidContentError(maxLength int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidContent,
		Message:  fmt.Sprintf("本文は1文字以上%d文字以下で入力してください。", maxLength),
		Category: "validation",
		Action:   "本文の長さを調整して再度お試しください。",
	}
}

// NewInvalidTitleError はタイトルの長さ制約違反エラーを生成する。
func NewInvalidTitleError(maxLength int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTitle,
		Message:  fmt.Sprintf("タイトルは1文字以上%d文字以下で入力してください。", maxLength),
		Category: "validation",
		Action:   "タイトルの長さを調整して再度お試しください。",
	}
}

// NewMaxDepthExceededError は返信ネストの深さ上限超過エラーを生成する。
func NewMaxDepthExceededError(maxDepth int) *APIError {
	return &APIError{
		Code:     ErrCodeMaxDepthExceeded,
		Message:  fmt.Sprintf("返信の深さは%dまでです。", maxDepth),
		Category: "validation",
		Action:   "より上位の返信または投稿本体に返信してください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "作成者本人または管理者のみ実行できます。",
	}
}

// NewParentUnavailableError は削除済み親返信への返信エラーを生成する。
func NewParentUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeParentUnavailable,
		Message:  "返信先の返信は削除されています。",
		Category: "board",
		Action:   "最新のスレッドを再読み込みしてください。",
	}
}

// NewTimeoutError はストレージ操作のタイムアウトエラーを生成する。
func NewTimeoutError() *APIError {
	return &APIError{
		Code:     ErrCodeTimeout,
		Message:  "処理がタイムアウトしました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewConflictError は楽観的並行制御の競合エラーを生成する。
func NewConflictError() *APIError {
	return &APIError{
		Code:     ErrCodeConflict,
		Message:  "他の操作と競合したため処理を完了できませんでした。",
		Category: "system",
		Action:   "最新の状態を確認して再度お試しください。",
	}
}

// NewUserNotFoundError はユーザー未検出エラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewBoardNotFoundError は投稿未検出エラーを生成する。
func NewBoardNotFoundError(boardID string) *APIError {
	return &APIError{
		Code:     ErrCodeBoardNotFound,
		Message:  fmt.Sprintf("指定された投稿が見つかりません: %s", boardID),
		Category: "board",
		Action:   "投稿IDを確認してください。",
	}
}

// NewReplyNotFoundError は返信未検出エラーを生成する。
func NewReplyNotFoundError(replyID string) *APIError {
	return &APIError{
		Code:     ErrCodeReplyNotFound,
		Message:  fmt.Sprintf("指定された返信が見つかりません: %s", replyID),
		Category: "board",
		Action:   "返信IDを確認してください。",
	}
}

// NewDuplicateUsernameError はユーザー名重複エラーを生成する。
func NewDuplicateUsernameError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateUsername,
		Message:  "このユーザー名は既に使用されています。",
		Category: "validation",
		Action:   "別のユーザー名を指定してください。",
	}
}

// NewDuplicateEmailError はメールアドレス重複エラーを生成する。
func NewDuplicateEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  "このメールアドレスは既に使用されています。",
		Category: "validation",
		Action:   "別のメールアドレスを指定してください。",
	}
}

// NewBoardMismatchError は親返信と対象投稿の不一致エラーを生成する。
func NewBoardMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodeBoardMismatch,
		Message:  "返信先の返信は別の投稿に属しています。",
		Category: "board",
		Action:   "返信先を確認してください。",
	}
}

// NewLastRoleError は最後のロール剥奪拒否エラーを生成する。
func NewLastRoleError() *APIError {
	return &APIError{
		Code:     ErrCodeLastRole,
		Message:  "最後のロールは剥奪できません。",
		Category: "validation",
		Action:   "先に別のロールを付与してください。",
	}
}
