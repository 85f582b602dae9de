// Package verification はメール認証のライフサイクルを管理する。
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/boardman/internal/mail"
	"github.com/hitoshi/boardman/internal/model"
	"github.com/hitoshi/boardman/internal/repository"
	"github.com/hitoshi/boardman/internal/token"
)

// VerificationRecorder はメール認証メトリクスの記録インターフェース。
// metrics.Collectorの部分集合として定義する。
type VerificationRecorder interface {
	RecordVerificationSuccess()
	RecordVerificationFailure(reason string)
}

// Service はメール認証のビジネスロジックを提供する。
// アカウントはUNVERIFIEDで始まり、有効なトークンの消費でVERIFIEDに
// 遷移する。VERIFIEDは終端状態で逆遷移はない。
type Service struct {
	userRepo repository.UserRepository
	tokens   *token.Store
	sender   mail.Sender
	recorder VerificationRecorder
	baseURL  string
	now      func() time.Time
}

// NewService はServiceを生成する。
// recorderはnilでもよい（メトリクス収集なしで動作する）。
func NewService(
	userRepo repository.UserRepository,
	tokens *token.Store,
	sender mail.Sender,
	recorder VerificationRecorder,
	baseURL string,
) *Service {
	return &Service{
		userRepo: userRepo,
		tokens:   tokens,
		sender:   sender,
		recorder: recorder,
		baseURL:  baseURL,
		now:      time.Now,
	}
}

// Start は認証トークンを発行し認証メールを送信する。
// メール送信の失敗はログに記録するだけで呼び出し側には返さない。
// 登録処理はメール基盤の障害で失敗させず、ユーザーは再送信で回復できる。
func (s *Service) Start(ctx context.Context, user *model.User) error {
	tok, err := s.tokens.Issue(ctx, user.ID, user.Email)
	if err != nil {
		return fmt.Errorf("認証トークンの発行に失敗しました: %w", err)
	}

	verifyURL := fmt.Sprintf("%s/api/users/verify?token=%s", s.baseURL, tok.Token)
	if err := s.sender.SendVerification(user.Email, user.Name, verifyURL); err != nil {
		slog.Error("failed to send verification email",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// Verify はトークンを消費してユーザーをVERIFIEDへ遷移させる。
// トークンの消費とユーザーの遷移はともに条件付きUPDATEで、
// 同じトークンによる並行認証はちょうど1回だけ成功する。
func (s *Service) Verify(ctx context.Context, tokenValue string) (*model.User, error) {
	consumed, err := s.tokens.Consume(ctx, tokenValue)
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}

	transitioned, err := s.userRepo.MarkVerified(ctx, consumed.UserID, s.now())
	if err != nil {
		return nil, fmt.Errorf("認証状態の更新に失敗しました: %w", err)
	}
	if !transitioned {
		// トークンは有効だったがユーザーは既にVERIFIEDだった
		err := model.NewAlreadyVerifiedError()
		s.recordFailure(err)
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, consumed.UserID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	slog.Info("user verified",
		slog.String("user_id", user.ID),
	)
	if s.recorder != nil {
		s.recorder.RecordVerificationSuccess()
	}
	return user, nil
}

// recordFailure は認証失敗をエラーコード別に記録する。
func (s *Service) recordFailure(err error) {
	if s.recorder == nil {
		return
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		s.recorder.RecordVerificationFailure(apiErr.Code)
		return
	}
	s.recorder.RecordVerificationFailure("INTERNAL")
}

// Resend は認証メールを再送信する。
// 新しいトークンが発行され、既存の未使用トークンは無効化される。
// 認証済みアカウントへの再送信要求はALREADY_VERIFIEDを返す。
func (s *Service) Resend(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}
	if user.Verified {
		return model.NewAlreadyVerifiedError()
	}

	return s.Start(ctx, user)
}
