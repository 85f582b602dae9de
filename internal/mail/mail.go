// Package mail はメール認証用のメール送信機能を提供する。
package mail

import (
	"fmt"
	"log/slog"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Sender はメール認証メールの送信インターフェース。
type Sender interface {
	// SendVerification は認証リンクを含むメールを送信する。
	SendVerification(toEmail, toName, verifyURL string) error
}

// SendGridSender はSendGrid APIを使用したSender実装。
type SendGridSender struct {
	apiKey     string
	senderAddr string
}

// NewSendGridSender はSendGridSenderを生成する。
func NewSendGridSender(apiKey, senderAddr string) *SendGridSender {
	return &SendGridSender{
		apiKey:     apiKey,
		senderAddr: senderAddr,
	}
}

// SendVerification は認証リンクを含むメールを送信する。
func (s *SendGridSender) SendVerification(toEmail, toName, verifyURL string) error {
	from := mail.NewEmail("Boardman", s.senderAddr)
	subject := "メールアドレスの確認"
	to := mail.NewEmail(toName, toEmail)

	plainTextContent := fmt.Sprintf("以下のURLを開いてメールアドレスの確認を完了してください。\n%s", verifyURL)
	htmlContent := fmt.Sprintf(`<p>以下のリンクを開いてメールアドレスの確認を完了してください。</p><p><a href="%s">メールアドレスを確認する</a></p>`, verifyURL)

	message := mail.NewSingleEmail(from, subject, to, plainTextContent, htmlContent)
	client := sendgrid.NewSendClient(s.apiKey)
	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d", response.StatusCode)
	}

	slog.Info("verification email sent",
		slog.String("to", toEmail),
		slog.Int("status_code", response.StatusCode),
	)
	return nil
}

// LogSender はメールを送信せず認証URLをログに出力するSender実装。
// EMAIL_API_KEYが未設定の開発環境で使用する。
type LogSender struct{}

// NewLogSender はLogSenderを生成する。
func NewLogSender() *LogSender {
	return &LogSender{}
}

// SendVerification は認証URLをログに出力する。
func (s *LogSender) SendVerification(toEmail, toName, verifyURL string) error {
	slog.Info("verification email (log only)",
		slog.String("to", toEmail),
		slog.String("verify_url", verifyURL),
	)
	return nil
}

// compile-time interface check
var _ Sender = (*SendGridSender)(nil)
var _ Sender = (*LogSender)(nil)
