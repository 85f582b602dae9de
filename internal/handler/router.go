package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/boardman/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	SessionFinder     middleware.SessionFinder
	UserFinder        middleware.UserFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig

	// メトリクス公開用ハンドラー（nilの場合は/metricsを公開しない）
	MetricsHandler http.Handler
	// ステータスコードメトリクスの記録先（nilの場合は記録しない）
	StatusRecorder middleware.StatusRecorder

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ユーザー
	UserService         UserServiceInterface
	VerificationService VerificationServiceInterface

	// 投稿・返信
	BoardService BoardServiceInterface
	ReplyService ReplyServiceInterface

	// 管理者
	AdminService AdminServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Logging → Recovery → CSRF
//	（認証必須ルートはさらに Session → RateLimit(General)、
//	  書き込みルートは RateLimit(Write)、管理者ルートは Admin を追加）
//
// 投稿・返信の閲覧（GET）は認証不要。閲覧数の加算も未認証の閲覧で発生する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	if deps.StatusRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.StatusRecorder))
	}
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	userHandler := NewUserHandler(deps.UserService, deps.VerificationService)
	boardHandler := NewBoardHandler(deps.BoardService)
	replyHandler := NewReplyHandler(deps.ReplyService)
	adminHandler := NewAdminHandler(deps.AdminService)

	// --- 認証不要のルート ---

	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	r.Handle("/csrf", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// 登録とメール認証はログイン前に行う
	r.Post("/api/users", userHandler.Register)
	r.Get("/api/users/verify", userHandler.Verify)
	r.Post("/api/users/resend", userHandler.Resend)

	// 投稿・返信の閲覧
	r.Get("/api/boards", boardHandler.List)
	r.Get("/api/boards/{id}", boardHandler.Get)
	r.Get("/api/boards/{id}/replies", replyHandler.ListTree)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 投稿管理（作成は書き込み専用レート制限を追加）
		r.Route("/api/boards", func(r chi.Router) {
			r.With(deps.RateLimiter.WriteMiddleware()).Post("/", boardHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Put("/", boardHandler.Update)
				r.Delete("/", boardHandler.Delete)

				// POST /api/boards/{id}/replies - 投稿直下の返信作成
				r.With(deps.RateLimiter.WriteMiddleware()).Post("/replies", replyHandler.CreateOnBoard)
			})
		})

		// 返信管理
		r.Route("/api/replies/{id}", func(r chi.Router) {
			r.With(deps.RateLimiter.WriteMiddleware()).Post("/replies", replyHandler.CreateOnReply)
			r.Patch("/", replyHandler.Update)
			r.Delete("/", replyHandler.Delete)
		})

		// ユーザー管理
		r.Route("/api/users/me", func(r chi.Router) {
			r.Patch("/", userHandler.UpdateName)
			r.Put("/password", userHandler.UpdatePassword)
			r.Delete("/", userHandler.Withdraw)
		})

		// 管理者向けルート
		r.Route("/api/admin", func(r chi.Router) {
			r.Use(middleware.NewAdminMiddleware(deps.UserFinder))

			r.Get("/stats", adminHandler.Stats)
			r.Get("/users", adminHandler.ListUsers)
			r.Post("/users/{id}/roles/admin", adminHandler.GrantAdmin)
			r.Delete("/users/{id}/roles/admin", adminHandler.RevokeAdmin)
		})
	})

	return r
}
