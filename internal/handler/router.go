package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/examexperts/internal/metrics"
	"github.com/hitoshi/examexperts/internal/middleware"
	"github.com/hitoshi/examexperts/internal/model"
	"github.com/prometheus/client_golang/prometheus"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	Logger            *slog.Logger

	// メトリクス（nilの場合は記録しない、/metricsも公開しない）
	Metrics         metrics.MetricsCollector
	MetricsGatherer prometheus.Gatherer

	// ヘルスチェック
	AppVersion    string
	HealthChecker HealthChecker

	// サービス
	AuthService AuthServiceInterface
	UserService UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Logging → Metrics → Recovery → SecurityHeaders → CORS
//
// 認証ミドルウェアはルート単位で付与する。未定義のパス・メソッドは認証より先に404になる。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	notFound := func(w http.ResponseWriter, r *http.Request) {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewEndpointNotFoundError())
	}
	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	healthHandler := NewHealthHandler(deps.AppVersion, deps.HealthChecker)
	authHandler := NewAuthHandler(deps.AuthService)
	userHandler := NewUserHandler(deps.UserService)

	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// --- 認証不要のルート ---
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.Health)
		r.Post("/login", authHandler.Login)
		r.Post("/signup", authHandler.Signup)
		r.Post("/validate-password", authHandler.ValidatePassword)
		r.Post("/logout", authHandler.Logout)

		// --- 認証が必要なルート ---
		authMW := middleware.NewAuthMiddleware(deps.TokenVerifier, deps.Metrics)

		// ユーザー
		r.With(authMW).Get("/user/profile", userHandler.GetProfile)
		r.With(authMW).Put("/user/profile", userHandler.UpdateProfile)
		r.With(authMW).Post("/user/change-password", authHandler.ChangePassword)

		// 管理者
		r.With(authMW).Get("/admin/users", userHandler.ListUsers)
	})

	return r
}
