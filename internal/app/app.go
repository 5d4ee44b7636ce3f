package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hitoshi/examexperts/internal/auth"
	"github.com/hitoshi/examexperts/internal/client"
	"github.com/hitoshi/examexperts/internal/config"
	"github.com/hitoshi/examexperts/internal/database"
	"github.com/hitoshi/examexperts/internal/handler"
	"github.com/hitoshi/examexperts/internal/logger"
	"github.com/hitoshi/examexperts/internal/metrics"
	"github.com/hitoshi/examexperts/internal/password"
	"github.com/hitoshi/examexperts/internal/repository"
	"github.com/hitoshi/examexperts/internal/security"
	"github.com/hitoshi/examexperts/internal/seed"
	"github.com/hitoshi/examexperts/internal/token"
	"github.com/hitoshi/examexperts/internal/user"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	// defaultHealthcheckPort はSERVER_PORT未設定時のヘルスチェック先ポート。
	defaultHealthcheckPort = "5000"
	// shutdownTimeout はグレースフルシャットダウンの待機上限。
	shutdownTimeout = 30 * time.Second
	// startupTimeout は起動時のDB接続・デモ投入の待機上限。
	startupTimeout = 30 * time.Second
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再構成する
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = defaultHealthcheckPort
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return runHealthcheck(ctx, "http://localhost:"+port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("env", cfg.AppEnv),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return serve(ctx, cfg)
}

// serve は依存関係をワイヤリングしてHTTPサーバーを起動し、ctxが終了するまでブロックする。
func serve(ctx context.Context, cfg *config.Config) error {
	router, cleanup, err := buildHandler(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("ExamExperts API running",
			slog.String("addr", server.Addr),
			slog.String("environment", cfg.AppEnv),
			slog.String("health_url", fmt.Sprintf("http://localhost:%s/api/health", cfg.ServerPort)),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// buildHandler はストア・サービス・ルーターを構築する。
// DATABASE_URLが空の場合はインメモリストアを使用する。
// 返されるcleanupはDB接続などのリソースを解放する。
func buildHandler(ctx context.Context, cfg *config.Config) (http.Handler, func(), error) {
	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	cleanup := func() {}

	// 1. ストアの初期化
	var (
		userRepo      repository.UserRepository
		healthChecker handler.HealthChecker
	)
	if cfg.UsesDatabase() {
		db, err := database.Connect(startCtx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		slog.Info("database connection established",
			slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		)
		userRepo = repository.NewPostgresUserRepo(db)
		healthChecker = db
		cleanup = func() {
			if err := db.Close(); err != nil {
				slog.Error("failed to close database", slog.String("error", err.Error()))
			}
		}
	} else {
		slog.Warn("DATABASE_URL is not set; using in-memory store (data is lost on restart)")
		userRepo = repository.NewMemoryUserRepo()
	}

	// 2. セキュリティ部品の初期化
	hasher := password.NewHasher(cfg.BcryptCost)
	tokens, err := token.NewManager(cfg.JWTSecret, token.DefaultTTL)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to create token manager: %w", err)
	}
	sanitizer := security.NewTextSanitizer()

	// 3. デモアカウントの投入
	if cfg.SeedDemoUsers {
		if _, err := seed.NewSeeder(userRepo, hasher).Run(startCtx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to seed demo accounts: %w", err)
		}
	}

	// 4. メトリクスの初期化
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// 5. ドメインサービスの初期化
	authService := auth.NewService(userRepo, hasher, tokens, sanitizer, collector)
	userService := user.NewService(userRepo, sanitizer)

	// 6. ルーターの構築
	router := handler.NewRouter(&handler.RouterDeps{
		TokenVerifier:     tokens,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		Logger:            slog.Default(),

		Metrics:         collector,
		MetricsGatherer: reg,

		AppVersion:    cfg.AppVersion,
		HealthChecker: healthChecker,

		AuthService: authService,
		UserService: userService,
	})

	return router, cleanup, nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if !cfg.UsesDatabase() {
		return errors.New("DATABASE_URL is required for migrate")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("schema_version", uint64(version)))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
func runHealthcheck(ctx context.Context, baseURL string) error {
	c := client.NewClient(baseURL, &http.Client{Timeout: 5 * time.Second}, slog.Default())

	h, err := c.Health(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if h.Status != "API is running" {
		return fmt.Errorf("health check returned status %q", h.Status)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
