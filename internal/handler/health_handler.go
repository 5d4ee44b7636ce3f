package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// HealthChecker はヘルスチェック時に疎通確認する依存先のインターフェース。
// *sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// healthPingTimeout はヘルスチェック時の疎通確認タイムアウト。
const healthPingTimeout = 2 * time.Second

// HealthHandler はヘルスチェックのHTTPハンドラー。
type HealthHandler struct {
	version string
	checker HealthChecker
	nowFunc func() time.Time
}

// NewHealthHandler はHealthHandlerを生成する。checkerはnilでもよい。
func NewHealthHandler(version string, checker HealthChecker) *HealthHandler {
	return &HealthHandler{
		version: version,
		checker: checker,
		nowFunc: time.Now,
	}
}

// healthResponse はヘルスチェックのレスポンス。
type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// Health はAPIの稼働状況を返す。常に200を返し、DB疎通失敗はログにのみ残す。
// GET /api/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "API is running",
		Timestamp: h.nowFunc().UTC().Format(time.RFC3339Nano),
		Version:   h.version,
	}

	if h.checker != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()
		if err := h.checker.PingContext(ctx); err != nil {
			slog.Error("health check: database unreachable", slog.String("error", err.Error()))
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
