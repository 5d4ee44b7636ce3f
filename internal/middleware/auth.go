package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/examexperts/internal/metrics"
	"github.com/hitoshi/examexperts/internal/model"
	"github.com/hitoshi/examexperts/internal/token"
)

// TokenVerifier はトークン検証に必要なインターフェース。
type TokenVerifier interface {
	Verify(tokenString string) (*token.Claims, error)
}

// errMissingToken はAuthorizationヘッダーにトークンが含まれない場合のエラー。
var errMissingToken = errors.New("no bearer token")

// NewAuthMiddleware はAuthorization: Bearerヘッダーのトークンを検証するミドルウェアを返す。
// 検証済みクレームをリクエストコンテキストに注入する。ストアは参照しない。
// トークンなしは"No token provided"、期限切れは"Token expired"、
// それ以外の検証失敗は"Invalid token"で401を返す。
func NewAuthMiddleware(verifier TokenVerifier, mc metrics.MetricsCollector) func(next http.Handler) http.Handler {
	reject := func(w http.ResponseWriter, reason string, apiErr *model.APIError) {
		if mc != nil {
			mc.RecordTokenRejected(reason)
		}
		WriteErrorResponse(w, http.StatusUnauthorized, apiErr)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := extractBearerToken(r.Header.Get("Authorization"))
			if errors.Is(err, errMissingToken) {
				reject(w, metrics.ReasonMissing, model.NewMissingTokenError())
				return
			}
			if err != nil {
				reject(w, metrics.ReasonInvalid, model.NewInvalidTokenError())
				return
			}

			claims, err := verifier.Verify(raw)
			if errors.Is(err, token.ErrExpired) {
				reject(w, metrics.ReasonExpired, model.NewTokenExpiredError())
				return
			}
			if err != nil {
				slog.Debug("token rejected",
					slog.String("error", err.Error()),
					slog.String("request_id", RequestIDFromContext(r.Context())),
				)
				reject(w, metrics.ReasonInvalid, model.NewInvalidTokenError())
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
		})
	}
}

// extractBearerToken はAuthorizationヘッダーからトークン部分を取り出す。
// ヘッダーがない、またはトークン部分が空の場合はerrMissingTokenを返す。
func extractBearerToken(authHeader string) (string, error) {
	authHeader = strings.TrimSpace(authHeader)
	if authHeader == "" {
		return "", errMissingToken
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.TrimSpace(parts[1]) == "" {
		return "", errMissingToken
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("unsupported authorization scheme")
	}
	return strings.TrimSpace(parts[1]), nil
}
