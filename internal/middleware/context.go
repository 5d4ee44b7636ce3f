// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/hitoshi/examexperts/internal/token"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// claimsContextKey は検証済みトークンのクレームを格納するキー。
	claimsContextKey = contextKey("claims")
	// requestIDContextKey はリクエストIDを格納するキー。
	requestIDContextKey = contextKey("request_id")
	// logFieldsContextKey はアクセスログ用の可変フィールドを格納するキー。
	logFieldsContextKey = contextKey("log_fields")
)

// logFields はロギングミドルウェアより内側で判明する値を外側に伝えるための入れ物。
// 認証ミドルウェアはルートグループ内で実行されるため、コンテキスト経由では値を返せない。
type logFields struct {
	userID atomic.Int64
}

// ClaimsFromContext はリクエストコンテキストから検証済みクレームを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func ClaimsFromContext(ctx context.Context) (*token.Claims, error) {
	claims, ok := ctx.Value(claimsContextKey).(*token.Claims)
	if !ok || claims == nil {
		return nil, fmt.Errorf("claims not found in context")
	}
	return claims, nil
}

// ContextWithClaims はコンテキストにクレームを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithClaims(ctx context.Context, claims *token.Claims) context.Context {
	if lf, ok := ctx.Value(logFieldsContextKey).(*logFields); ok {
		lf.userID.Store(claims.UserID)
	}
	return context.WithValue(ctx, claimsContextKey, claims)
}

// RequestIDFromContext はリクエストIDを返す。未設定の場合は空文字列を返す。
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}
