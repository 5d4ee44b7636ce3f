// Package token は署名付きセッショントークン（HS256 JWT）の発行と検証を提供する。
// トークンはサーバー側に保存しない。有効性は署名と有効期限のみで判定する。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTTL はトークンの標準の有効期間（7日間）。
const DefaultTTL = 7 * 24 * time.Hour

var (
	// ErrInvalidToken は署名不正・形式不正のトークンに対して返される。
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpired は有効期限を過ぎたトークンに対して返される。
	ErrExpired = errors.New("token expired")
)

// Claims はトークンに埋め込むクレーム。
// 認可判定はUserID/Roleを信頼して行い、ストアを再参照しない。
type Claims struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Manager はトークンの発行と検証を行う。
type Manager struct {
	secret  []byte
	ttl     time.Duration
	nowFunc func() time.Time
}

// NewManager はManagerを生成する。
// ttlが0以下の場合はDefaultTTLを使用する。
func NewManager(secret string, ttl time.Duration) (*Manager, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		secret:  []byte(secret),
		ttl:     ttl,
		nowFunc: time.Now,
	}, nil
}

// TTL はトークンの有効期間を返す。
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue はユーザーID・メールアドレス・ロールを含む署名付きトークンを発行する。
// 発行時刻から有効期間が経過すると失効する。
func (m *Manager) Issue(userID int64, email, role string) (string, error) {
	now := m.nowFunc()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return s, nil
}

// Verify はトークンの署名と有効期限を検証し、クレームを返す。
// 期限切れの場合はErrExpired、それ以外の検証失敗はErrInvalidTokenを返す。
// HS256以外のアルゴリズムと非正規なbase64表現は拒否する。
func (m *Manager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(m.nowFunc),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !tok.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
