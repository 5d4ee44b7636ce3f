// Package client はExamExperts APIのHTTPクライアントを提供する。
// ブラウザクライアントと同じ契約（/api配下のJSON、Bearerトークン、
// 非2xxはerrorフィールドをメッセージとするエラー）に従う。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// defaultErrorMessage はエラーレスポンスにerrorフィールドがない場合のメッセージ。
const defaultErrorMessage = "Request failed"

// Error はAPIが非2xxを返した場合のエラー。
type Error struct {
	StatusCode int
	Message    string
}

// Error はerrorインターフェースを実装する。
func (e *Error) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// User はログイン・登録・プロフィール更新で返るユーザー情報。
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Profile はプロフィール取得で返るユーザー情報。
type Profile struct {
	ID                int64     `json:"id"`
	Email             string    `json:"email"`
	Name              string    `json:"name"`
	Role              string    `json:"role"`
	CertProgress      int       `json:"certProgress"`
	SessionsCompleted int       `json:"sessionsCompleted"`
	CreatedAt         time.Time `json:"createdAt"`
}

// AdminUser は管理者向けユーザー一覧の1件分。
type AdminUser struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// AuthResult はログイン・登録の成功レスポンス。
type AuthResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	User    User   `json:"user"`
	Token   string `json:"token"`
}

// Health はヘルスチェックのレスポンス。
type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// PasswordRequirements はパスワード要件ごとの充足状況。
type PasswordRequirements struct {
	MinLength bool `json:"minLength"`
	Uppercase bool `json:"uppercase"`
	Lowercase bool `json:"lowercase"`
	Number    bool `json:"number"`
	Special   bool `json:"special"`
}

// PasswordValidation はパスワード強度評価のレスポンス。
type PasswordValidation struct {
	Strength     string               `json:"strength"`
	Score        int                  `json:"score"`
	Requirements PasswordRequirements `json:"requirements"`
	IsValid      bool                 `json:"isValid"`
}

// SignupRequest はアカウント登録のリクエスト。
type SignupRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
	Name            string `json:"name"`
	Role            string `json:"role,omitempty"`
}

// ChangePasswordRequest はパスワード変更のリクエスト。
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type messageResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Client はExamExperts APIのクライアント。
// ログイン・登録で得たトークンを保持し、以降のリクエストに付与する。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string

	mu    sync.RWMutex
	token string
}

// NewClient はClientの新しいインスタンスを生成する。
// httpClientがnilの場合はhttp.DefaultClientを使用する。
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Token は保持しているトークンを返す。
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken は以降のリクエストに付与するトークンを設定する。空文字で解除する。
func (c *Client) SetToken(tok string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = tok
}

// Health はAPIの稼働状況を取得する。
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login はログインし、成功した場合はトークンを保持する。
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var out AuthResult
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/login", body, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

// Signup はアカウントを登録し、成功した場合はトークンを保持する。
func (c *Client) Signup(ctx context.Context, req SignupRequest) (*AuthResult, error) {
	var out AuthResult
	if err := c.do(ctx, http.MethodPost, "/signup", req, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

// ValidatePassword はパスワード強度を評価する。
func (c *Client) ValidatePassword(ctx context.Context, password string) (*PasswordValidation, error) {
	var out PasswordValidation
	if err := c.do(ctx, http.MethodPost, "/validate-password", map[string]string{"password": password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile はログイン中ユーザーのプロフィールを取得する。
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	var out struct {
		User Profile `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/user/profile", nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// UpdateProfile はログイン中ユーザーの表示名を更新する。
func (c *Client) UpdateProfile(ctx context.Context, name string) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPut, "/user/profile", map[string]string{"name": name}, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// ChangePassword はログイン中ユーザーのパスワードを変更する。
func (c *Client) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	var out messageResult
	return c.do(ctx, http.MethodPost, "/user/change-password", req, &out)
}

// AdminUsers は全ユーザー一覧を取得する。Adminロールのトークンが必要。
func (c *Client) AdminUsers(ctx context.Context) ([]AdminUser, error) {
	var out struct {
		TotalUsers int         `json:"totalUsers"`
		Users      []AdminUser `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/users", nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// Logout はログアウトを通知し、保持しているトークンを破棄する。
// サーバー呼び出しが失敗してもトークンは破棄する。
func (c *Client) Logout(ctx context.Context) error {
	defer c.SetToken("")
	var out messageResult
	return c.do(ctx, http.MethodPost, "/logout", nil, &out)
}

// do は/api配下のエンドポイントにJSONリクエストを送信し、レスポンスをoutにデコードする。
func (c *Client) do(ctx context.Context, method, endpoint string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/api"+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("api request failed",
			slog.String("method", method),
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newError(resp.StatusCode, raw)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// newError はエラーレスポンスのerrorフィールドからErrorを生成する。
func newError(statusCode int, raw []byte) *Error {
	var payload struct {
		Error string `json:"error"`
	}
	msg := defaultErrorMessage
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		msg = payload.Error
	}
	return &Error{StatusCode: statusCode, Message: msg}
}
