package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/examexperts/internal/auth"
	"github.com/hitoshi/examexperts/internal/model"
	"github.com/hitoshi/examexperts/internal/password"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password string) (*auth.Result, error)
	Register(ctx context.Context, in auth.RegisterInput) (*auth.Result, error)
	ChangePassword(ctx context.Context, userID int64, in auth.ChangePasswordInput) error
}

// AuthHandler はログイン・登録・パスワード関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
	Name            string `json:"name"`
	Role            string `json:"role"`
}

type validatePasswordRequest struct {
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// authResponse はログイン・登録成功時のレスポンス。
type authResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	User    userResponse `json:"user"`
	Token   string       `json:"token"`
}

type validatePasswordResponse struct {
	Strength     password.Strength     `json:"strength"`
	Score        int                   `json:"score"`
	Requirements password.Requirements `json:"requirements"`
	IsValid      bool                  `json:"isValid"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Login はメールアドレスとパスワードで認証しトークンを返す。
// POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Success: true,
		Message: "Login successful",
		User:    toUserResponse(result.User),
		Token:   result.Token,
	})
}

// Signup は新規アカウントを作成しトークンを返す。
// POST /api/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	result, err := h.service.Register(r.Context(), auth.RegisterInput{
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		Name:            req.Name,
		Role:            req.Role,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		Success: true,
		Message: "Account created successfully",
		User:    toUserResponse(result.User),
		Token:   result.Token,
	})
}

// ValidatePassword はパスワード強度を評価して返す。状態は変更しない。
// POST /api/validate-password
func (h *AuthHandler) ValidatePassword(w http.ResponseWriter, r *http.Request) {
	var req validatePasswordRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if req.Password == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError("Password required"))
		return
	}

	eval := password.Evaluate(req.Password)
	writeJSON(w, http.StatusOK, validatePasswordResponse{
		Strength:     eval.Strength,
		Score:        eval.Score,
		Requirements: eval.Requirements,
		IsValid:      eval.AllMet,
	})
}

// ChangePassword はログイン中ユーザーのパスワードを変更する。
// POST /api/user/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := claimsOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	err := h.service.ChangePassword(r.Context(), userID, auth.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Success: true,
		Message: "Password changed successfully",
	})
}

// Logout はログアウトを受け付ける。
// トークンはサーバー側で管理しないため、破棄はクライアントが行う。
// POST /api/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{
		Success: true,
		Message: "Logged out successfully",
	})
}
