package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/examexperts/internal/model"
	"github.com/hitoshi/examexperts/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	GetProfile(ctx context.Context, userID int64) (*user.Profile, error)
	UpdateProfile(ctx context.Context, userID int64, name string) (*model.PublicUser, error)
	// ListUsers はcallerRoleがAdminでない場合Forbiddenを返す。
	ListUsers(ctx context.Context, callerRole string) ([]model.PublicUser, error)
}

// UserHandler はプロフィールと管理者向け一覧のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

type profileResponse struct {
	ID                int64     `json:"id"`
	Email             string    `json:"email"`
	Name              string    `json:"name"`
	Role              string    `json:"role"`
	CertProgress      int       `json:"certProgress"`
	SessionsCompleted int       `json:"sessionsCompleted"`
	CreatedAt         time.Time `json:"createdAt"`
}

type getProfileResponse struct {
	Success bool            `json:"success"`
	User    profileResponse `json:"user"`
}

type updateProfileRequest struct {
	Name string `json:"name"`
}

type updateProfileResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	User    userResponse `json:"user"`
}

type listUsersResponse struct {
	Success    bool                `json:"success"`
	TotalUsers int                 `json:"totalUsers"`
	Users      []adminUserResponse `json:"users"`
}

// GetProfile はログイン中ユーザーのプロフィールを返す。
// GET /api/user/profile
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := claimsOrUnauthorized(w, r)
	if !ok {
		return
	}

	p, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, getProfileResponse{
		Success: true,
		User: profileResponse{
			ID:                p.ID,
			Email:             p.Email,
			Name:              p.Name,
			Role:              p.Role,
			CertProgress:      p.CertProgress,
			SessionsCompleted: p.SessionsCompleted,
			CreatedAt:         p.CreatedAt,
		},
	})
}

// UpdateProfile はログイン中ユーザーの表示名を更新する。
// PUT /api/user/profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := claimsOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	u, err := h.service.UpdateProfile(r.Context(), userID, req.Name)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, updateProfileResponse{
		Success: true,
		Message: "Profile updated",
		User:    toUserResponse(*u),
	})
}

// ListUsers は全ユーザーの一覧を返す。Adminロールのみ。
// GET /api/admin/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	_, role, ok := claimsOrUnauthorized(w, r)
	if !ok {
		return
	}

	users, err := h.service.ListUsers(r.Context(), role)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	out := make([]adminUserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, adminUserResponse{
			ID:        u.ID,
			Email:     u.Email,
			Name:      u.Name,
			Role:      u.Role,
			CreatedAt: u.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, listUsersResponse{
		Success:    true,
		TotalUsers: len(out),
		Users:      out,
	})
}
