// Package user はプロフィール参照・更新と管理者向けユーザー一覧のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/examexperts/internal/model"
	"github.com/hitoshi/examexperts/internal/repository"
	"github.com/hitoshi/examexperts/internal/security"
)

// Profile はプロフィール画面向けのユーザー情報。
type Profile struct {
	ID                int64
	Email             string
	Name              string
	Role              string
	CertProgress      int
	SessionsCompleted int
	CreatedAt         time.Time
}

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo  repository.UserRepository
	sanitizer security.TextSanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, sanitizer security.TextSanitizer) *Service {
	return &Service{
		userRepo:  userRepo,
		sanitizer: sanitizer,
	}
}

// GetProfile は指定ユーザーのプロフィールを返す。
func (s *Service) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError()
	}
	return toProfile(u), nil
}

// UpdateProfile は表示名を更新する。
// サニタイズ後の名前が空の場合はレコードを変更せずに現在の値を返す。
func (s *Service) UpdateProfile(ctx context.Context, userID int64, name string) (*model.PublicUser, error) {
	if s.sanitizer != nil {
		name = s.sanitizer.Sanitize(name)
	}

	if name == "" {
		u, err := s.userRepo.FindByID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to find user: %w", err)
		}
		if u == nil {
			return nil, model.NewUserNotFoundError()
		}
		pub := u.Public()
		return &pub, nil
	}

	u, err := s.userRepo.Update(ctx, userID, func(u *model.User) {
		u.Name = name
	})
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, model.NewUserNotFoundError()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	slog.Info("profile updated", slog.Int64("user_id", userID))

	pub := u.Public()
	return &pub, nil
}

// ListUsers は全ユーザーの公開情報をID昇順で返す。
// 呼び出し元のロールはトークンのクレームをそのまま信頼する。
func (s *Service) ListUsers(ctx context.Context, callerRole string) ([]model.PublicUser, error) {
	if callerRole != model.RoleAdmin {
		return nil, model.NewForbiddenError()
	}

	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	out := make([]model.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

func toProfile(u *model.User) *Profile {
	return &Profile{
		ID:                u.ID,
		Email:             u.Email,
		Name:              u.Name,
		Role:              u.Role,
		CertProgress:      u.Attribute(model.AttrCertProgress),
		SessionsCompleted: u.Attribute(model.AttrSessionsCompleted),
		CreatedAt:         u.CreatedAt,
	}
}
