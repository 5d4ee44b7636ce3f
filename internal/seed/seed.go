// Package seed は起動時のデモアカウント投入を提供する。
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/examexperts/internal/model"
	"github.com/hitoshi/examexperts/internal/repository"
)

// PasswordHasher はデモアカウントのパスワードハッシュ化に必要なインターフェース。
type PasswordHasher interface {
	Hash(pw string) (string, error)
}

// DemoAccount はデモアカウントの定義。Passwordは投入時にハッシュ化する。
type DemoAccount struct {
	Email      string
	Password   string
	Name       string
	Role       string
	Attributes map[string]int
	CreatedAt  time.Time
}

// DemoAccounts は投入するデモアカウントの一覧。ID順に並べる。
func DemoAccounts() []DemoAccount {
	return []DemoAccount{
		{
			Email:    "tutor@examexperts.com",
			Password: "Password123!",
			Name:     "Sarah Tutor",
			Role:     model.RoleTutor,
			Attributes: map[string]int{
				model.AttrCertProgress:      65,
				model.AttrSessionsCompleted: 23,
			},
			CreatedAt: time.Date(2024, 9, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			Email:    "manager@examexperts.com",
			Password: "Password123!",
			Name:     "James Manager",
			Role:     model.RoleManager,
			Attributes: map[string]int{
				model.AttrTeamSize:      8,
				model.AttrAvgCompliance: 83,
			},
			CreatedAt: time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			Email:    "admin@examexperts.com",
			Password: "Mytime22!",
			Name:     "Alan Herrera",
			Role:     model.RoleAdmin,
			Attributes: map[string]int{
				model.AttrTotalUsers: 15,
			},
			CreatedAt: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

// Seeder はストアが空の場合にデモアカウントを投入する。
type Seeder struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	accounts []DemoAccount
}

// NewSeeder はSeederを生成する。
func NewSeeder(userRepo repository.UserRepository, hasher PasswordHasher) *Seeder {
	return &Seeder{
		userRepo: userRepo,
		hasher:   hasher,
		accounts: DemoAccounts(),
	}
}

// Run はデモアカウントを投入し、投入した件数を返す。
// ストアに既にユーザーが存在する場合は何もしない。
func (s *Seeder) Run(ctx context.Context) (int, error) {
	count, err := s.userRepo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		slog.Info("demo seeding skipped: store is not empty", slog.Int("users", count))
		return 0, nil
	}

	for i, acct := range s.accounts {
		hash, err := s.hasher.Hash(acct.Password)
		if err != nil {
			return i, fmt.Errorf("failed to hash password for %s: %w", acct.Email, err)
		}

		u, err := s.userRepo.Insert(ctx, &model.User{
			Email:        acct.Email,
			PasswordHash: hash,
			Name:         acct.Name,
			Role:         acct.Role,
			Attributes:   acct.Attributes,
			CreatedAt:    acct.CreatedAt,
		})
		if err != nil {
			return i, fmt.Errorf("failed to insert demo account %s: %w", acct.Email, err)
		}

		slog.Info("demo account seeded",
			slog.Int64("user_id", u.ID),
			slog.String("email", u.Email),
			slog.String("role", u.Role),
		)
	}

	return len(s.accounts), nil
}
