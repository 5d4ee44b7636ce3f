// Package auth はメールアドレスとパスワードによる認証フローを提供する。
// ログイン・アカウント登録・パスワード変更を担い、成功時は署名付きトークンを発行する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/hitoshi/examexperts/internal/metrics"
	"github.com/hitoshi/examexperts/internal/model"
	"github.com/hitoshi/examexperts/internal/password"
	"github.com/hitoshi/examexperts/internal/repository"
	"github.com/hitoshi/examexperts/internal/security"
)

// emailPattern はローカル部@ドメイン部（ドメインにドットを含む）の簡易チェック。
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// PasswordHasher はパスワードのハッシュ化と照合のインターフェース。
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Compare(hash, pw string) bool
}

// TokenIssuer はセッショントークン発行のインターフェース。
type TokenIssuer interface {
	Issue(userID int64, email, role string) (string, error)
}

// Result はログイン・登録成功時の結果。
type Result struct {
	User  model.PublicUser
	Token string
}

// RegisterInput はアカウント登録の入力。
// Roleが空の場合はmodel.DefaultRoleを使用する。
type RegisterInput struct {
	Email           string
	Password        string
	PasswordConfirm string
	Name            string
	Role            string
}

// ChangePasswordInput はパスワード変更の入力。
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
	ConfirmPassword string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo  repository.UserRepository
	hasher    PasswordHasher
	tokens    TokenIssuer
	sanitizer security.TextSanitizer
	metrics   metrics.MetricsCollector
	nowFunc   func() time.Time
}

// NewService はServiceを生成する。
// sanitizerとmetricsはnilでもよい。
func NewService(
	userRepo repository.UserRepository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	sanitizer security.TextSanitizer,
	mc metrics.MetricsCollector,
) *Service {
	return &Service{
		userRepo:  userRepo,
		hasher:    hasher,
		tokens:    tokens,
		sanitizer: sanitizer,
		metrics:   mc,
		nowFunc:   time.Now,
	}
}

// Login はメールアドレスとパスワードで認証し、トークンを発行する。
// メールアドレスは大文字小文字を区別して完全一致で照合する。
// 該当ユーザーがいない場合とパスワード不一致の場合は区別せずInvalidCredentialsを返す。
func (s *Service) Login(ctx context.Context, email, pw string) (*Result, error) {
	if email == "" || pw == "" {
		return nil, model.NewMissingFieldsError("Email and password required")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !s.hasher.Compare(user.PasswordHash, pw) {
		s.recordLogin(metrics.ResultFailure)
		slog.Info("login rejected", slog.String("reason", "invalid_credentials"))
		return nil, model.NewInvalidCredentialsError()
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	s.recordLogin(metrics.ResultSuccess)
	slog.Info("user logged in",
		slog.Int64("user_id", user.ID),
		slog.String("role", user.Role),
	)
	return result, nil
}

// Register は新規アカウントを作成し、トークンを発行する。
// 検証順序: 必須項目 → メール形式 → パスワード確認一致 → パスワードポリシー → メール重複。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Result, error) {
	name := s.sanitize(in.Name)
	if in.Email == "" || in.Password == "" || name == "" {
		s.recordSignup(metrics.ResultRejected)
		return nil, model.NewMissingFieldsError("Email, password, and name are required")
	}

	if !emailPattern.MatchString(in.Email) {
		s.recordSignup(metrics.ResultRejected)
		return nil, model.NewInvalidEmailError()
	}

	if in.Password != in.PasswordConfirm {
		s.recordSignup(metrics.ResultRejected)
		return nil, model.NewPasswordMismatchError("Passwords do not match")
	}

	if eval := password.Evaluate(in.Password); !eval.AllMet {
		s.recordSignup(metrics.ResultRejected)
		return nil, model.NewWeakPasswordError(eval.Requirements)
	}

	existing, err := s.userRepo.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if existing != nil {
		s.recordSignup(metrics.ResultRejected)
		return nil, model.NewDuplicateEmailError()
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		s.recordSignup(metrics.ResultRejected)
		return nil, err
	}

	role := in.Role
	if role == "" {
		role = model.DefaultRole
	}

	now := s.nowFunc()
	created, err := s.userRepo.Insert(ctx, &model.User{
		Email:        in.Email,
		PasswordHash: hash,
		Name:         name,
		Role:         role,
		Attributes: map[string]int{
			model.AttrCertProgress:      0,
			model.AttrSessionsCompleted: 0,
		},
		CreatedAt: now,
		UpdatedAt: now,
	})
	if errors.Is(err, repository.ErrDuplicateEmail) {
		// FindByEmailとInsertの間に同じメールアドレスで登録された場合
		s.recordSignup(metrics.ResultRejected)
		return nil, model.NewDuplicateEmailError()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	result, err := s.issue(created)
	if err != nil {
		return nil, err
	}

	s.recordSignup(metrics.ResultSuccess)
	slog.Info("user registered",
		slog.Int64("user_id", created.ID),
		slog.String("role", created.Role),
	)
	return result, nil
}

// ChangePassword は現在のパスワードを確認したうえでパスワードを変更する。
// 発行済みトークンは失効させない。
func (s *Service) ChangePassword(ctx context.Context, userID int64, in ChangePasswordInput) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	if !s.hasher.Compare(user.PasswordHash, in.CurrentPassword) {
		s.recordPasswordChange(metrics.ResultFailure)
		return model.NewWrongPasswordError()
	}

	if in.NewPassword != in.ConfirmPassword {
		s.recordPasswordChange(metrics.ResultRejected)
		return model.NewPasswordMismatchError("New passwords do not match")
	}

	if eval := password.Evaluate(in.NewPassword); !eval.AllMet {
		s.recordPasswordChange(metrics.ResultRejected)
		return model.NewWeakPasswordError(eval.Requirements)
	}

	hash, err := s.hashPassword(in.NewPassword)
	if err != nil {
		s.recordPasswordChange(metrics.ResultRejected)
		return err
	}

	_, err = s.userRepo.Update(ctx, userID, func(u *model.User) {
		u.PasswordHash = hash
	})
	if errors.Is(err, repository.ErrUserNotFound) {
		return model.NewUserNotFoundError()
	}
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.recordPasswordChange(metrics.ResultSuccess)
	slog.Info("password changed", slog.Int64("user_id", userID))
	return nil
}

func (s *Service) issue(user *model.User) (*Result, error) {
	tok, err := s.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &Result{User: user.Public(), Token: tok}, nil
}

func (s *Service) hashPassword(pw string) (string, error) {
	hash, err := s.hasher.Hash(pw)
	if errors.Is(err, password.ErrTooLong) {
		return "", model.NewPasswordTooLongError(password.MaxBytes)
	}
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}

func (s *Service) sanitize(name string) string {
	if s.sanitizer == nil {
		return name
	}
	return s.sanitizer.Sanitize(name)
}

func (s *Service) recordLogin(result string) {
	if s.metrics != nil {
		s.metrics.RecordLogin(result)
	}
}

func (s *Service) recordSignup(result string) {
	if s.metrics != nil {
		s.metrics.RecordSignup(result)
	}
}

func (s *Service) recordPasswordChange(result string) {
	if s.metrics != nil {
		s.metrics.RecordPasswordChange(result)
	}
}
