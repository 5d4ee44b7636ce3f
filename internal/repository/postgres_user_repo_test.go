package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/hitoshi/examexperts/internal/model"
	"github.com/lib/pq"
)

var userRowColumns = []string{"id", "email", "password_hash", "name", "role", "attributes", "created_at", "updated_at"}

func newMockRepo(t *testing.T) (*PostgresUserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresUserRepo(db), mock
}

// PostgresUserRepoはUserRepositoryインターフェースを満たすことを検証
func TestPostgresUserRepo_ImplementsInterface(t *testing.T) {
	var _ UserRepository = (*PostgresUserRepo)(nil)
}

func TestPostgresUserRepo_FindByEmail(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2024, 9, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
		WithArgs("tutor@examexperts.com").
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(
			int64(1), "tutor@examexperts.com", "$2a$hash", "Sarah Tutor", "Tutor",
			[]byte(`{"certProgress":65,"sessionsCompleted":23}`), created, created,
		))

	u, err := repo.FindByEmail(context.Background(), "tutor@examexperts.com")
	if err != nil {
		t.Fatalf("FindByEmail() error: %v", err)
	}
	if u == nil {
		t.Fatal("expected user, got nil")
	}
	if u.ID != 1 || u.Name != "Sarah Tutor" || u.Role != "Tutor" {
		t.Errorf("user = %+v", u)
	}
	if u.Attribute(model.AttrCertProgress) != 65 {
		t.Errorf("certProgress = %d, want 65", u.Attribute(model.AttrCertProgress))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestPostgresUserRepo_FindByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	u, err := repo.FindByID(context.Background(), 9)
	if err != nil {
		t.Fatalf("FindByID() error: %v", err)
	}
	if u != nil {
		t.Errorf("FindByID() = %+v, want nil", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestPostgresUserRepo_InsertAssignsCountPlusOne(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("LOCK TABLE users")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs(int64(4), "a@b.com", "hash", "Alice", "Tutor", []byte(`{"certProgress":0,"sessionsCompleted":0}`), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(4, 1))
	mock.ExpectCommit()

	u, err := repo.Insert(context.Background(), &model.User{
		Email:        "a@b.com",
		PasswordHash: "hash",
		Name:         "Alice",
		Role:         "Tutor",
		Attributes:   map[string]int{model.AttrCertProgress: 0, model.AttrSessionsCompleted: 0},
	})
	if err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	if u.ID != 4 {
		t.Errorf("ID = %d, want 4", u.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestPostgresUserRepo_InsertDuplicateEmail(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("LOCK TABLE users")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	_, err := repo.Insert(context.Background(), &model.User{Email: "a@b.com", PasswordHash: "hash"})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("Insert() error = %v, want ErrDuplicateEmail", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestPostgresUserRepo_Update(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2024, 9, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(
			int64(1), "a@b.com", "old-hash", "Old", "Tutor", []byte(`{}`), created, created,
		))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users")).
		WithArgs(int64(1), "New", "old-hash", "Tutor", []byte(`{}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	u, err := repo.Update(context.Background(), 1, func(u *model.User) {
		u.Name = "New"
		u.Email = "ignored@x.com"
	})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if u.Name != "New" || u.Email != "a@b.com" {
		t.Errorf("user = %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestPostgresUserRepo_UpdateNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(userRowColumns))
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), 5, func(u *model.User) {})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("Update() error = %v, want ErrUserNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestPostgresUserRepo_ListAndCount(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users ORDER BY id")).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(int64(1), "a@b.com", "h1", "A", "Tutor", []byte(`{}`), created, created).
			AddRow(int64(2), "c@d.com", "h2", "C", "Admin", []byte(`{"totalUsers":15}`), created, created))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	users, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("len(List()) = %d, want 2", len(users))
	}
	if users[1].Attribute(model.AttrTotalUsers) != 15 {
		t.Errorf("totalUsers = %d, want 15", users[1].Attribute(model.AttrTotalUsers))
	}

	n, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}
