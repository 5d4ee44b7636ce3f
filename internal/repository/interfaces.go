// Package repository はユーザーデータの永続化インターフェースと実装を定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/examexperts/internal/model"
)

var (
	// ErrDuplicateEmail は同じメールアドレスのユーザーが既に存在する場合に返される。
	ErrDuplicateEmail = errors.New("email already exists")
	// ErrUserNotFound は更新対象のユーザーが存在しない場合に返される。
	ErrUserNotFound = errors.New("user not found")
)

// UserRepository はユーザーデータの永続化インターフェース（クレデンシャルストア）。
// 実装は呼び出し側に可変な内部参照を渡さず、常にコピーを返す。
type UserRepository interface {
	// FindByEmail はメールアドレスの完全一致（大文字小文字を区別）でユーザーを取得する。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// Insert はユーザーを追加し、採番後のレコードを返す。
	// IDは現在の件数+1で採番する。メールアドレスが重複する場合はErrDuplicateEmailを返す。
	Insert(ctx context.Context, user *model.User) (*model.User, error)

	// Update は指定IDのユーザーにmutateを適用して保存し、更新後のレコードを返す。
	// 存在しない場合はErrUserNotFoundを返す。
	Update(ctx context.Context, id int64, mutate func(u *model.User)) (*model.User, error)

	// List は全ユーザーをID昇順で返す。
	List(ctx context.Context) ([]*model.User, error)

	// Count はユーザー数を返す。
	Count(ctx context.Context) (int, error)
}
