package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hitoshi/examexperts/internal/model"
)

// MemoryUserRepo はプロセス内メモリ上のユーザーリポジトリ。
// プロセス終了時に内容は失われる。全操作を単一のRWMutexで直列化する。
type MemoryUserRepo struct {
	mu      sync.RWMutex
	byID    map[int64]*model.User
	byEmail map[string]int64
	nowFunc func() time.Time
}

// NewMemoryUserRepo はMemoryUserRepoを生成する。
func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{
		byID:    make(map[int64]*model.User),
		byEmail: make(map[string]int64),
		nowFunc: time.Now,
	}
}

// FindByEmail はメールアドレスの完全一致でユーザーを取得する。見つからない場合はnilを返す。
func (r *MemoryUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, nil
	}
	return r.byID[id].Clone(), nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *MemoryUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return u.Clone(), nil
}

// Insert はユーザーを追加する。IDは現在の件数+1で採番する。
func (r *MemoryUserRepo) Insert(ctx context.Context, user *model.User) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return nil, ErrDuplicateEmail
	}

	stored := user.Clone()
	stored.ID = int64(len(r.byID) + 1)
	now := r.nowFunc()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	r.byID[stored.ID] = stored
	r.byEmail[stored.Email] = stored.ID

	return stored.Clone(), nil
}

// Update は指定IDのユーザーにmutateを適用する。
// IDとメールアドレスはmutateで変更されても元の値を維持する。
func (r *MemoryUserRepo) Update(ctx context.Context, id int64, mutate func(u *model.User)) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}

	next := current.Clone()
	mutate(next)
	next.ID = current.ID
	next.Email = current.Email
	next.UpdatedAt = r.nowFunc()

	r.byID[id] = next
	return next.Clone(), nil
}

// List は全ユーザーをID昇順で返す。
func (r *MemoryUserRepo) List(ctx context.Context) ([]*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*model.User, 0, len(r.byID))
	for _, u := range r.byID {
		users = append(users, u.Clone())
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// Count はユーザー数を返す。
func (r *MemoryUserRepo) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID), nil
}

// compile-time interface check
var _ UserRepository = (*MemoryUserRepo)(nil)
