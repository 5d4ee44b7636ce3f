package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxBytes はbcryptが扱えるパスワードの最大バイト長。
const MaxBytes = 72

// ErrTooLong はパスワードがMaxBytesを超える場合に返される。
var ErrTooLong = errors.New("password exceeds bcrypt input limit")

// Hasher はbcryptによるパスワードのハッシュ化と照合を行う。
type Hasher struct {
	cost int
}

// NewHasher はHasherを生成する。costが範囲外の場合はbcrypt.DefaultCostを使用する。
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash はソルト付きのbcryptハッシュを返す。
func (h *Hasher) Hash(pw string) (string, error) {
	if len(pw) > MaxBytes {
		return "", ErrTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(pw), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(b), nil
}

// Compare はパスワードがハッシュと一致するかを返す。
// ハッシュが空または不正な形式の場合はfalseを返す。
func (h *Hasher) Compare(hash, pw string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}
