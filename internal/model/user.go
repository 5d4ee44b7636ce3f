// Package model はドメインモデルを定義する。
package model

import "time"

// ロール名。ロールは閉じた列挙ではなく、認可判定にのみ使用する文字列として扱う。
const (
	RoleTutor   = "Tutor"
	RoleManager = "Manager"
	RoleAdmin   = "Admin"
)

// DefaultRole は登録時にロールが省略された場合のロール。
const DefaultRole = RoleTutor

// ロール固有の補助属性キー。値の意味はクライアント側の表示にのみ関わる。
const (
	AttrCertProgress      = "certProgress"
	AttrSessionsCompleted = "sessionsCompleted"
	AttrTeamSize          = "teamSize"
	AttrAvgCompliance     = "avgCompliance"
	AttrTotalUsers        = "totalUsers"
)

// User はサービス利用ユーザーのアカウントレコードを表す。
// パスワードは平文では保持せず、bcryptハッシュのみを保持する。
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Name         string
	Role         string
	Attributes   map[string]int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Clone はUserのディープコピーを返す。
// ストア外に可変な参照を渡さないために使用する。
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Attributes != nil {
		c.Attributes = make(map[string]int, len(u.Attributes))
		for k, v := range u.Attributes {
			c.Attributes[k] = v
		}
	}
	return &c
}

// Attribute は補助属性の値を返す。未設定の場合は0を返す。
func (u *User) Attribute(key string) int {
	if u.Attributes == nil {
		return 0
	}
	return u.Attributes[key]
}

// Public はパスワードハッシュを含まない公開ビューを返す。
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// PublicUser はAPIレスポンスに含めてよいユーザー情報。
type PublicUser struct {
	ID        int64
	Email     string
	Name      string
	Role      string
	CreatedAt time.Time
}
