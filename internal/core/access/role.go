package access

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRole は USER / ADMIN 以外のロール文字列を受け取った場合に返却されます。
var ErrInvalidRole = errors.New("access: invalid role")

// Role は利用者の権限レベルを表す閉じた列挙型です。
// ゼロ値 RoleNone は未認証を意味します。
type Role uint8

const (
	RoleNone Role = iota
	RoleUser
	RoleAdmin
)

// ParseRole は "USER" / "ADMIN" をロールに変換します。大文字小文字は区別しません。
func ParseRole(raw string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "USER":
		return RoleUser, nil
	case "ADMIN":
		return RoleAdmin, nil
	default:
		return RoleNone, fmt.Errorf("%w: %q", ErrInvalidRole, raw)
	}
}

// String はワイヤ表現を返します。RoleNone は空文字です。
func (r Role) String() string {
	switch r {
	case RoleUser:
		return "USER"
	case RoleAdmin:
		return "ADMIN"
	default:
		return ""
	}
}

// Valid は r が USER または ADMIN であるかを返します。
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// MarshalText は encoding.TextMarshaler の実装です。
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, ErrInvalidRole
	}
	return []byte(r.String()), nil
}

// UnmarshalText は encoding.TextUnmarshaler の実装です。
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
