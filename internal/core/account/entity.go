package account

import (
	"time"

	"github.com/ogurasousui/shiftboard/internal/core/access"
)

// User はログイン可能なアカウントです。
// EmployeeID は社員削除後やブートストラップ管理者では nil になります。
type User struct {
	ID           int64
	EmployeeID   *int64
	Username     string
	Role         access.Role
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
