package account

import (
	"context"
	"time"

	"github.com/ogurasousui/shiftboard/internal/core/access"
	"github.com/ogurasousui/shiftboard/internal/core/employee"
)

// Repository はアカウント永続化の抽象です。
type Repository interface {
	Create(ctx context.Context, user *User) (*User, error)
	UpdateRole(ctx context.Context, id int64, role access.Role, updatedAt time.Time) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByEmployeeID(ctx context.Context, employeeID int64) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]*User, error)
}

// EmployeeFinder はロール付与時に社員を解決するための抽象です。
type EmployeeFinder interface {
	FindByID(ctx context.Context, id int64) (*employee.Employee, error)
}
