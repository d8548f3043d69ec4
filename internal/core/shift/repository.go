package shift

import (
	"context"

	"github.com/ogurasousui/shiftboard/internal/core/employee"
)

// Repository はシフト永続化の抽象です。
type Repository interface {
	Create(ctx context.Context, shift *Shift) (*Shift, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ListFilter) ([]*Shift, error)
}

// EmployeeFinder はシフト作成時に参照先社員の存在を確認するための抽象です。
type EmployeeFinder interface {
	FindByID(ctx context.Context, id int64) (*employee.Employee, error)
}
