package employee

import "context"

// Repository は社員永続化の抽象です。
type Repository interface {
	// NextID は次に採番される社員 ID を予約します。
	NextID(ctx context.Context) (int64, error)
	Create(ctx context.Context, employee *Employee) (*Employee, error)
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*Employee, error)
	FindByCode(ctx context.Context, employeeCode string) (*Employee, error)
	List(ctx context.Context) ([]*Employee, error)
}
