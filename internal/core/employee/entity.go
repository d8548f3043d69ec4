package employee

import "time"

// Employee は社員エンティティです。
type Employee struct {
	ID           int64
	Name         string
	EmployeeCode string
	Department   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
