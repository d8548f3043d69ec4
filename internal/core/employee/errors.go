package employee

import "errors"

var (
	ErrInvalidID                 = errors.New("employee: invalid id")
	ErrInvalidName               = errors.New("employee: name is required")
	ErrInvalidDepartment         = errors.New("employee: department is required")
	ErrInvalidEmployeeCode       = errors.New("employee: invalid employee code")
	ErrEmployeeNotFound          = errors.New("employee: not found")
	ErrEmployeeCodeAlreadyExists = errors.New("employee: employee code already exists")
)
