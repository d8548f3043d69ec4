package repository

import (
	"context"
	"net/http"
	"strings"

	"github.com/ogurasousui/shiftboard/internal/client/api"
	"github.com/ogurasousui/shiftboard/internal/core/access"
)

type Employees struct {
	base
}

// List はサーバーが定める順序で従業員一覧を返します。
func (e *Employees) List(ctx context.Context) ([]Employee, error) {
	var out []Employee
	if err := e.transport.Do(ctx, http.MethodGet, "/employees", nil, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Employee{}
	}
	return out, nil
}

// Create は従業員を登録します。employeeCode を省略するとサーバーが採番します。
func (e *Employees) Create(ctx context.Context, in CreateEmployeeInput) (*Employee, error) {
	if err := e.authorize(access.CreateEmployee); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Department = strings.TrimSpace(in.Department)
	in.EmployeeCode = strings.TrimSpace(in.EmployeeCode)
	if in.Name == "" {
		return nil, api.NewError(api.KindValidation, "name is required")
	}
	if in.Department == "" {
		return nil, api.NewError(api.KindValidation, "department is required")
	}

	var out Employee
	if err := e.transport.Do(ctx, http.MethodPost, "/employees", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *Employees) Delete(ctx context.Context, id int64) error {
	if err := e.authorize(access.DeleteEmployee); err != nil {
		return err
	}
	if err := validID(id, "id"); err != nil {
		return err
	}
	return e.transport.Do(ctx, http.MethodDelete, idPath("/employees", id), nil, nil, nil)
}
