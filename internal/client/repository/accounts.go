package repository

import (
	"context"
	"net/http"

	"github.com/ogurasousui/shiftboard/internal/client/api"
	"github.com/ogurasousui/shiftboard/internal/core/access"
)

type Accounts struct {
	base
}

type assignRoleRequest struct {
	EmployeeID int64  `json:"employeeId"`
	Role       string `json:"role"`
}

type assignRoleResponse struct {
	Message string `json:"message"`
}

// List はアカウント一覧を返します。エンドポイントが存在しないバックエンドでは空を返します。
func (a *Accounts) List(ctx context.Context) ([]User, error) {
	if err := a.authorize(access.ListAccounts); err != nil {
		return nil, err
	}
	var out []User
	if err := a.transport.Do(ctx, http.MethodGet, "/admin/users", nil, nil, &out); err != nil {
		switch api.HTTPStatus(err) {
		case http.StatusNotFound, http.StatusMethodNotAllowed, http.StatusNotImplemented:
			return []User{}, nil
		}
		return nil, err
	}
	if out == nil {
		out = []User{}
	}
	return out, nil
}

// AssignRole は従業員にロールを割り当て、サーバーの確認メッセージを返します。
func (a *Accounts) AssignRole(ctx context.Context, employeeID int64, role access.Role) (string, error) {
	if err := a.authorize(access.AssignRole); err != nil {
		return "", err
	}
	if err := validID(employeeID, "employeeId"); err != nil {
		return "", err
	}
	if !role.Valid() {
		return "", api.NewError(api.KindValidation, "role must be USER or ADMIN")
	}

	var out assignRoleResponse
	req := assignRoleRequest{EmployeeID: employeeID, Role: role.String()}
	if err := a.transport.Do(ctx, http.MethodPost, "/admin/assign-role", nil, req, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}
