package repository

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ogurasousui/shiftboard/internal/client/api"
	"github.com/ogurasousui/shiftboard/internal/core/access"
)

const dateLayout = "2006-01-02"

// Transport は REST 呼び出しの抽象です。*api.Client が実装します。
type Transport interface {
	Do(ctx context.Context, method, path string, query url.Values, body, out any) error
}

// RoleSource は現在のロールを返します。*session.Store が実装します。
type RoleSource interface {
	Role() access.Role
}

// Repository は従業員・シフト・アカウントの操作をまとめたファサードです。
// キャッシュを持たず、すべての呼び出しでバックエンドに問い合わせます。
type Repository struct {
	Employees *Employees
	Shifts    *Shifts
	Accounts  *Accounts
}

// New は transport と session を共有する Repository を返します。
func New(transport Transport, session RoleSource) *Repository {
	b := base{transport: transport, session: session}
	return &Repository{
		Employees: &Employees{base: b},
		Shifts:    &Shifts{base: b},
		Accounts:  &Accounts{base: b},
	}
}

type base struct {
	transport Transport
	session   RoleSource
}

// authorize は変更操作の前にローカルで権限を確認します。最終判断はバックエンドが行います。
func (b base) authorize(action access.Action) error {
	role := access.RoleNone
	if b.session != nil {
		role = b.session.Role()
	}
	if role == access.RoleNone {
		return api.NewError(api.KindAuth, "login required")
	}
	if !access.Permits(role, action) {
		return api.NewError(api.KindAuthorization, "role "+role.String()+" may not perform "+action.String())
	}
	return nil
}

func validID(id int64, field string) error {
	if id <= 0 {
		return api.NewError(api.KindValidation, field+" must be a positive integer")
	}
	return nil
}

// ParseEmployeeID はフォーム入力の従業員 ID を解釈します。空や数値以外は VALIDATION_ERROR です。
func ParseEmployeeID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, api.NewError(api.KindValidation, "employee id is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, api.NewError(api.KindValidation, "employee id must be a positive integer")
	}
	return id, nil
}

func validDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", api.NewError(api.KindValidation, "date is required")
	}
	if _, err := time.Parse(dateLayout, raw); err != nil {
		return "", api.NewError(api.KindValidation, "date must be YYYY-MM-DD")
	}
	return raw, nil
}

func idPath(prefix string, id int64) string {
	return prefix + "/" + strconv.FormatInt(id, 10)
}
