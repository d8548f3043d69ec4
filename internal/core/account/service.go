package account

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ogurasousui/shiftboard/internal/core/access"
	"github.com/ogurasousui/shiftboard/internal/core/employee"
	"golang.org/x/crypto/bcrypt"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

const maxUsernameLength = 64

// Service はアカウントとロール付与に関するユースケースをまとめます。
type Service struct {
	repo        Repository
	employees   EmployeeFinder
	clock       Clock
	tx          TransactionManager
	cost        int
	newPassword func() string
}

// UseCase はアカウントユースケースの公開インターフェースです。
type UseCase interface {
	AssignRole(ctx context.Context, in AssignRoleInput) (*AssignRoleResult, error)
	Authenticate(ctx context.Context, username, password string) (*User, error)
	ListAccounts(ctx context.Context) ([]*User, error)
	CurrentUser(ctx context.Context, id int64) (*User, error)
}

// NewService は Service を生成します。
func NewService(repo Repository, employees EmployeeFinder, clock Clock, tx TransactionManager) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	return &Service{
		repo:        repo,
		employees:   employees,
		clock:       clock,
		tx:          tx,
		cost:        bcrypt.DefaultCost,
		newPassword: rand.Text,
	}
}

// WithPasswordCost は bcrypt のコストを差し替えます。テストやローカル実行向けです。
func (s *Service) WithPasswordCost(cost int) *Service {
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	s.cost = cost
	return s
}

// AssignRoleInput はロール付与時の入力です。
type AssignRoleInput struct {
	EmployeeID int64
	Role       access.Role
}

// AssignRoleResult はロール付与の結果です。
// TemporaryPassword はアカウントを新規作成した場合のみ設定されます。
type AssignRoleResult struct {
	User              *User
	Created           bool
	TemporaryPassword string
	Message           string
}

// UsernameForEmployee は社員コードからユーザー名を導出します。
func UsernameForEmployee(e *employee.Employee) string {
	return strings.ToLower(strings.TrimSpace(e.EmployeeCode))
}

// AssignRole は社員にロールを付与します。
// 紐づくアカウントが無ければ一時パスワード付きで作成し、あればロールのみ更新します。
func (s *Service) AssignRole(ctx context.Context, in AssignRoleInput) (*AssignRoleResult, error) {
	if in.EmployeeID <= 0 {
		return nil, ErrInvalidEmployeeID
	}
	if !in.Role.Valid() {
		return nil, ErrInvalidRole
	}

	var result *AssignRoleResult
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		emp, err := s.employees.FindByID(txCtx, in.EmployeeID)
		if err != nil {
			if errors.Is(err, employee.ErrEmployeeNotFound) {
				return fmt.Errorf("employee %d: %w", in.EmployeeID, ErrEmployeeNotFound)
			}
			return err
		}

		existing, err := s.repo.FindByEmployeeID(txCtx, in.EmployeeID)
		if err != nil && !errors.Is(err, ErrUserNotFound) {
			return err
		}
		if existing != nil {
			updated, err := s.repo.UpdateRole(txCtx, existing.ID, in.Role, s.clock.Now())
			if err != nil {
				return err
			}
			result = &AssignRoleResult{
				User:    updated,
				Message: fmt.Sprintf("Role of %s updated to %s", updated.Username, in.Role),
			}
			return nil
		}

		username := UsernameForEmployee(emp)
		password := s.newPassword()
		created, err := s.createUser(txCtx, username, password, in.Role, &emp.ID)
		if err != nil {
			return err
		}
		result = &AssignRoleResult{
			User:              created,
			Created:           true,
			TemporaryPassword: password,
			Message: fmt.Sprintf("Created account %s with role %s. Temporary password: %s",
				created.Username, in.Role, password),
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// Authenticate はユーザー名とパスワードを検証します。
// ユーザーが存在しない場合もパスワード不一致と同じエラーを返します。
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	name := strings.ToLower(strings.TrimSpace(username))
	if name == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	var found *User
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		u, err := s.repo.FindByUsername(txCtx, name)
		if err != nil {
			return err
		}
		found = u
		return nil
	}); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(found.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return found, nil
}

// CurrentUser はトークンの利用者を現在の保存内容で解決します。
// ロール変更は発行済みトークンにも即座に反映されます。
func (s *Service) CurrentUser(ctx context.Context, id int64) (*User, error) {
	if id <= 0 {
		return nil, ErrUserNotFound
	}
	var found *User
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		u, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		found = u
		return nil
	}); err != nil {
		return nil, err
	}
	return found, nil
}

// ListAccounts はアカウント一覧を ID 昇順で取得します。
func (s *Service) ListAccounts(ctx context.Context) ([]*User, error) {
	var users []*User
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.List(txCtx)
		if err != nil {
			return err
		}
		users = result
		return nil
	}); err != nil {
		return nil, err
	}
	if users == nil {
		users = []*User{}
	}
	return users, nil
}

// EnsureBootstrapAdmin は社員に紐づかない管理者アカウントを用意します。
// 同名のアカウントが既に存在する場合は何もせず false を返します。
func (s *Service) EnsureBootstrapAdmin(ctx context.Context, username, password string) (bool, error) {
	name := strings.ToLower(strings.TrimSpace(username))
	if name == "" || len(name) > maxUsernameLength {
		return false, ErrInvalidUsername
	}
	if password == "" {
		return false, ErrInvalidPassword
	}

	created := false
	err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.FindByUsername(txCtx, name); err == nil {
			return nil
		} else if !errors.Is(err, ErrUserNotFound) {
			return err
		}
		if _, err := s.createUser(txCtx, name, password, access.RoleAdmin, nil); err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

func (s *Service) createUser(ctx context.Context, username, password string, role access.Role, employeeID *int64) (*User, error) {
	if username == "" || len(username) > maxUsernameLength {
		return nil, ErrInvalidUsername
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := s.clock.Now()
	return s.repo.Create(ctx, &User{
		EmployeeID:   employeeID,
		Username:     username,
		Role:         role,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}
