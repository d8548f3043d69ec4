package employee

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
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

const (
	maxNameLength         = 200
	maxEmployeeCodeLength = 32
	maxDeriveAttempts     = 100
)

var employeeCodePattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9_-]*$`)

// Service は社員に関するユースケースをまとめます。
type Service struct {
	repo  Repository
	clock Clock
	tx    TransactionManager
}

// UseCase は社員ユースケースの公開インターフェースです。
type UseCase interface {
	CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error)
	GetEmployee(ctx context.Context, id int64) (*Employee, error)
	ListEmployees(ctx context.Context) ([]*Employee, error)
	DeleteEmployee(ctx context.Context, id int64) error
}

// NewService は Service を生成します。
func NewService(repo Repository, clock Clock, tx TransactionManager) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	return &Service{repo: repo, clock: clock, tx: tx}
}

// CreateEmployeeInput は社員作成時の入力です。EmployeeCode は省略可能です。
type CreateEmployeeInput struct {
	Name         string
	EmployeeCode string
	Department   string
}

// DeriveEmployeeCode は ID から既定の社員コードを生成します。
func DeriveEmployeeCode(id int64) string {
	return fmt.Sprintf("EMP%03d", id)
}

// CreateEmployee は新しい社員を作成します。
// 社員コードが省略された場合は採番した ID から導出します。
func (s *Service) CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error) {
	name, err := normalizeText(in.Name, ErrInvalidName)
	if err != nil {
		return nil, err
	}
	department, err := normalizeText(in.Department, ErrInvalidDepartment)
	if err != nil {
		return nil, err
	}

	var explicitCode string
	if strings.TrimSpace(in.EmployeeCode) != "" {
		explicitCode, err = normalizeEmployeeCode(in.EmployeeCode)
		if err != nil {
			return nil, err
		}
	}

	var created *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		id, code, err := s.reserveIDAndCode(txCtx, explicitCode)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		result, err := s.repo.Create(txCtx, &Employee{
			ID:           id,
			Name:         name,
			EmployeeCode: code,
			Department:   department,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			return err
		}
		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	return created, nil
}

// DeleteEmployee は社員を削除します。紐づくシフトも削除されます。
func (s *Service) DeleteEmployee(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("id: %w", ErrInvalidID)
	}
	return s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return s.repo.Delete(txCtx, id)
	})
}

// GetEmployee は社員を取得します。
func (s *Service) GetEmployee(ctx context.Context, id int64) (*Employee, error) {
	if id <= 0 {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}
	var result *Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// ListEmployees は社員の一覧を ID 昇順で取得します。
func (s *Service) ListEmployees(ctx context.Context) ([]*Employee, error) {
	var employees []*Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.List(txCtx)
		if err != nil {
			return err
		}
		employees = result
		return nil
	}); err != nil {
		return nil, err
	}
	if employees == nil {
		employees = []*Employee{}
	}
	return employees, nil
}

// reserveIDAndCode は ID を採番し、社員コードを確定します。
// 導出したコードが明示指定済みのコードと衝突する場合は次の ID で導出し直します。
func (s *Service) reserveIDAndCode(ctx context.Context, explicitCode string) (int64, string, error) {
	for attempt := 0; attempt < maxDeriveAttempts; attempt++ {
		id, err := s.repo.NextID(ctx)
		if err != nil {
			return 0, "", err
		}
		if explicitCode != "" {
			if err := s.ensureEmployeeCodeNotExists(ctx, explicitCode); err != nil {
				return 0, "", err
			}
			return id, explicitCode, nil
		}

		code := DeriveEmployeeCode(id)
		err = s.ensureEmployeeCodeNotExists(ctx, code)
		if err == nil {
			return id, code, nil
		}
		if !errors.Is(err, ErrEmployeeCodeAlreadyExists) {
			return 0, "", err
		}
	}
	return 0, "", fmt.Errorf("derive employee code after %d attempts: %w", maxDeriveAttempts, ErrEmployeeCodeAlreadyExists)
}

func (s *Service) ensureEmployeeCodeNotExists(ctx context.Context, code string) error {
	emp, err := s.repo.FindByCode(ctx, code)
	if err != nil && !errors.Is(err, ErrEmployeeNotFound) {
		return err
	}
	if emp != nil {
		return ErrEmployeeCodeAlreadyExists
	}
	return nil
}

func normalizeText(raw string, invalid error) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || len(trimmed) > maxNameLength {
		return "", invalid
	}
	return trimmed, nil
}

func normalizeEmployeeCode(raw string) (string, error) {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	if upper == "" || len(upper) > maxEmployeeCodeLength {
		return "", ErrInvalidEmployeeCode
	}
	if !employeeCodePattern.MatchString(upper) {
		return "", ErrInvalidEmployeeCode
	}
	return upper, nil
}
