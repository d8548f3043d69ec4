package shift

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ogurasousui/shiftboard/internal/core/employee"
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
	// DateLayout はシフト日付の書式です。
	DateLayout = "2006-01-02"
	// TimeLayout は開始・終了時刻の書式です。
	TimeLayout = "15:04"

	maxShiftTypeLength = 50
)

// Service はシフトに関するユースケースをまとめます。
type Service struct {
	repo      Repository
	employees EmployeeFinder
	clock     Clock
	tx        TransactionManager
}

// UseCase はシフトユースケースの公開インターフェースです。
type UseCase interface {
	CreateShift(ctx context.Context, in CreateShiftInput) (*Shift, error)
	ListShifts(ctx context.Context, filter ListFilter) ([]*Shift, error)
	DeleteShift(ctx context.Context, id int64) error
}

// NewService は Service を生成します。
func NewService(repo Repository, employees EmployeeFinder, clock Clock, tx TransactionManager) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	return &Service{repo: repo, employees: employees, clock: clock, tx: tx}
}

// CreateShiftInput はシフト作成時の入力です。
type CreateShiftInput struct {
	EmployeeID int64
	Date       string
	StartTime  string
	EndTime    string
	ShiftType  string
}

// CreateShift はシフトを作成します。
// 開始・終了の前後関係や同日の重複は検査しません。
func (s *Service) CreateShift(ctx context.Context, in CreateShiftInput) (*Shift, error) {
	if in.EmployeeID <= 0 {
		return nil, ErrInvalidEmployeeID
	}
	date, err := NormalizeDate(in.Date)
	if err != nil {
		return nil, err
	}
	start, err := normalizeTime(in.StartTime)
	if err != nil {
		return nil, fmt.Errorf("start time: %w", err)
	}
	end, err := normalizeTime(in.EndTime)
	if err != nil {
		return nil, fmt.Errorf("end time: %w", err)
	}
	shiftType := strings.ToUpper(strings.TrimSpace(in.ShiftType))
	if len(shiftType) > maxShiftTypeLength {
		return nil, ErrInvalidShiftType
	}

	var created *Shift
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := s.ensureEmployeeExists(txCtx, in.EmployeeID); err != nil {
			return err
		}
		result, err := s.repo.Create(txCtx, &Shift{
			EmployeeID: in.EmployeeID,
			Date:       date,
			StartTime:  start,
			EndTime:    end,
			ShiftType:  shiftType,
			CreatedAt:  s.clock.Now(),
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

// ListShifts はシフト一覧を取得します。条件が無い場合は全件を返します。
func (s *Service) ListShifts(ctx context.Context, filter ListFilter) ([]*Shift, error) {
	if filter.EmployeeID != nil && *filter.EmployeeID <= 0 {
		return nil, ErrInvalidEmployeeID
	}
	if strings.TrimSpace(filter.Date) != "" {
		date, err := NormalizeDate(filter.Date)
		if err != nil {
			return nil, err
		}
		filter.Date = date
	} else {
		filter.Date = ""
	}

	var shifts []*Shift
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.List(txCtx, filter)
		if err != nil {
			return err
		}
		shifts = result
		return nil
	}); err != nil {
		return nil, err
	}
	if shifts == nil {
		shifts = []*Shift{}
	}
	return shifts, nil
}

// DeleteShift はシフトを削除します。
func (s *Service) DeleteShift(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("id: %w", ErrInvalidID)
	}
	return s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return s.repo.Delete(txCtx, id)
	})
}

func (s *Service) ensureEmployeeExists(ctx context.Context, id int64) error {
	if s.employees == nil {
		return nil
	}
	if _, err := s.employees.FindByID(ctx, id); err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			return fmt.Errorf("employee %d: %w", id, ErrEmployeeNotFound)
		}
		return err
	}
	return nil
}

// NormalizeDate は YYYY-MM-DD 形式の日付を検証して正規化します。
func NormalizeDate(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidDate
	}
	parsed, err := time.Parse(DateLayout, trimmed)
	if err != nil {
		return "", ErrInvalidDate
	}
	return parsed.Format(DateLayout), nil
}

func normalizeTime(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil
	}
	// "09:00:00" 形式も受け付ける。
	if len(trimmed) == len("15:04:05") {
		if parsed, err := time.Parse("15:04:05", trimmed); err == nil {
			return parsed.Format(TimeLayout), nil
		}
	}
	parsed, err := time.Parse(TimeLayout, trimmed)
	if err != nil {
		return "", ErrInvalidTime
	}
	return parsed.Format(TimeLayout), nil
}
