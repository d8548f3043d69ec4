package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/shiftboard/internal/core/shift"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var shiftColumns = []string{"id", "employee_id", "work_date", "start_time", "end_time", "shift_type", "created_at"}

func TestShiftRepository_Create(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewShiftRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery(`INSERT INTO shifts`).
		WithArgs(int64(1), "2024-05-01", "09:00", "17:00", nil, now).
		WillReturnRows(pgxmock.NewRows(shiftColumns).AddRow(int64(10), int64(1), "2024-05-01", "09:00", "17:00", nil, now))

	created, err := repo.Create(context.Background(), &shift.Shift{
		EmployeeID: 1,
		Date:       "2024-05-01",
		StartTime:  "09:00",
		EndTime:    "17:00",
		CreatedAt:  now,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.ID != 10 || created.ShiftType != "" || created.StartTime != "09:00" {
		t.Fatalf("unexpected shift %+v", created)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestShiftRepository_Create_UnknownEmployee(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewShiftRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery(`INSERT INTO shifts`).
		WithArgs(int64(42), "2024-05-01", nil, nil, nil, now).
		WillReturnError(&pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "shifts_employee_id_fkey"})

	_, err = repo.Create(context.Background(), &shift.Shift{EmployeeID: 42, Date: "2024-05-01", CreatedAt: now})
	if !errors.Is(err, shift.ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}
}

func TestShiftRepository_List_WithFilters(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewShiftRepository(mock)
	now := time.Now().UTC()
	employeeID := int64(1)

	mock.ExpectQuery(`FROM shifts WHERE employee_id = \$1 AND work_date = \$2 ORDER BY`).
		WithArgs(int64(1), "2024-05-01").
		WillReturnRows(pgxmock.NewRows(shiftColumns).
			AddRow(int64(10), int64(1), "2024-05-01", "09:00", "17:00", "MORNING", now))

	shifts, err := repo.List(context.Background(), shift.ListFilter{EmployeeID: &employeeID, Date: "2024-05-01"})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(shifts) != 1 || shifts[0].ShiftType != "MORNING" {
		t.Fatalf("unexpected shifts %+v", shifts)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestShiftRepository_List_NoFilter(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewShiftRepository(mock)

	mock.ExpectQuery(`FROM shifts ORDER BY work_date ASC`).
		WillReturnRows(pgxmock.NewRows(shiftColumns))

	shifts, err := repo.List(context.Background(), shift.ListFilter{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if shifts == nil || len(shifts) != 0 {
		t.Fatalf("expected empty slice, got %v", shifts)
	}
}

func TestShiftRepository_Delete_NotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewShiftRepository(mock)

	mock.ExpectExec(`DELETE FROM shifts WHERE id = \$1`).
		WithArgs(int64(5)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	if err := repo.Delete(context.Background(), 5); !errors.Is(err, shift.ErrShiftNotFound) {
		t.Fatalf("expected ErrShiftNotFound, got %v", err)
	}
}
