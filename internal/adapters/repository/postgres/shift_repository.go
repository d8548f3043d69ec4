package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/shiftboard/internal/core/shift"
	pgdb "github.com/ogurasousui/shiftboard/internal/platform/db/postgres"
)

const shiftSelectColumns = `id, employee_id, to_char(work_date, 'YYYY-MM-DD'), to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), shift_type, created_at`

// ShiftRepository は PostgreSQL を利用したシフト永続化の実装です。
type ShiftRepository struct {
	pool pgdb.Queryer
}

// NewShiftRepository は ShiftRepository を生成します。
func NewShiftRepository(pool pgdb.Queryer) *ShiftRepository {
	return &ShiftRepository{pool: pool}
}

// Create はシフトを登録します。
func (r *ShiftRepository) Create(ctx context.Context, s *shift.Shift) (*shift.Shift, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO shifts (employee_id, work_date, start_time, end_time, shift_type, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING `+shiftSelectColumns,
		s.EmployeeID,
		s.Date,
		nullableString(s.StartTime),
		nullableString(s.EndTime),
		nullableString(s.ShiftType),
		s.CreatedAt,
	)

	created, err := scanShift(row)
	if err != nil {
		return nil, translateShiftPgError(err)
	}
	return created, nil
}

// Delete はシフトを削除します。
func (r *ShiftRepository) Delete(ctx context.Context, id int64) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM shifts WHERE id = $1`, id)
	if err != nil {
		return translateShiftPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return shift.ErrShiftNotFound
	}
	return nil
}

// List は条件に一致するシフトを日付・開始時刻・ID の昇順で取得します。
func (r *ShiftRepository) List(ctx context.Context, filter shift.ListFilter) ([]*shift.Shift, error) {
	args := make([]any, 0, 2)
	conditions := make([]string, 0, 2)

	if filter.EmployeeID != nil {
		args = append(args, *filter.EmployeeID)
		conditions = append(conditions, "employee_id = $"+strconv.Itoa(len(args)))
	}
	if filter.Date != "" {
		args = append(args, filter.Date)
		conditions = append(conditions, "work_date = $"+strconv.Itoa(len(args)))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := `SELECT ` + shiftSelectColumns + ` FROM shifts` + whereClause +
		` ORDER BY work_date ASC, start_time ASC NULLS LAST, id ASC`

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, translateShiftPgError(err)
	}
	defer rows.Close()

	shifts := make([]*shift.Shift, 0)
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, translateShiftPgError(err)
		}
		shifts = append(shifts, s)
	}
	if err := rows.Err(); err != nil {
		return nil, translateShiftPgError(err)
	}
	return shifts, nil
}

func scanShift(row pgx.Row) (*shift.Shift, error) {
	var (
		s         shift.Shift
		startTime sql.NullString
		endTime   sql.NullString
		shiftType sql.NullString
		createdAt time.Time
	)
	if err := row.Scan(&s.ID, &s.EmployeeID, &s.Date, &startTime, &endTime, &shiftType, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shift.ErrShiftNotFound
		}
		return nil, err
	}
	s.StartTime = startTime.String
	s.EndTime = endTime.String
	s.ShiftType = shiftType.String
	s.CreatedAt = createdAt.UTC()
	return &s, nil
}

func translateShiftPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return shift.ErrShiftNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case foreignKeyViolationCode:
			if pgErr.ConstraintName == "shifts_employee_id_fkey" {
				return shift.ErrEmployeeNotFound
			}
		case invalidDatetimeFormatCode, datetimeFieldOverflowCode:
			return shift.ErrInvalidDate
		}
	}
	return err
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
