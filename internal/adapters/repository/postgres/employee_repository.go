package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/shiftboard/internal/core/employee"
	pgdb "github.com/ogurasousui/shiftboard/internal/platform/db/postgres"
)

// EmployeeRepository は PostgreSQL を利用した社員永続化の実装です。
type EmployeeRepository struct {
	pool pgdb.Queryer
}

// NewEmployeeRepository は EmployeeRepository を生成します。
func NewEmployeeRepository(pool pgdb.Queryer) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

// NextID は employees.id のシーケンスから次の値を予約します。
func (r *EmployeeRepository) NextID(ctx context.Context) (int64, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	var id int64
	if err := exec.QueryRow(ctx, `SELECT nextval(pg_get_serial_sequence('employees', 'id'))`).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// Create は予約済み ID で社員を登録します。
func (r *EmployeeRepository) Create(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO employees (id, name, employee_code, department, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, name, employee_code, department, created_at, updated_at
    `,
		e.ID,
		e.Name,
		e.EmployeeCode,
		e.Department,
		e.CreatedAt,
		e.UpdatedAt,
	)

	created, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return created, nil
}

// Delete は社員を削除します。シフトは外部キーの ON DELETE CASCADE で削除されます。
func (r *EmployeeRepository) Delete(ctx context.Context, id int64) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return translateEmployeePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrEmployeeNotFound
	}
	return nil
}

// FindByID は ID で社員を取得します。
func (r *EmployeeRepository) FindByID(ctx context.Context, id int64) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT id, name, employee_code, department, created_at, updated_at
          FROM employees
         WHERE id = $1
    `, id)

	found, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return found, nil
}

// FindByCode は社員コードで社員を取得します。
func (r *EmployeeRepository) FindByCode(ctx context.Context, code string) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT id, name, employee_code, department, created_at, updated_at
          FROM employees
         WHERE employee_code = $1
    `, code)

	found, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return found, nil
}

// List は社員の一覧を ID 昇順で取得します。
func (r *EmployeeRepository) List(ctx context.Context) ([]*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT id, name, employee_code, department, created_at, updated_at
          FROM employees
         ORDER BY id ASC
    `)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	defer rows.Close()

	employees := make([]*employee.Employee, 0)
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, translateEmployeePgError(err)
		}
		employees = append(employees, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, translateEmployeePgError(err)
	}
	return employees, nil
}

func scanEmployee(row pgx.Row) (*employee.Employee, error) {
	var (
		e         employee.Employee
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&e.ID, &e.Name, &e.EmployeeCode, &e.Department, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, employee.ErrEmployeeNotFound
		}
		return nil, err
	}
	e.CreatedAt = createdAt.UTC()
	e.UpdatedAt = updatedAt.UTC()
	return &e, nil
}

func translateEmployeePgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return employee.ErrEmployeeNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return employee.ErrEmployeeCodeAlreadyExists
		case checkViolationCode:
			switch pgErr.ConstraintName {
			case "employees_name_check":
				return employee.ErrInvalidName
			case "employees_department_check":
				return employee.ErrInvalidDepartment
			}
		}
	}

	return err
}
