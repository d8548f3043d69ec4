package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/shiftboard/internal/core/access"
	"github.com/ogurasousui/shiftboard/internal/core/account"
	pgdb "github.com/ogurasousui/shiftboard/internal/platform/db/postgres"
)

const userSelectColumns = `id, employee_id, username, role, password_hash, created_at, updated_at`

// AccountRepository は PostgreSQL を利用したアカウント永続化の実装です。
type AccountRepository struct {
	pool pgdb.Queryer
}

// NewAccountRepository は AccountRepository を生成します。
func NewAccountRepository(pool pgdb.Queryer) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Create はアカウントを登録します。
func (r *AccountRepository) Create(ctx context.Context, u *account.User) (*account.User, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO users (employee_id, username, role, password_hash, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING `+userSelectColumns,
		nullableInt64(u.EmployeeID),
		u.Username,
		u.Role.String(),
		u.PasswordHash,
		u.CreatedAt,
		u.UpdatedAt,
	)

	created, err := scanUser(row)
	if err != nil {
		return nil, translateAccountPgError(err)
	}
	return created, nil
}

// UpdateRole はロールのみを更新します。
func (r *AccountRepository) UpdateRole(ctx context.Context, id int64, role access.Role, updatedAt time.Time) (*account.User, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE users
           SET role = $1,
               updated_at = $2
         WHERE id = $3
        RETURNING `+userSelectColumns,
		role.String(),
		updatedAt,
		id,
	)

	updated, err := scanUser(row)
	if err != nil {
		return nil, translateAccountPgError(err)
	}
	return updated, nil
}

// FindByID は ID でアカウントを取得します。
func (r *AccountRepository) FindByID(ctx context.Context, id int64) (*account.User, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `SELECT `+userSelectColumns+` FROM users WHERE id = $1`, id)

	found, err := scanUser(row)
	if err != nil {
		return nil, translateAccountPgError(err)
	}
	return found, nil
}

// FindByEmployeeID は社員に紐づくアカウントを取得します。
func (r *AccountRepository) FindByEmployeeID(ctx context.Context, employeeID int64) (*account.User, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `SELECT `+userSelectColumns+` FROM users WHERE employee_id = $1`, employeeID)

	found, err := scanUser(row)
	if err != nil {
		return nil, translateAccountPgError(err)
	}
	return found, nil
}

// FindByUsername はユーザー名でアカウントを取得します。
func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*account.User, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `SELECT `+userSelectColumns+` FROM users WHERE username = $1`, username)

	found, err := scanUser(row)
	if err != nil {
		return nil, translateAccountPgError(err)
	}
	return found, nil
}

// List はアカウントの一覧を ID 昇順で取得します。
func (r *AccountRepository) List(ctx context.Context) ([]*account.User, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `SELECT `+userSelectColumns+` FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, translateAccountPgError(err)
	}
	defer rows.Close()

	users := make([]*account.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, translateAccountPgError(err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, translateAccountPgError(err)
	}
	return users, nil
}

func scanUser(row pgx.Row) (*account.User, error) {
	var (
		u          account.User
		employeeID sql.NullInt64
		role       string
		createdAt  time.Time
		updatedAt  time.Time
	)
	if err := row.Scan(&u.ID, &employeeID, &u.Username, &role, &u.PasswordHash, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrUserNotFound
		}
		return nil, err
	}

	parsed, err := access.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", u.ID, err)
	}
	u.Role = parsed
	if employeeID.Valid {
		id := employeeID.Int64
		u.EmployeeID = &id
	}
	u.CreatedAt = createdAt.UTC()
	u.UpdatedAt = updatedAt.UTC()
	return &u, nil
}

func translateAccountPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return account.ErrUserNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			// users_employee_id_key も同時付与の競合として重複扱いにする。
			return account.ErrUsernameAlreadyExists
		case foreignKeyViolationCode:
			return account.ErrEmployeeNotFound
		case checkViolationCode:
			return account.ErrInvalidRole
		}
	}
	return err
}

func nullableInt64(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}
