// Package memory はプロセス内で完結する永続化実装です。
// ローカル実行とエンドツーエンドテストで PostgreSQL の代わりに使います。
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ogurasousui/shiftboard/internal/core/access"
	"github.com/ogurasousui/shiftboard/internal/core/account"
	"github.com/ogurasousui/shiftboard/internal/core/employee"
	"github.com/ogurasousui/shiftboard/internal/core/shift"
)

// ErrIDConflict は採番済みの ID で社員を登録しようとした場合に返却されます。
var ErrIDConflict = errors.New("memory: employee id already in use")

// Store は社員・シフト・アカウントを 1 つのロックで保持します。
// 社員削除時のシフト削除とアカウントの紐づけ解除は外部キーと同じ振る舞いです。
type Store struct {
	mu sync.RWMutex

	employees map[int64]employee.Employee
	shifts    map[int64]shift.Shift
	users     map[int64]account.User

	employeeSeq int64
	shiftSeq    int64
	userSeq     int64
}

// NewStore は空の Store を生成します。
func NewStore() *Store {
	return &Store{
		employees: make(map[int64]employee.Employee),
		shifts:    make(map[int64]shift.Shift),
		users:     make(map[int64]account.User),
	}
}

// Employees は employee.Repository を返します。
func (s *Store) Employees() *EmployeeRepository { return &EmployeeRepository{s: s} }

// Shifts は shift.Repository を返します。
func (s *Store) Shifts() *ShiftRepository { return &ShiftRepository{s: s} }

// Accounts は account.Repository を返します。
func (s *Store) Accounts() *AccountRepository { return &AccountRepository{s: s} }

// Ping は常に成功します。/readyz の疎通確認用です。
func (s *Store) Ping(context.Context) error { return nil }

// EmployeeRepository はメモリ上の社員リポジトリです。
type EmployeeRepository struct{ s *Store }

func (r *EmployeeRepository) NextID(context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.employeeSeq++
	return r.s.employeeSeq, nil
}

func (r *EmployeeRepository) Create(_ context.Context, e *employee.Employee) (*employee.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.employees[e.ID]; exists {
		return nil, fmt.Errorf("employee %d: %w", e.ID, ErrIDConflict)
	}
	for _, existing := range r.s.employees {
		if existing.EmployeeCode == e.EmployeeCode {
			return nil, employee.ErrEmployeeCodeAlreadyExists
		}
	}
	if e.ID <= 0 {
		r.s.employeeSeq++
		e.ID = r.s.employeeSeq
	} else if e.ID > r.s.employeeSeq {
		r.s.employeeSeq = e.ID
	}
	r.s.employees[e.ID] = *e
	out := *e
	return &out, nil
}

func (r *EmployeeRepository) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.employees[id]; !ok {
		return employee.ErrEmployeeNotFound
	}
	delete(r.s.employees, id)
	for sid, sh := range r.s.shifts {
		if sh.EmployeeID == id {
			delete(r.s.shifts, sid)
		}
	}
	for uid, u := range r.s.users {
		if u.EmployeeID != nil && *u.EmployeeID == id {
			u.EmployeeID = nil
			r.s.users[uid] = u
		}
	}
	return nil
}

func (r *EmployeeRepository) FindByID(_ context.Context, id int64) (*employee.Employee, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.employees[id]
	if !ok {
		return nil, employee.ErrEmployeeNotFound
	}
	return &e, nil
}

func (r *EmployeeRepository) FindByCode(_ context.Context, code string) (*employee.Employee, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, e := range r.s.employees {
		if e.EmployeeCode == code {
			out := e
			return &out, nil
		}
	}
	return nil, employee.ErrEmployeeNotFound
}

func (r *EmployeeRepository) List(context.Context) ([]*employee.Employee, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*employee.Employee, 0, len(r.s.employees))
	for _, e := range r.s.employees {
		e := e
		out = append(out, &e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ShiftRepository はメモリ上のシフトリポジトリです。
type ShiftRepository struct{ s *Store }

func (r *ShiftRepository) Create(_ context.Context, sh *shift.Shift) (*shift.Shift, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.employees[sh.EmployeeID]; !ok {
		return nil, shift.ErrEmployeeNotFound
	}
	r.s.shiftSeq++
	stored := *sh
	stored.ID = r.s.shiftSeq
	r.s.shifts[stored.ID] = stored
	return &stored, nil
}

func (r *ShiftRepository) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.shifts[id]; !ok {
		return shift.ErrShiftNotFound
	}
	delete(r.s.shifts, id)
	return nil
}

func (r *ShiftRepository) List(_ context.Context, filter shift.ListFilter) ([]*shift.Shift, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*shift.Shift, 0)
	for _, sh := range r.s.shifts {
		if filter.EmployeeID != nil && sh.EmployeeID != *filter.EmployeeID {
			continue
		}
		if filter.Date != "" && sh.Date != filter.Date {
			continue
		}
		sh := sh
		out = append(out, &sh)
	}
	// PostgreSQL 実装と同じく日付・開始時刻 (未設定は末尾)・ID の順。
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.StartTime != b.StartTime {
			if a.StartTime == "" || b.StartTime == "" {
				return b.StartTime == ""
			}
			return a.StartTime < b.StartTime
		}
		return a.ID < b.ID
	})
	return out, nil
}

// AccountRepository はメモリ上のアカウントリポジトリです。
type AccountRepository struct{ s *Store }

func (r *AccountRepository) Create(_ context.Context, u *account.User) (*account.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if u.EmployeeID != nil {
		if _, ok := r.s.employees[*u.EmployeeID]; !ok {
			return nil, account.ErrEmployeeNotFound
		}
	}
	for _, existing := range r.s.users {
		if existing.Username == u.Username {
			return nil, account.ErrUsernameAlreadyExists
		}
		if u.EmployeeID != nil && existing.EmployeeID != nil && *existing.EmployeeID == *u.EmployeeID {
			return nil, account.ErrUsernameAlreadyExists
		}
	}

	r.s.userSeq++
	stored := *u
	stored.ID = r.s.userSeq
	if u.EmployeeID != nil {
		id := *u.EmployeeID
		stored.EmployeeID = &id
	}
	r.s.users[stored.ID] = stored
	return cloneUser(stored), nil
}

func (r *AccountRepository) UpdateRole(_ context.Context, id int64, role access.Role, updatedAt time.Time) (*account.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, account.ErrUserNotFound
	}
	u.Role = role
	u.UpdatedAt = updatedAt
	r.s.users[id] = u
	return cloneUser(u), nil
}

func (r *AccountRepository) FindByID(_ context.Context, id int64) (*account.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, account.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *AccountRepository) FindByEmployeeID(_ context.Context, employeeID int64) (*account.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.EmployeeID != nil && *u.EmployeeID == employeeID {
			return cloneUser(u), nil
		}
	}
	return nil, account.ErrUserNotFound
}

func (r *AccountRepository) FindByUsername(_ context.Context, username string) (*account.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, account.ErrUserNotFound
}

func (r *AccountRepository) List(context.Context) ([]*account.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*account.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func cloneUser(u account.User) *account.User {
	if u.EmployeeID != nil {
		id := *u.EmployeeID
		u.EmployeeID = &id
	}
	return &u
}

var (
	_ employee.Repository = (*EmployeeRepository)(nil)
	_ shift.Repository    = (*ShiftRepository)(nil)
	_ account.Repository  = (*AccountRepository)(nil)
)
