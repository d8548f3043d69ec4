package account

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ogurasousui/shiftboard/internal/core/access"
	"github.com/ogurasousui/shiftboard/internal/core/employee"
	"golang.org/x/crypto/bcrypt"
)

type fakeUserRepo struct {
	users    []*User
	sequence int64
}

func (r *fakeUserRepo) Create(_ context.Context, u *User) (*User, error) {
	for _, existing := range r.users {
		if existing.Username == u.Username {
			return nil, ErrUsernameAlreadyExists
		}
	}
	r.sequence++
	clone := *u
	clone.ID = r.sequence
	r.users = append(r.users, &clone)
	out := clone
	return &out, nil
}

func (r *fakeUserRepo) UpdateRole(_ context.Context, id int64, role access.Role, updatedAt time.Time) (*User, error) {
	for _, u := range r.users {
		if u.ID == id {
			u.Role = role
			u.UpdatedAt = updatedAt
			out := *u
			return &out, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *fakeUserRepo) FindByID(_ context.Context, id int64) (*User, error) {
	for _, u := range r.users {
		if u.ID == id {
			out := *u
			return &out, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *fakeUserRepo) FindByEmployeeID(_ context.Context, employeeID int64) (*User, error) {
	for _, u := range r.users {
		if u.EmployeeID != nil && *u.EmployeeID == employeeID {
			out := *u
			return &out, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *fakeUserRepo) FindByUsername(_ context.Context, username string) (*User, error) {
	for _, u := range r.users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *fakeUserRepo) List(_ context.Context) ([]*User, error) {
	out := make([]*User, 0, len(r.users))
	for _, u := range r.users {
		clone := *u
		out = append(out, &clone)
	}
	return out, nil
}

type fakeEmployees map[int64]*employee.Employee

func (f fakeEmployees) FindByID(_ context.Context, id int64) (*employee.Employee, error) {
	if e, ok := f[id]; ok {
		return e, nil
	}
	return nil, employee.ErrEmployeeNotFound
}

func newTestService(repo Repository) *Service {
	svc := NewService(repo, fakeEmployees{
		1: {ID: 1, EmployeeCode: "EMP001", Name: "Ana Lee", Department: "Ops"},
		2: {ID: 2, EmployeeCode: "EMP002", Name: "Jane Smith", Department: "Operations"},
	}, nil, nil).WithPasswordCost(bcrypt.MinCost)
	svc.newPassword = func() string { return "temp-pass" }
	return svc
}

func TestService_AssignRole_CreatesAccount(t *testing.T) {
	t.Parallel()

	repo := &fakeUserRepo{}
	svc := newTestService(repo)

	res, err := svc.AssignRole(context.Background(), AssignRoleInput{EmployeeID: 1, Role: access.RoleAdmin})
	if err != nil {
		t.Fatalf("AssignRole returned error: %v", err)
	}
	if !res.Created {
		t.Fatal("expected a new account")
	}
	if res.User.Username != "emp001" || res.User.Role != access.RoleAdmin {
		t.Fatalf("unexpected user %+v", res.User)
	}
	if res.User.EmployeeID == nil || *res.User.EmployeeID != 1 {
		t.Fatalf("expected account bound to employee 1, got %v", res.User.EmployeeID)
	}
	if res.TemporaryPassword != "temp-pass" || !strings.Contains(res.Message, "temp-pass") {
		t.Fatalf("expected temporary password in message, got %q", res.Message)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(repo.users[0].PasswordHash), []byte("temp-pass")); err != nil {
		t.Fatalf("stored hash does not match temporary password: %v", err)
	}
}

func TestService_AssignRole_UpdatesExistingAccount(t *testing.T) {
	t.Parallel()

	repo := &fakeUserRepo{}
	svc := newTestService(repo)
	ctx := context.Background()

	if _, err := svc.AssignRole(ctx, AssignRoleInput{EmployeeID: 2, Role: access.RoleUser}); err != nil {
		t.Fatalf("first assign: %v", err)
	}
	res, err := svc.AssignRole(ctx, AssignRoleInput{EmployeeID: 2, Role: access.RoleAdmin})
	if err != nil {
		t.Fatalf("second assign: %v", err)
	}
	if res.Created || res.TemporaryPassword != "" {
		t.Fatalf("expected role update without new credential, got %+v", res)
	}
	if res.Message != "Role of emp002 updated to ADMIN" {
		t.Fatalf("unexpected message %q", res.Message)
	}
	if len(repo.users) != 1 || repo.users[0].Role != access.RoleAdmin {
		t.Fatalf("expected single ADMIN account, got %+v", repo.users)
	}
}

func TestService_AssignRole_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   AssignRoleInput
		want error
	}{
		{"missing employee id", AssignRoleInput{Role: access.RoleUser}, ErrInvalidEmployeeID},
		{"invalid role", AssignRoleInput{EmployeeID: 1}, ErrInvalidRole},
		{"unknown employee", AssignRoleInput{EmployeeID: 42, Role: access.RoleUser}, ErrEmployeeNotFound},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			repo := &fakeUserRepo{}
			if _, err := newTestService(repo).AssignRole(context.Background(), tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if len(repo.users) != 0 {
				t.Fatal("no account should be created on failure")
			}
		})
	}
}

func TestService_Authenticate(t *testing.T) {
	t.Parallel()

	repo := &fakeUserRepo{}
	svc := newTestService(repo)
	ctx := context.Background()

	if _, err := svc.AssignRole(ctx, AssignRoleInput{EmployeeID: 1, Role: access.RoleUser}); err != nil {
		t.Fatalf("assign: %v", err)
	}

	u, err := svc.Authenticate(ctx, " EMP001 ", "temp-pass")
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if u.Role != access.RoleUser {
		t.Fatalf("expected USER, got %v", u.Role)
	}

	if _, err := svc.Authenticate(ctx, "emp001", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody", "temp-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for empty input, got %v", err)
	}
}

func TestService_EnsureBootstrapAdmin(t *testing.T) {
	t.Parallel()

	repo := &fakeUserRepo{}
	svc := newTestService(repo)
	ctx := context.Background()

	created, err := svc.EnsureBootstrapAdmin(ctx, "Admin", "admin123")
	if err != nil || !created {
		t.Fatalf("expected bootstrap admin to be created, got %t (%v)", created, err)
	}
	created, err = svc.EnsureBootstrapAdmin(ctx, "admin", "other")
	if err != nil || created {
		t.Fatalf("expected second call to be a no-op, got %t (%v)", created, err)
	}

	u, err := svc.Authenticate(ctx, "admin", "admin123")
	if err != nil {
		t.Fatalf("bootstrap admin cannot log in: %v", err)
	}
	if u.Role != access.RoleAdmin || u.EmployeeID != nil {
		t.Fatalf("unexpected bootstrap admin %+v", u)
	}

	if _, err := svc.EnsureBootstrapAdmin(ctx, "root", ""); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestService_ListAccounts(t *testing.T) {
	t.Parallel()

	svc := newTestService(&fakeUserRepo{})
	list, err := svc.ListAccounts(context.Background())
	if err != nil || list == nil || len(list) != 0 {
		t.Fatalf("expected empty non-nil list, got %v (%v)", list, err)
	}
}

func TestService_CurrentUser_ReflectsRoleChange(t *testing.T) {
	t.Parallel()

	repo := &fakeUserRepo{}
	svc := newTestService(repo)
	ctx := context.Background()

	res, err := svc.AssignRole(ctx, AssignRoleInput{EmployeeID: 1, Role: access.RoleAdmin})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := svc.AssignRole(ctx, AssignRoleInput{EmployeeID: 1, Role: access.RoleUser}); err != nil {
		t.Fatalf("demote: %v", err)
	}

	u, err := svc.CurrentUser(ctx, res.User.ID)
	if err != nil {
		t.Fatalf("CurrentUser returned error: %v", err)
	}
	if u.Role != access.RoleUser || u.Username != "emp001" {
		t.Fatalf("expected demoted emp001, got %+v", u)
	}

	for _, id := range []int64{0, -1, 99} {
		if _, err := svc.CurrentUser(ctx, id); !errors.Is(err, ErrUserNotFound) {
			t.Fatalf("id %d: expected ErrUserNotFound, got %v", id, err)
		}
	}
}
