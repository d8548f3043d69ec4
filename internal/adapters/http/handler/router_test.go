package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ogurasousui/shiftboard/internal/adapters/repository/memory"
	"github.com/ogurasousui/shiftboard/internal/core/access"
	"github.com/ogurasousui/shiftboard/internal/core/account"
	"github.com/ogurasousui/shiftboard/internal/core/employee"
	"github.com/ogurasousui/shiftboard/internal/core/shift"
	"github.com/ogurasousui/shiftboard/internal/platform/obs"
	"github.com/ogurasousui/shiftboard/internal/platform/token"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testEnv struct {
	handler  http.Handler
	tokens   *token.Issuer
	accounts *account.Service
	store    *memory.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	issuer, err := token.NewIssuer(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	accounts := account.NewService(store.Accounts(), store.Employees(), nil, nil).WithPasswordCost(4)
	if _, err := accounts.EnsureBootstrapAdmin(context.Background(), "admin", "admin123"); err != nil {
		t.Fatalf("bootstrap admin: %v", err)
	}

	h := NewRouter(Dependencies{
		Employees:       employee.NewService(store.Employees(), nil, nil),
		Shifts:          shift.NewService(store.Shifts(), store.Employees(), nil, nil),
		Accounts:        accounts,
		Tokens:          issuer,
		Metrics:         obs.NewMetrics(),
		Ready:           store,
		LoginRatePerSec: 100,
		LoginBurst:      100,
	})
	return &testEnv{handler: h, tokens: issuer, accounts: accounts, store: store}
}

func (e *testEnv) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// tokenFor は指定ロールのアカウントを用意し、そのトークンを返します。
func (e *testEnv) tokenFor(t *testing.T, role access.Role) string {
	t.Helper()

	ctx := context.Background()
	name := "tester-" + strings.ToLower(role.String())
	u, err := e.store.Accounts().FindByUsername(ctx, name)
	if errors.Is(err, account.ErrUserNotFound) {
		u, err = e.store.Accounts().Create(ctx, &account.User{Username: name, Role: role, PasswordHash: "-"})
	}
	if err != nil {
		t.Fatalf("prepare account: %v", err)
	}
	raw, _, err := e.tokens.Issue(u.ID, u.Username, u.Role)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return raw
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestLogin(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", loginRequest{Username: "admin", Password: "admin123"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Role != "ADMIN" || resp.Username != "admin" || resp.Token == "" {
		t.Fatalf("unexpected login response %+v", resp)
	}

	rec = env.do(t, http.MethodPost, "/api/auth/login", "", loginRequest{Username: "admin", Password: "nope"})
	if rec.Code != http.StatusUnauthorized || decodeError(t, rec).Code != CodeAuth {
		t.Fatalf("expected 401 AUTH_ERROR, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	cases := []struct {
		name   string
		bearer string
	}{
		{"missing", ""},
		{"garbage", "not-a-jwt"},
	}
	for _, tc := range cases {
		rec := env.do(t, http.MethodGet, "/api/employees", tc.bearer, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", tc.name, rec.Code)
		}
		body := decodeError(t, rec)
		if body.Code != CodeAuth || body.RequestID == "" {
			t.Fatalf("%s: unexpected error body %+v", tc.name, body)
		}
	}
}

func TestUserRole_IsReadOnly(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	user := env.tokenFor(t, access.RoleUser)

	if rec := env.do(t, http.MethodGet, "/api/employees", user, nil); rec.Code != http.StatusOK {
		t.Fatalf("USER should list employees, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/shifts", user, nil); rec.Code != http.StatusOK {
		t.Fatalf("USER should list shifts, got %d", rec.Code)
	}

	forbidden := []struct {
		method, path string
		body         any
	}{
		{http.MethodPost, "/api/employees", createEmployeeRequest{Name: "X", Department: "Y"}},
		{http.MethodDelete, "/api/employees/1", nil},
		{http.MethodPost, "/api/shifts", map[string]any{"employeeId": 1, "date": "2024-05-01"}},
		{http.MethodDelete, "/api/shifts/1", nil},
		{http.MethodGet, "/api/admin/users", nil},
		{http.MethodPost, "/api/admin/assign-role", map[string]any{"employeeId": 1, "role": "ADMIN"}},
	}
	for _, f := range forbidden {
		rec := env.do(t, f.method, f.path, user, f.body)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s %s: expected 403, got %d", f.method, f.path, rec.Code)
		}
		if decodeError(t, rec).Code != CodeAuthorization {
			t.Fatalf("%s %s: expected AUTHORIZATION_ERROR", f.method, f.path)
		}
	}
}

func TestEmployeeLifecycle(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	admin := env.tokenFor(t, access.RoleAdmin)

	rec := env.do(t, http.MethodPost, "/api/employees", admin, createEmployeeRequest{Name: "Ana Lee", Department: "Ops"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created employeeResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &created)
	if created.EmployeeCode != "EMP001" {
		t.Fatalf("expected generated code EMP001, got %+v", created)
	}

	rec = env.do(t, http.MethodPost, "/api/employees", admin, createEmployeeRequest{Name: "", Department: "Ops"})
	if rec.Code != http.StatusBadRequest || decodeError(t, rec).Code != CodeValidation {
		t.Fatalf("expected 400 VALIDATION_ERROR, got %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/employees", admin, createEmployeeRequest{Name: "Dup", EmployeeCode: "emp001", Department: "Ops"})
	if rec.Code != http.StatusConflict || decodeError(t, rec).Code != CodeValidation {
		t.Fatalf("expected 409 VALIDATION_ERROR, got %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodDelete, "/api/employees/999", admin, nil)
	if rec.Code != http.StatusNotFound || decodeError(t, rec).Code != CodeNotFound {
		t.Fatalf("expected 404 NOT_FOUND, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodDelete, "/api/employees/abc", admin, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric id, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/employees", admin, nil)
	var list []employeeResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list) != 1 || list[0].Name != "Ana Lee" {
		t.Fatalf("unexpected employee list %+v", list)
	}

	rec = env.do(t, http.MethodDelete, "/api/employees/1", admin, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestCreateEmployee_DerivedCodeAfterExplicitCode(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	admin := env.tokenFor(t, access.RoleAdmin)

	rec := env.do(t, http.MethodPost, "/api/employees", admin, createEmployeeRequest{Name: "Ana Lee", EmployeeCode: "EMP002", Department: "Ops"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("explicit code: expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	rec = env.do(t, http.MethodPost, "/api/employees", admin, createEmployeeRequest{Name: "Bob Johnson", Department: "Ops"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("derived code: expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	var created employeeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.EmployeeCode != "EMP003" {
		t.Fatalf("expected EMP003, got %+v", created)
	}
}

func TestShiftEndpoints(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	admin := env.tokenFor(t, access.RoleAdmin)

	env.do(t, http.MethodPost, "/api/employees", admin, createEmployeeRequest{Name: "Ana Lee", Department: "Ops"})

	rec := env.do(t, http.MethodPost, "/api/shifts", admin, `{"employeeId":"1","date":"2024-05-01","startTime":"09:00","endTime":"17:00"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/shifts", admin, map[string]any{"employeeId": 42, "date": "2024-05-01"})
	if rec.Code != http.StatusUnprocessableEntity || decodeError(t, rec).Code != CodeReferential {
		t.Fatalf("expected 422 REFERENTIAL_ERROR, got %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/shifts", admin, map[string]any{"employeeId": 1, "date": "May 1"})
	if rec.Code != http.StatusBadRequest || decodeError(t, rec).Code != CodeValidation {
		t.Fatalf("expected 400 VALIDATION_ERROR, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/shifts?date=2024-05-01&employee=1", admin, nil)
	var list []shiftResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list) != 1 || list[0].StartTime != "09:00" {
		t.Fatalf("unexpected shift list %+v", list)
	}

	rec = env.do(t, http.MethodGet, "/api/shifts?employee=x", admin, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad employee filter, got %d", rec.Code)
	}

	if rec := env.do(t, http.MethodDelete, "/api/shifts/1", admin, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/api/shifts/1", admin, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestAssignRole(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	admin := env.tokenFor(t, access.RoleAdmin)

	env.do(t, http.MethodPost, "/api/employees", admin, createEmployeeRequest{Name: "Ana Lee", Department: "Ops"})

	rec := env.do(t, http.MethodPost, "/api/admin/assign-role", admin, map[string]any{"employeeId": 1, "role": "ADMIN"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var msg messageResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &msg)
	if !strings.Contains(msg.Message, "emp001") {
		t.Fatalf("unexpected message %q", msg.Message)
	}

	for _, body := range []string{
		`{"employeeId":"abc","role":"USER"}`,
		`{"role":"USER"}`,
		`{"employeeId":1,"role":"OWNER"}`,
	} {
		rec := env.do(t, http.MethodPost, "/api/admin/assign-role", admin, body)
		if rec.Code != http.StatusBadRequest || decodeError(t, rec).Code != CodeValidation {
			t.Fatalf("%s: expected 400 VALIDATION_ERROR, got %d %s", body, rec.Code, rec.Body.String())
		}
	}

	rec = env.do(t, http.MethodPost, "/api/admin/assign-role", admin, map[string]any{"employeeId": 9, "role": "USER"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unknown employee, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/admin/users", admin, nil)
	var users []userResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &users)
	found := false
	for _, u := range users {
		if u.EmployeeID != nil && *u.EmployeeID == 1 && u.Role == "ADMIN" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected ADMIN account bound to employee 1, got %+v", users)
	}
}

func TestLoginRateLimit(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	issuer, _ := token.NewIssuer(testSecret, time.Hour)
	h := NewRouter(Dependencies{
		Employees:       employee.NewService(store.Employees(), nil, nil),
		Shifts:          shift.NewService(store.Shifts(), store.Employees(), nil, nil),
		Accounts:        account.NewService(store.Accounts(), store.Employees(), nil, nil),
		Tokens:          issuer,
		LoginRatePerSec: 0.001,
		LoginBurst:      1,
	})

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"x","password":"y"}`))
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send(); code != http.StatusUnauthorized {
		t.Fatalf("first attempt should reach the handler, got %d", code)
	}
	if code := send(); code != http.StatusTooManyRequests {
		t.Fatalf("second attempt should be limited, got %d", code)
	}
}

func TestLoginRateLimit_IgnoresForwardedHeadersByDefault(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	issuer, _ := token.NewIssuer(testSecret, time.Hour)
	deps := Dependencies{
		Employees:       employee.NewService(store.Employees(), nil, nil),
		Shifts:          shift.NewService(store.Shifts(), store.Employees(), nil, nil),
		Accounts:        account.NewService(store.Accounts(), store.Employees(), nil, nil),
		Tokens:          issuer,
		LoginRatePerSec: 0.001,
		LoginBurst:      2,
	}

	send := func(h http.Handler, i int) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"admin","password":"guess"}`))
		req.RemoteAddr = "203.0.113.9:4242"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	direct := NewRouter(deps)
	limited := 0
	for i := 0; i < 20; i++ {
		if send(direct, i) == http.StatusTooManyRequests {
			limited++
		}
	}
	if limited != 18 {
		t.Fatalf("rotating X-Forwarded-For from one socket must not bypass the limit, limited=%d", limited)
	}

	deps.TrustProxy = true
	proxied := NewRouter(deps)
	for i := 0; i < 5; i++ {
		if code := send(proxied, i); code == http.StatusTooManyRequests {
			t.Fatalf("behind a trusted proxy each forwarded client has its own bucket, got 429 for client %d", i)
		}
	}
}

func TestDemotedAdmin_LosesMutationRights(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	admin := env.tokenFor(t, access.RoleAdmin)

	if rec := env.do(t, http.MethodPost, "/api/employees", admin, createEmployeeRequest{Name: "Ana Lee", Department: "Ops"}); rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", rec.Code)
	}
	rec := env.do(t, http.MethodPost, "/api/admin/assign-role", admin, map[string]any{"employeeId": 1, "role": "ADMIN"})
	var msg messageResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &msg)
	_, password, ok := strings.Cut(msg.Message, "Temporary password: ")
	if rec.Code != http.StatusOK || !ok {
		t.Fatalf("assign: unexpected %d %q", rec.Code, msg.Message)
	}

	rec = env.do(t, http.MethodPost, "/api/auth/login", "", loginRequest{Username: "emp001", Password: password})
	var login loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &login); err != nil || login.Role != "ADMIN" {
		t.Fatalf("login as emp001: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/admin/assign-role", admin, map[string]any{"employeeId": 1, "role": "USER"})
	if rec.Code != http.StatusOK {
		t.Fatalf("demote: expected 200, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/employees", login.Token, createEmployeeRequest{Name: "Eve", Department: "Ops"})
	if rec.Code != http.StatusForbidden || decodeError(t, rec).Code != CodeAuthorization {
		t.Fatalf("old ADMIN token after demotion: expected 403, got %d %s", rec.Code, rec.Body.String())
	}
	if rec := env.do(t, http.MethodGet, "/api/employees", login.Token, nil); rec.Code != http.StatusOK {
		t.Fatalf("demoted user should still read, got %d", rec.Code)
	}
}

func TestAuthenticate_UnknownAccountIsUnauthorized(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	raw, _, err := env.tokens.Issue(999, "ghost", access.RoleAdmin)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	rec := env.do(t, http.MethodGet, "/api/employees", raw, nil)
	if rec.Code != http.StatusUnauthorized || decodeError(t, rec).Code != CodeAuth {
		t.Fatalf("expected 401 AUTH_ERROR for a token without an account, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		if rec := env.do(t, http.MethodGet, path, "", nil); rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("db down") }

func TestReadyz_Unavailable(t *testing.T) {
	t.Parallel()

	issuer, _ := token.NewIssuer(testSecret, time.Hour)
	h := NewRouter(Dependencies{Tokens: issuer, Ready: failingPinger{}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestWriteServiceError_UnknownIsInternal(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeServiceError(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("boom"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != CodeTransport || strings.Contains(body.Error, "boom") {
		t.Fatalf("internal error details must not leak: %+v", body)
	}
}
