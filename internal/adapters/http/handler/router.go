package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/ogurasousui/shiftboard/internal/core/access"
	"github.com/ogurasousui/shiftboard/internal/core/account"
	"github.com/ogurasousui/shiftboard/internal/core/employee"
	"github.com/ogurasousui/shiftboard/internal/core/shift"
	"github.com/ogurasousui/shiftboard/internal/platform/obs"
	"github.com/ogurasousui/shiftboard/internal/platform/token"
)

// Pinger は /readyz で疎通確認する依存先です。
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies はルーター構築に必要なユースケースと基盤です。
type Dependencies struct {
	Employees employee.UseCase
	Shifts    shift.UseCase
	Accounts  account.UseCase
	Tokens    *token.Issuer
	Metrics   *obs.Metrics
	Ready     Pinger

	LoginRatePerSec float64
	LoginBurst      int
	// TrustProxy が true の場合のみ X-Forwarded-For / X-Real-IP を接続元として扱います。
	TrustProxy      bool
}

// API は HTTP ハンドラー群です。
type API struct {
	employees employee.UseCase
	shifts    shift.UseCase
	accounts  account.UseCase
	tokens    *token.Issuer
	metrics   *obs.Metrics
	ready     Pinger
}

// NewRouter は /api 配下の REST エンドポイントと運用エンドポイントを持つルーターを返します。
func NewRouter(deps Dependencies) http.Handler {
	api := &API{
		employees: deps.Employees,
		shifts:    deps.Shifts,
		accounts:  deps.Accounts,
		tokens:    deps.Tokens,
		metrics:   deps.Metrics,
		ready:     deps.Ready,
	}

	perSecond, burst := deps.LoginRatePerSec, deps.LoginBurst
	if perSecond <= 0 {
		perSecond = 5
	}
	if burst <= 0 {
		burst = 10
	}
	limiter := newIPRateLimiter(perSecond, burst)
	if api.metrics != nil {
		limiter.onLimit = func() { api.metrics.ObserveLogin("limited") }
	}

	r := chi.NewRouter()
	if deps.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if api.metrics != nil {
		r.Use(api.metrics.Instrument)
		r.Method(http.MethodGet, "/metrics", api.metrics.Handler())
	}

	r.Get("/healthz", api.healthz)
	r.Get("/readyz", api.readyz)

	r.Route("/api", func(r chi.Router) {
		r.With(limiter.middleware).Post("/auth/login", api.login)

		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(api.tokens.Auth()))
			r.Use(api.authenticate)

			r.With(requirePermission(access.ListEmployees)).Get("/employees", api.listEmployees)
			r.With(requirePermission(access.CreateEmployee)).Post("/employees", api.createEmployee)
			r.With(requirePermission(access.DeleteEmployee)).Delete("/employees/{id}", api.deleteEmployee)

			r.With(requirePermission(access.ListShifts)).Get("/shifts", api.listShifts)
			r.With(requirePermission(access.CreateShift)).Post("/shifts", api.createShift)
			r.With(requirePermission(access.DeleteShift)).Delete("/shifts/{id}", api.deleteShift)

			r.With(requirePermission(access.ListAccounts)).Get("/admin/users", api.listAccounts)
			r.With(requirePermission(access.AssignRole)).Post("/admin/assign-role", api.assignRole)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, "route not found", CodeNotFound, http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, "method not allowed", CodeValidation, http.StatusMethodNotAllowed)
	})

	return r
}

func (a *API) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) readyz(w http.ResponseWriter, r *http.Request) {
	if a.ready != nil {
		if err := a.ready.Ping(r.Context()); err != nil {
			writeError(w, r, "not ready: "+err.Error(), CodeTransport, http.StatusServiceUnavailable)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
