package handler

import (
	"net/http"
	"time"

	"github.com/ogurasousui/shiftboard/internal/core/access"
	"github.com/ogurasousui/shiftboard/internal/core/account"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type assignRoleRequest struct {
	EmployeeID flexibleID `json:"employeeId"`
	Role       string     `json:"role"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := a.accounts.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		a.observeLogin("failure")
		writeServiceError(w, r, err)
		return
	}
	signed, expiresAt, err := a.tokens.Issue(u.ID, u.Username, u.Role)
	if err != nil {
		a.observeLogin("failure")
		writeServiceError(w, r, err)
		return
	}
	a.observeLogin("success")
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     signed,
		Role:      u.Role.String(),
		Username:  u.Username,
		ExpiresAt: expiresAt.UTC(),
	})
}

func (a *API) observeLogin(outcome string) {
	if a.metrics != nil {
		a.metrics.ObserveLogin(outcome)
	}
}

func (a *API) listAccounts(w http.ResponseWriter, r *http.Request) {
	users, err := a.accounts.ListAccounts(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) assignRole(w http.ResponseWriter, r *http.Request) {
	var req assignRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	role, err := access.ParseRole(req.Role)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	res, err := a.accounts.AssignRole(r.Context(), account.AssignRoleInput{
		EmployeeID: int64(req.EmployeeID),
		Role:       role,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: res.Message})
}
