package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ogurasousui/shiftboard/internal/core/employee"
)

type createEmployeeRequest struct {
	Name         string `json:"name"`
	EmployeeCode string `json:"employeeCode"`
	Department   string `json:"department"`
}

func (a *API) listEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := a.employees.ListEmployees(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]employeeResponse, 0, len(employees))
	for _, e := range employees {
		out = append(out, toEmployeeResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) createEmployee(w http.ResponseWriter, r *http.Request) {
	var req createEmployeeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	created, err := a.employees.CreateEmployee(r.Context(), employee.CreateEmployeeInput{
		Name:         req.Name,
		EmployeeCode: req.EmployeeCode,
		Department:   req.Department,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeResponse(created))
}

func (a *API) deleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := a.employees.DeleteEmployee(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pathID は {id} を正の整数として取り出します。失敗時は 400 を書き込みます。
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, "id must be a positive integer", CodeValidation, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
