package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ogurasousui/shiftboard/internal/core/shift"
)

type createShiftRequest struct {
	EmployeeID flexibleID `json:"employeeId"`
	Date       string     `json:"date"`
	StartTime  string     `json:"startTime"`
	EndTime    string     `json:"endTime"`
	ShiftType  string     `json:"shiftType"`
}

func (a *API) listShifts(w http.ResponseWriter, r *http.Request) {
	var filter shift.ListFilter

	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("employee")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, r, "employee must be a positive integer", CodeValidation, http.StatusBadRequest)
			return
		}
		filter.EmployeeID = &id
	}
	filter.Date = strings.TrimSpace(q.Get("date"))

	shifts, err := a.shifts.ListShifts(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]shiftResponse, 0, len(shifts))
	for _, s := range shifts {
		out = append(out, toShiftResponse(s))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) createShift(w http.ResponseWriter, r *http.Request) {
	var req createShiftRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	created, err := a.shifts.CreateShift(r.Context(), shift.CreateShiftInput{
		EmployeeID: int64(req.EmployeeID),
		Date:       req.Date,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		ShiftType:  req.ShiftType,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toShiftResponse(created))
}

func (a *API) deleteShift(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := a.shifts.DeleteShift(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
