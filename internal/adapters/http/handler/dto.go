package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/ogurasousui/shiftboard/internal/core/account"
	"github.com/ogurasousui/shiftboard/internal/core/employee"
	"github.com/ogurasousui/shiftboard/internal/core/shift"
)

type employeeResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	EmployeeCode string `json:"employeeCode"`
	Department   string `json:"department"`
}

func toEmployeeResponse(e *employee.Employee) employeeResponse {
	return employeeResponse{
		ID:           e.ID,
		Name:         e.Name,
		EmployeeCode: e.EmployeeCode,
		Department:   e.Department,
	}
}

type shiftResponse struct {
	ID         int64  `json:"id"`
	EmployeeID int64  `json:"employeeId"`
	Date       string `json:"date"`
	StartTime  string `json:"startTime,omitempty"`
	EndTime    string `json:"endTime,omitempty"`
	ShiftType  string `json:"shiftType,omitempty"`
}

func toShiftResponse(s *shift.Shift) shiftResponse {
	return shiftResponse{
		ID:         s.ID,
		EmployeeID: s.EmployeeID,
		Date:       s.Date,
		StartTime:  s.StartTime,
		EndTime:    s.EndTime,
		ShiftType:  s.ShiftType,
	}
}

type userResponse struct {
	ID         int64  `json:"id"`
	EmployeeID *int64 `json:"employeeId"`
	Username   string `json:"username"`
	Role       string `json:"role"`
}

func toUserResponse(u *account.User) userResponse {
	return userResponse{
		ID:         u.ID,
		EmployeeID: u.EmployeeID,
		Username:   u.Username,
		Role:       u.Role.String(),
	}
}

var errNotNumeric = errors.New("must be a positive integer")

// flexibleID は数値と数値文字列のどちらの JSON 表現も受け付ける ID です。
type flexibleID int64

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	raw := string(b)
	if strings.HasPrefix(raw, `"`) {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*f = 0
			return nil
		}
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return errNotNumeric
	}
	*f = flexibleID(v)
	return nil
}
