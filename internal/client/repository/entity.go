package repository

import "github.com/ogurasousui/shiftboard/internal/core/access"

// Employee はバックエンドが返す従業員です。
type Employee struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	EmployeeCode string `json:"employeeCode"`
	Department   string `json:"department"`
}

// Shift はバックエンドが返すシフトです。時刻と種別は任意項目です。
type Shift struct {
	ID         int64  `json:"id"`
	EmployeeID int64  `json:"employeeId"`
	Date       string `json:"date"`
	StartTime  string `json:"startTime,omitempty"`
	EndTime    string `json:"endTime,omitempty"`
	ShiftType  string `json:"shiftType,omitempty"`
}

// User は従業員に紐づくアカウントです。資格情報は含みません。
type User struct {
	ID         int64       `json:"id"`
	EmployeeID *int64      `json:"employeeId"`
	Username   string      `json:"username"`
	Role       access.Role `json:"role"`
}

type CreateEmployeeInput struct {
	Name         string `json:"name"`
	EmployeeCode string `json:"employeeCode,omitempty"`
	Department   string `json:"department"`
}

type CreateShiftInput struct {
	EmployeeID int64  `json:"employeeId"`
	Date       string `json:"date"`
	StartTime  string `json:"startTime,omitempty"`
	EndTime    string `json:"endTime,omitempty"`
	ShiftType  string `json:"shiftType,omitempty"`
}

// ShiftFilter の各項目は任意です。未指定の項目はクエリに含めません。
type ShiftFilter struct {
	EmployeeID *int64
	Date       string
}
