package shift

import "time"

// Shift は社員に割り当てられた勤務枠です。
// Date は "YYYY-MM-DD"、StartTime / EndTime は "HH:MM" 形式で保持します。
type Shift struct {
	ID         int64
	EmployeeID int64
	Date       string
	StartTime  string
	EndTime    string
	ShiftType  string
	CreatedAt  time.Time
}

// ListFilter は一覧取得時の絞り込み条件です。未指定の条件は適用されません。
type ListFilter struct {
	EmployeeID *int64
	Date       string
}
