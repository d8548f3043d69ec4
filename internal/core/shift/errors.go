package shift

import "errors"

var (
	// ErrInvalidID は ID が不正な場合に返却されます。
	ErrInvalidID = errors.New("shift: invalid id")
	// ErrInvalidEmployeeID は社員 ID が未指定または不正な場合に返却されます。
	ErrInvalidEmployeeID = errors.New("shift: employee id is required")
	// ErrInvalidDate は日付が YYYY-MM-DD 形式でない場合に返却されます。
	ErrInvalidDate = errors.New("shift: invalid date")
	// ErrInvalidTime は時刻が HH:MM 形式でない場合に返却されます。
	ErrInvalidTime = errors.New("shift: invalid time of day")
	// ErrInvalidShiftType はシフト種別が長すぎる場合に返却されます。
	ErrInvalidShiftType = errors.New("shift: invalid shift type")
	// ErrShiftNotFound はシフトが存在しない場合に返却されます。
	ErrShiftNotFound = errors.New("shift: not found")
	// ErrEmployeeNotFound は参照先の社員が存在しない場合に返却されます。
	ErrEmployeeNotFound = errors.New("shift: referenced employee not found")
)
