package account

import "errors"

var (
	// ErrInvalidEmployeeID は社員 ID が未指定または数値でない場合に返却されます。
	ErrInvalidEmployeeID = errors.New("account: employee id is required")
	// ErrInvalidRole は USER / ADMIN 以外のロールが指定された場合に返却されます。
	ErrInvalidRole = errors.New("account: invalid role")
	// ErrInvalidUsername はユーザー名が不正な場合に返却されます。
	ErrInvalidUsername = errors.New("account: invalid username")
	// ErrInvalidPassword はパスワードが空の場合に返却されます。
	ErrInvalidPassword = errors.New("account: invalid password")
	// ErrUserNotFound はアカウントが存在しない場合に返却されます。
	ErrUserNotFound = errors.New("account: user not found")
	// ErrUsernameAlreadyExists はユーザー名が重複した場合に返却されます。
	ErrUsernameAlreadyExists = errors.New("account: username already exists")
	// ErrEmployeeNotFound は紐づけ先の社員が存在しない場合に返却されます。
	ErrEmployeeNotFound = errors.New("account: referenced employee not found")
	// ErrInvalidCredentials はユーザー名またはパスワードが一致しない場合に返却されます。
	ErrInvalidCredentials = errors.New("account: invalid credentials")
)
