package access

// Action はリポジトリ操作の種別です。
type Action uint8

const (
	ListEmployees Action = iota
	CreateEmployee
	DeleteEmployee
	ListShifts
	CreateShift
	DeleteShift
	ListAccounts
	AssignRole
)

var actionNames = [...]string{
	ListEmployees:  "employee.list",
	CreateEmployee: "employee.create",
	DeleteEmployee: "employee.delete",
	ListShifts:     "shift.list",
	CreateShift:    "shift.create",
	DeleteShift:    "shift.delete",
	ListAccounts:   "account.list",
	AssignRole:     "account.assign_role",
}

func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return "unknown"
}

// Mutating は状態を変更する操作かどうかを返します。
func (a Action) Mutating() bool {
	switch a {
	case CreateEmployee, DeleteEmployee, CreateShift, DeleteShift, AssignRole:
		return true
	default:
		return false
	}
}

// Permits はロールが操作を実行できるかを返します。
// クライアントの事前チェックとサーバーの強制チェックの双方がこの表を参照します。
func Permits(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return int(action) < len(actionNames)
	case RoleUser:
		return action == ListEmployees || action == ListShifts
	default:
		return false
	}
}
