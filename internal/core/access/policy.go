package access

// RouteClass は画面ルートの公開区分です。
type RouteClass uint8

const (
	Public RouteClass = iota
	Protected
	AdminOnly
)

func (c RouteClass) String() string {
	switch c {
	case Public:
		return "PUBLIC"
	case Protected:
		return "PROTECTED"
	case AdminOnly:
		return "ADMIN_ONLY"
	default:
		return "UNKNOWN"
	}
}

// Decision はナビゲーション可否の判定結果です。
type Decision uint8

const (
	Allow Decision = iota
	RedirectLogin
	RedirectDefault
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "ALLOWED"
	case RedirectLogin:
		return "REDIRECT_LOGIN"
	case RedirectDefault:
		return "REDIRECT_DEFAULT"
	default:
		return "UNKNOWN"
	}
}

// Decide はセッションのロールとルート区分から遷移結果を決定します。
// 副作用を持たず、クライアント側の表示制御のみに用いられます。
func Decide(role Role, class RouteClass) Decision {
	switch class {
	case Public:
		return Allow
	case Protected:
		if !role.Valid() {
			return RedirectLogin
		}
		return Allow
	case AdminOnly:
		switch role {
		case RoleAdmin:
			return Allow
		case RoleUser:
			return RedirectDefault
		default:
			return RedirectLogin
		}
	default:
		return RedirectLogin
	}
}
