package guard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ogurasousui/shiftboard/internal/client/api"
	"github.com/ogurasousui/shiftboard/internal/core/access"
)

// 画面ルートです。
const (
	RouteRoot      = "/"
	RouteLogin     = "/login"
	RouteDashboard = "/dashboard"
	RouteEmployees = "/employees"
	RouteShifts    = "/shifts"
	RouteAdmin     = "/admin"

	// DefaultRoute は認証済みで権限が足りない場合の遷移先です。
	DefaultRoute = RouteDashboard
)

// ErrUnknownRoute はルート表に存在しないパスを指定した場合に返却されます。
var ErrUnknownRoute = errors.New("guard: unknown route")

var routes = map[string]access.RouteClass{
	RouteLogin:     access.Public,
	RouteDashboard: access.Protected,
	RouteEmployees: access.Protected,
	RouteShifts:    access.Protected,
	RouteAdmin:     access.AdminOnly,
}

var aliases = map[string]string{
	RouteRoot: RouteLogin,
}

// State はナビゲーション 1 回分の状態です。
type State uint8

const (
	StateUnresolved State = iota
	StateAllowed
	StateRedirectLogin
	StateRedirectDefault
)

func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "UNRESOLVED"
	case StateAllowed:
		return "ALLOWED"
	case StateRedirectLogin:
		return "REDIRECT_LOGIN"
	case StateRedirectDefault:
		return "REDIRECT_DEFAULT"
	default:
		return "UNKNOWN"
	}
}

// Outcome は遷移結果と最終的に表示するパスです。
type Outcome struct {
	State State
	Path  string
}

// Session は Guard が参照するセッション操作です。*session.Store が実装します。
type Session interface {
	Role() access.Role
	Logout(ctx context.Context)
}

// Guard はセッションとアクセスポリシーを組み合わせて画面遷移を判定します。
// 遷移ごとの状態は保持せず、毎回セッションの現在値で評価します。
type Guard struct {
	session Session
}

func New(session Session) *Guard {
	return &Guard{session: session}
}

// Classify はパスの公開区分を返します。エイリアスは解決後のパスで判定します。
func Classify(path string) (string, access.RouteClass, error) {
	p := normalize(path)
	if target, ok := aliases[p]; ok {
		p = target
	}
	class, ok := routes[p]
	if !ok {
		return "", 0, fmt.Errorf("%w: %s", ErrUnknownRoute, path)
	}
	return p, class, nil
}

// Navigate は path への遷移を評価します。
func (g *Guard) Navigate(path string) (Outcome, error) {
	out := Outcome{State: StateUnresolved, Path: path}

	resolved, class, err := Classify(path)
	if err != nil {
		return out, err
	}

	switch access.Decide(g.session.Role(), class) {
	case access.Allow:
		out = Outcome{State: StateAllowed, Path: resolved}
	case access.RedirectLogin:
		out = Outcome{State: StateRedirectLogin, Path: RouteLogin}
	case access.RedirectDefault:
		out = Outcome{State: StateRedirectDefault, Path: DefaultRoute}
	}
	return out, nil
}

// Recover はリポジトリ操作の失敗に応じた自動遷移を行います。
// AUTH_ERROR はログアウトしてログイン画面へ、AUTHORIZATION_ERROR はセッションを保持したまま既定画面へ遷移します。
// それ以外のエラーは扱わず false を返します。
func (g *Guard) Recover(ctx context.Context, err error) (Outcome, bool) {
	switch {
	case api.IsKind(err, api.KindAuth):
		g.session.Logout(ctx)
		return Outcome{State: StateRedirectLogin, Path: RouteLogin}, true
	case api.IsKind(err, api.KindAuthorization):
		return Outcome{State: StateRedirectDefault, Path: DefaultRoute}, true
	default:
		return Outcome{}, false
	}
}

func normalize(path string) string {
	p := strings.TrimSpace(path)
	if p == "" {
		return RouteRoot
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = RouteRoot
		}
	}
	return p
}
