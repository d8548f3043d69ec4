package handler

import (
	"context"
	"errors"
	"net"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"github.com/ogurasousui/shiftboard/internal/core/access"
	"github.com/ogurasousui/shiftboard/internal/core/account"
	"github.com/ogurasousui/shiftboard/internal/platform/token"
	"golang.org/x/time/rate"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	principalKey contextKey = "principal"

	maxBodyBytes = 1 << 20
)

var validRequestID = regexp.MustCompile(`^[a-zA-Z0-9\-]{1,64}$`)

func requestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// RequestID は X-Request-ID を採番してレスポンスとコンテキストに設定します。
// 呼び出し元の値は英数字とハイフンのみ受け付けます。
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if !validRequestID.MatchString(id) {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		// chi の Logger にも同じ ID を出力させる。
		ctx = context.WithValue(ctx, middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PrincipalFromContext は認証済みリクエストの利用者情報を返します。
func PrincipalFromContext(ctx context.Context) (token.Claims, bool) {
	c, ok := ctx.Value(principalKey).(token.Claims)
	return c, ok
}

// authenticate は jwtauth.Verifier が検証したトークンの利用者を保存済みアカウントで解決します。
// ロールはトークンではなく現在のアカウントから取るため、降格は発行済みトークンにも反映されます。
// トークンが無い・期限切れ・不正な場合や、アカウントが存在しない場合は 401 AUTH_ERROR を返します。
func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || tok == nil {
			writeError(w, r, "authentication required", CodeAuth, http.StatusUnauthorized)
			return
		}
		parsed, err := token.ClaimsFromMap(claims)
		if err != nil {
			writeError(w, r, "invalid token claims", CodeAuth, http.StatusUnauthorized)
			return
		}
		user, err := a.accounts.CurrentUser(r.Context(), parsed.UserID)
		if err != nil {
			if errors.Is(err, account.ErrUserNotFound) {
				writeError(w, r, "account no longer exists", CodeAuth, http.StatusUnauthorized)
				return
			}
			writeServiceError(w, r, err)
			return
		}
		principal := token.Claims{UserID: user.ID, Username: user.Username, Role: user.Role}
		ctx := context.WithValue(r.Context(), principalKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requirePermission は access.Permits に従って操作を許可します。
// クライアント側の判定に関わらず、サーバー側で必ず評価されます。
func requirePermission(action access.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeError(w, r, "authentication required", CodeAuth, http.StatusUnauthorized)
				return
			}
			if !access.Permits(principal.Role, action) {
				writeError(w, r, "role "+principal.Role.String()+" may not perform "+action.String(), CodeAuthorization, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ipRateLimiter はクライアント IP ごとのトークンバケットです。
type ipRateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	now       func() time.Time
	onLimit   func()
	lastSweep time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func newIPRateLimiter(perSecond float64, burst int) *ipRateLimiter {
	return &ipRateLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		ttl:     5 * time.Minute,
		now:     time.Now,
	}
}

func (l *ipRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > time.Minute {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > l.ttl {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[ip]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[ip] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// middleware は上限を超えたリクエストに 429 TRANSPORT_ERROR を返します。
func (l *ipRateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientIP(r)) {
			if l.onLimit != nil {
				l.onLimit()
			}
			writeError(w, r, "rate limit exceeded", CodeTransport, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP は接続元アドレスを返します。転送ヘッダーは信頼済みプロキシ設定時に
// middleware.RealIP が RemoteAddr へ反映した場合のみ効きます。
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
