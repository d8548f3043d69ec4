package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/ogurasousui/shiftboard/internal/core/access"
)

const signingAlg = "HS256"

var (
	// ErrInvalidClaims はトークンのクレームが欠落または不正な場合に返却されます。
	ErrInvalidClaims = errors.New("token: invalid claims")
	// ErrEmptySecret は署名鍵が空の場合に返却されます。
	ErrEmptySecret = errors.New("token: secret is required")
)

// Claims はアクセストークンから取り出した利用者情報です。
type Claims struct {
	UserID   int64
	Username string
	Role     access.Role
}

// Issuer は HS256 で署名したアクセストークンを発行します。
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	auth   *jwtauth.JWTAuth
}

// NewIssuer は Issuer を生成します。
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	key := []byte(secret)
	return &Issuer{
		secret: key,
		ttl:    ttl,
		now:    time.Now,
		auth:   jwtauth.New(signingAlg, key, nil),
	}, nil
}

// Issue はトークン文字列と有効期限を返します。
func (i *Issuer) Issue(userID int64, username string, role access.Role) (string, time.Time, error) {
	if !role.Valid() {
		return "", time.Time{}, fmt.Errorf("issue token: %w", access.ErrInvalidRole)
	}
	now := i.now()
	expiresAt := now.Add(i.ttl)
	claims := jwt.MapClaims{
		"user_id":  strconv.FormatInt(userID, 10),
		"username": username,
		"role":     role.String(),
		"exp":      expiresAt.Unix(),
		"iat":      now.Unix(),
		"jti":      uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Auth は jwtauth.Verifier に渡す検証器を返します。
func (i *Issuer) Auth() *jwtauth.JWTAuth {
	return i.auth
}

// ClaimsFromMap は jwtauth.FromContext などで得たクレームのマップを解釈します。
func ClaimsFromMap(m map[string]interface{}) (Claims, error) {
	var c Claims

	switch v := m["user_id"].(type) {
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Claims{}, ErrInvalidClaims
		}
		c.UserID = id
	case float64:
		c.UserID = int64(v)
	default:
		return Claims{}, ErrInvalidClaims
	}

	username, _ := m["username"].(string)
	c.Username = username

	rawRole, _ := m["role"].(string)
	role, err := access.ParseRole(rawRole)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidClaims, err)
	}
	c.Role = role
	return c, nil
}
