package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ogurasousui/shiftboard/internal/core/access"
)

const (
	defaultTimeout  = 10 * time.Second
	maxErrorPayload = 64 << 10
)

// TokenSource は Authorization ヘッダーに載せるベアラートークンを提供します。
type TokenSource interface {
	Token() string
}

// Client はバックエンドの REST エンドポイントへの薄いラッパーです。再試行は行いません。
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	tokens     TokenSource
}

// Option は Client の生成オプションです。
type Option func(*Client)

// WithHTTPClient は利用する http.Client を差し替えます。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout はリクエスト全体のタイムアウトを設定します。
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// New は baseURL (例: http://localhost:8080/api) を起点とするクライアントを返します。
func New(baseURL string, tokens TokenSource, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("api: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api: base url must be http or https, got %q", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: defaultTimeout},
		tokens:     tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type errorPayload struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Do は method と path でリクエストを送り、2xx の応答本文を out にデコードします。
// body と out は nil を許容します。失敗は常に *Error で返されます。
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindValidation, Message: "encode request body", Err: err}
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return &Error{Kind: KindTransport, Message: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: KindTransport, Message: "backend unavailable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: KindTransport, Status: resp.StatusCode, Message: "decode response", Err: err}
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &Error{Kind: kindFromStatus(resp.StatusCode), Status: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorPayload))
	if err != nil {
		apiErr.Err = err
		return apiErr
	}

	var payload errorPayload
	if err := json.Unmarshal(raw, &payload); err == nil {
		if kind, ok := kindFromCode(payload.Code); ok {
			apiErr.Kind = kind
		}
		apiErr.Message = payload.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	// 認証失敗はボディの内容に関わらず AUTH_ERROR として扱う
	if resp.StatusCode == http.StatusUnauthorized {
		apiErr.Kind = KindAuth
	}
	return apiErr
}

// LoginResult はログイン成功時にサーバーが返すセッション情報です。
type LoginResult struct {
	Token     string      `json:"token"`
	Role      access.Role `json:"role"`
	Username  string      `json:"username"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// Login は資格情報を送信しトークンを取得します。
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, NewError(KindValidation, "username and password are required")
	}
	var res LoginResult
	body := map[string]string{"username": username, "password": password}
	if err := c.Do(ctx, http.MethodPost, "/auth/login", nil, body, &res); err != nil {
		return nil, err
	}
	if res.Token == "" || !res.Role.Valid() {
		return nil, &Error{Kind: KindAuth, Status: http.StatusOK, Message: "login response lacks token or role", Err: errors.New("api: incomplete login response")}
	}
	return &res, nil
}
