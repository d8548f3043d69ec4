package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind はクライアントが扱う失敗の分類です。
type Kind uint8

const (
	KindTransport Kind = iota
	KindAuth
	KindAuthorization
	KindValidation
	KindReferential
	KindNotFound
)

var kindCodes = [...]string{
	KindTransport:     "TRANSPORT_ERROR",
	KindAuth:          "AUTH_ERROR",
	KindAuthorization: "AUTHORIZATION_ERROR",
	KindValidation:    "VALIDATION_ERROR",
	KindReferential:   "REFERENTIAL_ERROR",
	KindNotFound:      "NOT_FOUND",
}

// String はエラー応答の code と同じ表記を返します。
func (k Kind) String() string {
	if int(k) < len(kindCodes) {
		return kindCodes[k]
	}
	return "UNKNOWN"
}

func kindFromCode(code string) (Kind, bool) {
	for k, c := range kindCodes {
		if c == code {
			return Kind(k), true
		}
	}
	return KindTransport, false
}

func kindFromStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized:
		return KindAuth
	case http.StatusForbidden:
		return KindAuthorization
	case http.StatusBadRequest, http.StatusConflict:
		return KindValidation
	case http.StatusUnprocessableEntity:
		return KindReferential
	case http.StatusNotFound:
		return KindNotFound
	default:
		return KindTransport
	}
}

// Error はリポジトリ操作の型付き失敗です。Status はサーバー応答がない場合 0 です。
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError はサーバー応答を伴わない失敗を生成します。
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// IsKind は err が指定分類の *Error を含むかを返します。
func IsKind(err error, kind Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// KindOf は err の分類を返します。*Error を含まない場合は TRANSPORT_ERROR 扱いです。
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindTransport
}

// HTTPStatus は err がサーバー応答に由来する場合そのステータスを返します。
func HTTPStatus(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
