package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/ogurasousui/shiftboard/internal/core/access"
	"github.com/ogurasousui/shiftboard/internal/core/account"
	"github.com/ogurasousui/shiftboard/internal/core/employee"
	"github.com/ogurasousui/shiftboard/internal/core/shift"
)

// エラー応答の code に入る分類です。クライアントはこの値と HTTP ステータスで種別を判定します。
const (
	CodeAuth          = "AUTH_ERROR"
	CodeAuthorization = "AUTHORIZATION_ERROR"
	CodeValidation    = "VALIDATION_ERROR"
	CodeReferential   = "REFERENTIAL_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeTransport     = "TRANSPORT_ERROR"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError はユースケースのエラーを HTTP ステータスと分類に変換して書き込みます。
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, employee.ErrInvalidID),
		errors.Is(err, employee.ErrInvalidName),
		errors.Is(err, employee.ErrInvalidDepartment),
		errors.Is(err, employee.ErrInvalidEmployeeCode),
		errors.Is(err, shift.ErrInvalidID),
		errors.Is(err, shift.ErrInvalidEmployeeID),
		errors.Is(err, shift.ErrInvalidDate),
		errors.Is(err, shift.ErrInvalidTime),
		errors.Is(err, shift.ErrInvalidShiftType),
		errors.Is(err, account.ErrInvalidEmployeeID),
		errors.Is(err, account.ErrInvalidRole),
		errors.Is(err, account.ErrInvalidUsername),
		errors.Is(err, account.ErrInvalidPassword),
		errors.Is(err, access.ErrInvalidRole):
		writeError(w, r, err.Error(), CodeValidation, http.StatusBadRequest)
	case errors.Is(err, employee.ErrEmployeeCodeAlreadyExists),
		errors.Is(err, account.ErrUsernameAlreadyExists):
		writeError(w, r, err.Error(), CodeValidation, http.StatusConflict)
	case errors.Is(err, shift.ErrEmployeeNotFound),
		errors.Is(err, account.ErrEmployeeNotFound):
		writeError(w, r, err.Error(), CodeReferential, http.StatusUnprocessableEntity)
	case errors.Is(err, employee.ErrEmployeeNotFound),
		errors.Is(err, shift.ErrShiftNotFound),
		errors.Is(err, account.ErrUserNotFound):
		writeError(w, r, err.Error(), CodeNotFound, http.StatusNotFound)
	case errors.Is(err, account.ErrInvalidCredentials):
		writeError(w, r, "invalid username or password", CodeAuth, http.StatusUnauthorized)
	default:
		log.Printf("request %s: %s %s: %v", requestIDFromContext(r.Context()), r.Method, r.URL.Path, err)
		writeError(w, r, "internal server error", CodeTransport, http.StatusInternalServerError)
	}
}

// decodeJSON はリクエストボディを v に読み込みます。失敗時は 400 を書き込み false を返します。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, r, "invalid request body: "+err.Error(), CodeValidation, http.StatusBadRequest)
		return false
	}
	return true
}
