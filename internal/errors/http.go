package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// APIError — формат ошибки шлюза для фронта.
// Code — короткий стабильный код; Message — человекочитаемое описание;
// StatusCode — статус, с которым ответил бэкенд (если ответ был).
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code,omitempty"`
	RequestID  string `json:"request_id,omitempty"`

	Details []FieldViolation `json:"details,omitempty"`
}

// FieldViolation — нарушенное правило валидации одного поля.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError — входные данные не прошли валидацию; errors.Is(err,
// ErrInvalidArgument) == true.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	return ErrInvalidArgument.Error() + ": " + e.Summary()
}

// Summary — нарушения через "; " без префикса.
func (e *ValidationError) Summary() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Message)
	}

	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidArgument }

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует ошибку клиента в HTTP-статус и тело ответа шлюза.
//
// Поведение:
//   - err == nil — программная ошибка вызова: 500/internal;
//   - ErrSessionExpired / ErrNoRefreshToken — 401/session_expired;
//   - ErrInvalidArgument — 400/invalid_argument;
//   - *Error с ответом бэкенда — статус бэкенда, message 4xx пробрасывается,
//     у 5xx заменяется на общий;
//   - транспортная *Error — 504/499/502 по коду;
//   - прочее — 500/internal.
func ToHTTP(err error) (int, ErrorResponse) {
	internal := ErrorResponse{Error: APIError{Code: "internal", Message: "internal error"}}

	switch {
	case err == nil:
		return http.StatusInternalServerError, internal
	case stderrors.Is(err, ErrSessionExpired), stderrors.Is(err, ErrNoRefreshToken):
		return http.StatusUnauthorized, ErrorResponse{Error: APIError{
			Code:    "session_expired",
			Message: "session expired, please log in again",
		}}
	case stderrors.Is(err, ErrInvalidArgument):
		resp := ErrorResponse{Error: APIError{Code: "invalid_argument", Message: "invalid argument"}}

		var ve *ValidationError
		if stderrors.As(err, &ve) {
			resp.Error.Message = ve.Summary()
			resp.Error.Details = ve.Violations
		}

		return http.StatusBadRequest, resp
	}

	e, ok := As(err)
	if !ok {
		return http.StatusInternalServerError, internal
	}

	if e.Transport {
		switch e.Code {
		case CodeTimeout:
			return http.StatusGatewayTimeout, ErrorResponse{Error: APIError{Code: "deadline_exceeded", Message: "upstream timeout"}}
		case CodeCanceled:
			return StatusClientClosedRequest, ErrorResponse{Error: APIError{Code: "canceled", Message: "canceled"}}
		default:
			return http.StatusBadGateway, ErrorResponse{Error: APIError{Code: "unavailable", Message: "upstream unavailable"}}
		}
	}

	status, code, msg := baseFromStatus(e.StatusCode)
	if status < http.StatusInternalServerError && e.Message != "" {
		msg = e.Message
	}

	return status, ErrorResponse{Error: APIError{
		Code:       code,
		Message:    msg,
		StatusCode: e.StatusCode,
	}}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// baseFromStatus — статус бэкенда -> статус шлюза/код/сообщение по умолчанию.
func baseFromStatus(s int) (int, string, string) {
	switch s {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return s, "invalid_argument", "invalid argument"
	case http.StatusUnauthorized:
		return s, "unauthenticated", "unauthenticated"
	case http.StatusForbidden:
		return s, "permission_denied", "permission denied"
	case http.StatusNotFound:
		return s, "not_found", "not found"
	case http.StatusConflict:
		return s, "already_exists", "already exists"
	case http.StatusPreconditionFailed:
		return s, "failed_precondition", "failed precondition"
	case http.StatusTooManyRequests:
		return s, "resource_exhausted", "resource exhausted"
	case http.StatusNotImplemented:
		return s, "unimplemented", "unimplemented"
	case http.StatusServiceUnavailable:
		return s, "unavailable", "service unavailable"
	case http.StatusGatewayTimeout:
		return s, "deadline_exceeded", "deadline exceeded"
	}

	if s >= 400 && s < 500 {
		return s, "invalid_argument", "request rejected"
	}

	return http.StatusInternalServerError, "internal", "internal error"
}
