// errors стандартизирует ошибки клиента GuanaVive и ответы шлюза.
//
// Клиентская сторона: любая неудача запроса к бэкенду приводится к *Error
// {message, statusCode, error?}. Если бэкенд прислал структурированное тело
// ошибки, оно пробрасывается как есть; иначе ошибка синтезируется из статуса
// ответа или из транспортной ошибки (statusCode 500).
//
// Сторона шлюза: ToHTTP/WriteError превращают ошибку в HTTP-статус и
// унифицированный JSON {"error":{...}}.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Коды транспортных ошибок (ответ от бэкенда не получен).
const (
	CodeTimeout  = "timeout"
	CodeCanceled = "canceled"
	CodeNetwork  = "network"
)

// Коды синтезированных HTTP-ошибок (тело ответа без структуры).
const (
	CodeBadRequest  = "bad_request"
	CodeBadResponse = "bad_response"
)

var (
	// ErrNoRefreshToken — в хранилище нет refresh-токена, обновлять сессию нечем.
	ErrNoRefreshToken = stderrors.New("refresh token is missing")
	// ErrSessionExpired — сессию восстановить не удалось, учётные данные очищены.
	ErrSessionExpired = stderrors.New("session expired")
	// ErrInvalidArgument — входные данные не прошли валидацию до отправки запроса.
	ErrInvalidArgument = stderrors.New("invalid argument")
)

// Error — нормализованная ошибка запроса к бэкенду.
type Error struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	Code       string `json:"error,omitempty"`

	// Transport — true, если ответ от бэкенда не был получен.
	Transport bool `json:"-"`

	cause error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (status %d, %s)", e.Message, e.StatusCode, e.Code)
	}

	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

func (e *Error) Unwrap() error { return e.cause }

// Unauthorized — бэкенд ответил 401.
func (e *Error) Unauthorized() bool {
	return e != nil && !e.Transport && e.StatusCode == http.StatusUnauthorized
}

// errorBody — структурированное тело ошибки бэкенда. Поле error бывает
// и строкой, и объектом, поэтому читается как json.RawMessage.
type errorBody struct {
	Message    *string         `json:"message"`
	StatusCode int             `json:"statusCode"`
	Error      json.RawMessage `json:"error"`
}

// FromResponse строит ошибку из неуспешного HTTP-ответа.
func FromResponse(status int, body []byte) *Error {
	var eb errorBody
	if len(body) > 0 && json.Unmarshal(body, &eb) == nil && eb.Message != nil {
		e := &Error{
			Message:    *eb.Message,
			StatusCode: eb.StatusCode,
		}
		if e.StatusCode == 0 {
			e.StatusCode = status
		}

		var code string
		if json.Unmarshal(eb.Error, &code) == nil {
			e.Code = code
		} else if len(eb.Error) > 0 && string(eb.Error) != "null" {
			e.Code = string(eb.Error)
		}

		return e
	}

	code := CodeBadRequest
	if status >= http.StatusInternalServerError {
		code = CodeBadResponse
	}

	return &Error{
		Message:    fmt.Sprintf("request failed with status code %d", status),
		StatusCode: status,
		Code:       code,
	}
}

// FromTransport строит ошибку для случая, когда ответа нет вовсе
// (таймаут, отмена, сеть). StatusCode всегда 500.
func FromTransport(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if stderrors.As(err, &e) {
		return e
	}

	return &Error{
		Message:    err.Error(),
		StatusCode: http.StatusInternalServerError,
		Code:       transportCode(err),
		Transport:  true,
		cause:      err,
	}
}

func transportCode(err error) string {
	if stderrors.Is(err, context.Canceled) {
		return CodeCanceled
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}

	var ne net.Error
	if stderrors.As(err, &ne) && ne.Timeout() {
		return CodeTimeout
	}

	return CodeNetwork
}

// As — удобная обёртка над errors.As для *Error.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}

	return nil, false
}

// Message — текст для показа пользователю: message нормализованной ошибки
// или fallback, если его нет.
func Message(err error, fallback string) string {
	if e, ok := As(err); ok && strings.TrimSpace(e.Message) != "" {
		return e.Message
	}

	return fallback
}
