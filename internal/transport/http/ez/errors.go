package ez

import (
	"context"
	"errors"
	"net/http"

	"library-lending/internal/core/auth"
	"library-lending/internal/domain"
	"library-lending/internal/policy"
)

// AErr 携带 HTTP 映射的错误
type AErr struct {
	Code    int
	Msg     string
	Err     error
	Details map[string]string
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error   { return &AErr{Code: http.StatusBadRequest, Msg: msg} }
func Unauthorized(msg string) error { return &AErr{Code: http.StatusUnauthorized, Msg: msg} }
func Forbidden(msg string) error    { return &AErr{Code: http.StatusForbidden, Msg: msg} }
func NotFound(msg string) error     { return &AErr{Code: http.StatusNotFound, Msg: msg} }
func Conflict(msg string) error     { return &AErr{Code: http.StatusConflict, Msg: msg} }
func Internal(msg string, err error) error {
	return &AErr{Code: http.StatusInternalServerError, Msg: msg, Err: err}
}

// Invalid 绑定 / 校验失败
func Invalid(err error) error {
	return &AErr{Code: http.StatusBadRequest, Msg: "invalid payload", Err: err, Details: ToDetails(err)}
}

// FromError 领域错误 -> HTTP
func FromError(err error) *AErr {
	var ae *AErr
	if errors.As(err, &ae) {
		return ae
	}
	var denied *policy.DeniedError
	if errors.As(err, &denied) {
		if !denied.Authenticated {
			return &AErr{Code: http.StatusUnauthorized, Msg: denied.Error(), Err: err}
		}
		return &AErr{Code: http.StatusForbidden, Msg: denied.Error(), Err: err}
	}
	var dup *domain.DuplicateError
	if errors.As(err, &dup) {
		return &AErr{Code: http.StatusBadRequest, Msg: "invalid payload", Err: err, Details: map[string]string{dup.Field: "already exists"}}
	}

	switch {
	case domain.IsNotFound(err):
		return &AErr{Code: http.StatusNotFound, Msg: err.Error(), Err: err}
	case errors.Is(err, domain.ErrBookUnavailable), errors.Is(err, domain.ErrNoActiveLoan):
		return &AErr{Code: http.StatusBadRequest, Msg: err.Error(), Err: err}
	case errors.Is(err, domain.ErrInvalidCredential):
		return &AErr{Code: http.StatusBadRequest, Msg: err.Error(), Err: err}
	case errors.Is(err, domain.ErrHasLoans):
		return &AErr{Code: http.StatusConflict, Msg: err.Error(), Err: err}
	case errors.Is(err, domain.ErrInactiveAccount),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return &AErr{Code: http.StatusUnauthorized, Msg: err.Error(), Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &AErr{Code: http.StatusGatewayTimeout, Msg: "timeout", Err: err}
	}
	return &AErr{Code: http.StatusInternalServerError, Msg: "internal error", Err: err}
}
