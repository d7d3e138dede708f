package lifecycle

import (
	"errors"
	"net/http"

	"orgmgr/pkg/tenants"
	"orgmgr/pkg/tokens"
)

var (
	ErrNotFound       = tenants.ErrNotFound
	ErrAlreadyExists  = tenants.ErrAlreadyExists
	ErrForbidden      = errors.New("forbidden")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidRequest = errors.New("invalid request")
	ErrBusy           = errors.New("operation in progress")
)

// Stable error codes exposed to callers.
const (
	CodeNotFound      = "not_found"
	CodeAlreadyExists = "already_exists"
	CodeForbidden     = "forbidden"
	CodeUnauthorized  = "unauthorized"
	CodeInvalid       = "invalid_request"
	CodeBusy          = "operation_in_progress"
	CodeInternal      = "internal_error"
	codeOK            = "ok"
)

// Code maps an error returned by the Manager to its stable code.
func Code(err error) string {
	switch {
	case err == nil:
		return codeOK
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrAlreadyExists):
		return CodeAlreadyExists
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrUnauthorized), errors.Is(err, tokens.ErrInvalidToken):
		return CodeUnauthorized
	case errors.Is(err, ErrInvalidRequest):
		return CodeInvalid
	case errors.Is(err, ErrBusy):
		return CodeBusy
	default:
		return CodeInternal
	}
}

// HTTPStatus maps an error to the status used by the HTTP adapter.
func HTTPStatus(err error) int {
	switch Code(err) {
	case codeOK:
		return http.StatusOK
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeBusy:
		return http.StatusConflict
	case CodeForbidden:
		return http.StatusForbidden
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
