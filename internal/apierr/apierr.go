package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeInvalidRequest = "invalid_request"
	CodeStoreError     = "store_error"
	CodeForbidden      = "forbidden"
	CodeNotFound       = "not_found"
	CodeUnauthorized   = "unauthorized"
	CodeConflict       = "conflict"
	CodeLimitReached   = "limit_reached"
	CodeUpstreamFetch  = "upstream_fetch"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func Validation(err error) *Error {
	return New(http.StatusBadRequest, CodeInvalidRequest, err)
}

func Upstream(err error) *Error {
	return New(http.StatusInternalServerError, CodeStoreError, err)
}

func Forbidden(err error) *Error {
	return New(http.StatusForbidden, CodeForbidden, err)
}

func NotFound(err error) *Error {
	return New(http.StatusNotFound, CodeNotFound, err)
}

func Unauthorized(err error) *Error {
	return New(http.StatusUnauthorized, CodeUnauthorized, err)
}

func Conflict(err error) *Error {
	return New(http.StatusConflict, CodeConflict, err)
}

func Unprocessable(err error) *Error {
	return New(http.StatusUnprocessableEntity, CodeLimitReached, err)
}

func BadGateway(err error) *Error {
	return New(http.StatusBadGateway, CodeUpstreamFetch, err)
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// StatusOf returns the HTTP status carried by err, or 500.
func StatusOf(err error) int {
	if apiErr, ok := As(err); ok && apiErr.Status != 0 {
		return apiErr.Status
	}
	return http.StatusInternalServerError
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code string) bool {
	apiErr, ok := As(err)
	return ok && apiErr.Code == code
}
