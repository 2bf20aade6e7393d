// Package errors defines the error taxonomy of the search core and its
// mapping to HTTP status codes at the API boundary. Callers distinguish the
// kinds with errors.Is: ErrDataSource is retryable, ErrInvalidQuery means
// fix the request, ErrIndexNotReady means build the index first.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrDataSource    = errors.New("data source unavailable")
	ErrIndexBuild    = errors.New("index build failed")
	ErrIndexNotReady = errors.New("index not ready")
	ErrInvalidQuery  = errors.New("invalid query")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInternal      = errors.New("internal error")
	ErrTimeout       = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// HTTPStatusCode resolves err to a stable status so clients can tell
// "try again" from "fix your request" from "call build first".
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrIndexNotReady):
		return http.StatusConflict
	case errors.Is(err, ErrDataSource), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
