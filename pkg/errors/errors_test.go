package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid query", fmt.Errorf("q: %w", ErrInvalidQuery), http.StatusBadRequest},
		{"index not ready", fmt.Errorf("owner x: %w", ErrIndexNotReady), http.StatusConflict},
		{"data source", fmt.Errorf("pg: %w", ErrDataSource), http.StatusServiceUnavailable},
		{"timeout", fmt.Errorf("fetch: %w", ErrTimeout), http.StatusServiceUnavailable},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
		{"app error status wins", New(ErrInternal, http.StatusTeapot, "odd"), http.StatusTeapot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusCode(tt.err); got != tt.want {
				t.Errorf("HTTPStatusCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	appErr := Newf(ErrInvalidQuery, http.StatusBadRequest, "limit %d out of range", 99)
	var target *AppError
	if !stderrors.As(appErr, &target) {
		t.Fatal("expected AppError")
	}
	if !stderrors.Is(appErr, ErrInvalidQuery) {
		t.Error("AppError should unwrap to its sentinel")
	}
}
