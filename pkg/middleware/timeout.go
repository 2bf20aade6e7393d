package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/careconnect/unisearch/pkg/logger"
)

// Timeout cancels the request context after the configured duration and
// answers 504 when the handler has not produced any output by then. Handlers
// observe the cancellation through r.Context().
func Timeout(limit time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), limit)
			defer cancel()
			r = r.WithContext(ctx)

			dw := &deadlineWriter{ResponseWriter: w}
			done := make(chan struct{})
			go func() {
				defer close(done)
				next.ServeHTTP(dw, r)
			}()

			select {
			case <-done:
			case <-ctx.Done():
				if dw.wrote() {
					return
				}
				logger.FromContext(ctx).Warn("request deadline exceeded",
					"method", r.Method,
					"path", r.URL.Path,
					"limit", limit,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusGatewayTimeout)
				w.Write([]byte(`{"error":"request timed out"}`))
			}
		})
	}
}

// deadlineWriter records whether the wrapped handler produced output, so the
// timeout path never writes a second response onto the same connection.
type deadlineWriter struct {
	http.ResponseWriter
	mu      sync.Mutex
	written bool
}

func (dw *deadlineWriter) WriteHeader(code int) {
	dw.mu.Lock()
	dw.written = true
	dw.mu.Unlock()
	dw.ResponseWriter.WriteHeader(code)
}

func (dw *deadlineWriter) Write(b []byte) (int, error) {
	dw.mu.Lock()
	dw.written = true
	dw.mu.Unlock()
	return dw.ResponseWriter.Write(b)
}

func (dw *deadlineWriter) wrote() bool {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	return dw.written
}
