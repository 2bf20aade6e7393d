// Package resilience bounds calls into external dependencies.
package resilience

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/careconnect/unisearch/pkg/errors"
)

// WithTimeout runs op under a deadline derived from ctx. Expiry surfaces as
// ErrTimeout so the API boundary maps it to a retryable status; cancellation
// of the parent context is passed through untouched. A non-positive limit
// disables the deadline.
func WithTimeout(ctx context.Context, limit time.Duration, op string, fn func(ctx context.Context) error) error {
	if limit <= 0 {
		return fn(ctx)
	}
	opCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		errc <- fn(opCtx)
	}()

	select {
	case err := <-errc:
		return err
	case <-opCtx.Done():
		if ctx.Err() != nil {
			return fmt.Errorf("%s interrupted: %w", op, ctx.Err())
		}
		return fmt.Errorf("%s exceeded %v: %w", op, limit, apperrors.ErrTimeout)
	}
}
