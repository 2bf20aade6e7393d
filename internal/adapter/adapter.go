// Package adapter reads raw entity records from the platform datastore and
// projects them into the uniform Document shape. One Source exists per
// entity kind; a failing kind is logged and skipped so the others can still
// be indexed.
package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/careconnect/unisearch/internal/document"
	apperrors "github.com/careconnect/unisearch/pkg/errors"
	"github.com/careconnect/unisearch/pkg/logger"
	"github.com/careconnect/unisearch/pkg/resilience"
)

// Source fetches one entity kind's records for an owner.
type Source interface {
	Kind() document.Kind
	Fetch(ctx context.Context, ownerID string) ([]document.Document, error)
}

// Adapter fans out to all registered sources and returns the union of the
// documents they produce.
type Adapter struct {
	sources      []Source
	fetchTimeout time.Duration
	logger       *slog.Logger
}

// New creates an Adapter. fetchTimeout bounds each per-kind fetch; the whole
// request fails with ErrDataSource when every kind times out or errors.
func New(fetchTimeout time.Duration, sources ...Source) *Adapter {
	return &Adapter{
		sources:      sources,
		fetchTimeout: fetchTimeout,
		logger:       logger.WithComponent("document-adapter"),
	}
}

// FetchDocuments returns all of the owner's searchable documents across every
// entity kind. A partial failure of one kind does not abort the others; only
// when no kind succeeds does the fetch fail with ErrDataSource.
func (a *Adapter) FetchDocuments(ctx context.Context, ownerID string) ([]document.Document, error) {
	if len(a.sources) == 0 {
		return nil, fmt.Errorf("no sources configured: %w", apperrors.ErrDataSource)
	}

	var docs []document.Document
	var lastErr error
	failed := 0
	for _, src := range a.sources {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fetch cancelled: %w: %w", apperrors.ErrDataSource, err)
		}
		var fetched []document.Document
		err := resilience.WithTimeout(ctx, a.fetchTimeout, string(src.Kind())+"-fetch", func(ctx context.Context) error {
			var fetchErr error
			fetched, fetchErr = src.Fetch(ctx, ownerID)
			return fetchErr
		})
		if err != nil {
			a.logger.Warn("entity kind fetch failed, continuing with remaining kinds",
				"kind", src.Kind(),
				"owner_id", ownerID,
				"error", err,
			)
			failed++
			lastErr = err
			continue
		}
		docs = append(docs, fetched...)
	}

	if failed == len(a.sources) {
		return nil, fmt.Errorf("all %d entity kinds failed for owner %s: %w: %w",
			failed, ownerID, apperrors.ErrDataSource, lastErr)
	}
	if failed > 0 {
		a.logger.Warn("partial fetch",
			"owner_id", ownerID,
			"kinds_failed", failed,
			"documents", len(docs),
		)
	}
	return docs, nil
}
