// Package service owns the build→query lifecycle of the search core. It
// fetches an owner's documents through the adapter, builds an immutable
// index snapshot, and publishes it atomically: queries either see the
// previous complete snapshot or the new complete snapshot, never a partial
// build. Snapshots are cached per owner and evicted when the platform
// reports an entity mutation.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/careconnect/unisearch/internal/document"
	"github.com/careconnect/unisearch/internal/index"
	"github.com/careconnect/unisearch/internal/searcher/engine"
	apperrors "github.com/careconnect/unisearch/pkg/errors"
	"github.com/careconnect/unisearch/pkg/logger"
	"github.com/careconnect/unisearch/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// DocumentSource abstracts the Document Adapter for testability.
type DocumentSource interface {
	FetchDocuments(ctx context.Context, ownerID string) ([]document.Document, error)
}

// ownerIndex is one owner's published snapshot with its build metadata.
type ownerIndex struct {
	snap    *index.Snapshot
	version uint64
}

// Service is the process-scoped search service consumed by the API layer.
type Service struct {
	source  DocumentSource
	engine  *engine.Engine
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu        sync.RWMutex
	snapshots map[string]*ownerIndex
	closed    bool

	group singleflight.Group
}

// New creates a Service. metrics may be nil when metrics are disabled.
func New(source DocumentSource, eng *engine.Engine, m *metrics.Metrics) *Service {
	return &Service{
		source:    source,
		engine:    eng,
		metrics:   m,
		logger:    logger.WithComponent("search-service"),
		snapshots: make(map[string]*ownerIndex),
	}
}

// Build fetches the owner's documents, builds a fresh snapshot, and installs
// it as the owner's current index. Concurrent builds for the same owner are
// collapsed into one. A cancelled build is discarded, never installed.
func (s *Service) Build(ctx context.Context, ownerID string) (index.BuildSummary, error) {
	if ownerID == "" {
		return index.BuildSummary{}, apperrors.New(apperrors.ErrInvalidQuery,
			http.StatusBadRequest, "owner id must not be empty")
	}
	if s.isClosed() {
		return index.BuildSummary{}, fmt.Errorf("service closed: %w", apperrors.ErrInternal)
	}

	// Metrics are recorded inside the flight so a shared result counts as
	// one build, not one per caller.
	v, err, _ := s.group.Do(ownerID, func() (any, error) {
		start := time.Now()
		summary, err := s.build(ctx, ownerID)
		if err != nil {
			s.countBuild("error")
			return nil, err
		}
		s.countBuild("ok")
		if s.metrics != nil {
			s.metrics.IndexBuildDuration.Observe(time.Since(start).Seconds())
			s.metrics.DocsIndexedTotal.Add(float64(summary.DocumentsIndexed))
			s.metrics.DocsSkippedTotal.Add(float64(summary.DocumentsSkipped))
		}
		return summary, nil
	})
	if err != nil {
		return index.BuildSummary{}, err
	}
	return v.(index.BuildSummary), nil
}

func (s *Service) build(ctx context.Context, ownerID string) (index.BuildSummary, error) {
	docs, err := s.source.FetchDocuments(ctx, ownerID)
	if err != nil {
		return index.BuildSummary{}, fmt.Errorf("building index for owner %s: %w", ownerID, err)
	}
	if err := ctx.Err(); err != nil {
		// The caller went away mid-fetch; a half-finished build must not
		// be installed.
		return index.BuildSummary{}, fmt.Errorf("build cancelled for owner %s: %w", ownerID, err)
	}

	snap, summary := index.Build(docs)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return index.BuildSummary{}, fmt.Errorf("service closed: %w", apperrors.ErrInternal)
	}
	var version uint64 = 1
	if prev, ok := s.snapshots[ownerID]; ok {
		version = prev.version + 1
	}
	s.snapshots[ownerID] = &ownerIndex{snap: snap, version: version}
	total := len(s.snapshots)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.LiveSnapshots.Set(float64(total))
	}
	s.logger.Info("index built",
		"owner_id", ownerID,
		"version", version,
		"documents", summary.DocumentsIndexed,
		"skipped", summary.DocumentsSkipped,
	)
	return summary, nil
}

// Search answers a ranked query against the owner's current snapshot. It
// fails with ErrIndexNotReady when no successful build has been published
// for the owner.
func (s *Service) Search(ctx context.Context, ownerID, query string, limit int) (*engine.SearchResult, error) {
	if s.isClosed() {
		return nil, fmt.Errorf("service closed: %w", apperrors.ErrInternal)
	}
	s.mu.RLock()
	owner, ok := s.snapshots[ownerID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no index for owner %s, call build first: %w",
			ownerID, apperrors.ErrIndexNotReady)
	}
	return s.engine.Search(owner.snap, ownerID, query, limit)
}

// Invalidate drops the owner's snapshot so the next search rebuilds against
// fresh data. It reports whether a snapshot was present.
func (s *Service) Invalidate(ownerID string) bool {
	s.mu.Lock()
	_, ok := s.snapshots[ownerID]
	delete(s.snapshots, ownerID)
	total := len(s.snapshots)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.LiveSnapshots.Set(float64(total))
	}
	if ok {
		s.logger.Info("snapshot invalidated", "owner_id", ownerID)
	}
	return ok
}

// Version returns the owner's current snapshot version, or false when no
// snapshot is published.
func (s *Service) Version(ownerID string) (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owner, ok := s.snapshots[ownerID]
	if !ok {
		return 0, false
	}
	return owner.version, true
}

// SnapshotCount returns the number of owners with a published snapshot.
func (s *Service) SnapshotCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}

// Close releases all snapshots. Build and Search fail after Close.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.snapshots = make(map[string]*ownerIndex)
	return nil
}

func (s *Service) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Service) countBuild(status string) {
	if s.metrics != nil {
		s.metrics.IndexBuildsTotal.WithLabelValues(status).Inc()
	}
}
