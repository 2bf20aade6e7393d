// Package handler is the HTTP surface of the search service. Authentication
// happens upstream: the gateway resolves the caller's session and forwards
// the owner identity in the X-Owner-ID header, which this handler trusts.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/careconnect/unisearch/internal/events"
	"github.com/careconnect/unisearch/internal/index"
	"github.com/careconnect/unisearch/internal/searcher/cache"
	"github.com/careconnect/unisearch/internal/searcher/engine"
	apperrors "github.com/careconnect/unisearch/pkg/errors"
	"github.com/careconnect/unisearch/pkg/logger"
	"github.com/careconnect/unisearch/pkg/metrics"
)

const ownerHeader = "X-Owner-ID"

// SearchService is the service contract the handler depends on.
type SearchService interface {
	Build(ctx context.Context, ownerID string) (index.BuildSummary, error)
	Search(ctx context.Context, ownerID, query string, limit int) (*engine.SearchResult, error)
}

// TermSource exposes query-term extraction for analytics events.
type TermSource interface {
	Terms(query string) []string
}

type Handler struct {
	service      SearchService
	terms        TermSource
	cache        *cache.QueryCache
	collector    *events.Collector
	metrics      *metrics.Metrics
	defaultLimit int
	maxLimit     int
	logger       *slog.Logger
}

// New creates a Handler. cache, collector, and metrics may be nil when the
// corresponding dependency is disabled.
func New(svc SearchService, terms TermSource, queryCache *cache.QueryCache,
	collector *events.Collector, m *metrics.Metrics, defaultLimit, maxLimit int) *Handler {
	return &Handler{
		service:      svc,
		terms:        terms,
		cache:        queryCache,
		collector:    collector,
		metrics:      m,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		logger:       logger.WithComponent("search-handler"),
	}
}

// Build handles POST /api/v1/index/build.
func (h *Handler) Build(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	ownerID, ok := h.ownerID(w, r)
	if !ok {
		return
	}

	summary, err := h.service.Build(ctx, ownerID)
	if err != nil {
		log.Error("index build failed", "owner_id", ownerID, "error", err)
		h.writeError(w, err)
		return
	}

	latencyMs := time.Since(start).Milliseconds()
	log.Info("index build completed",
		"owner_id", ownerID,
		"documents_indexed", summary.DocumentsIndexed,
		"documents_skipped", summary.DocumentsSkipped,
		"latency_ms", latencyMs,
	)
	if h.collector != nil {
		h.collector.TrackBuild(events.BuildEvent{
			Type:             events.EventIndexBuild,
			OwnerID:          ownerID,
			DocumentsIndexed: summary.DocumentsIndexed,
			DocumentsSkipped: summary.DocumentsSkipped,
			LatencyMs:        latencyMs,
			Timestamp:        time.Now().UTC(),
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"documents_indexed": summary.DocumentsIndexed,
		"documents_skipped": summary.DocumentsSkipped,
		"build_ms":          latencyMs,
	})
}

// Search handles GET /api/v1/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	ownerID, ok := h.ownerID(w, r)
	if !ok {
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		h.countQuery("invalid")
		h.writeError(w, apperrors.New(apperrors.ErrInvalidQuery,
			http.StatusBadRequest, "query parameter 'q' is required"))
		return
	}

	limit := h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.countQuery("invalid")
			h.writeError(w, apperrors.New(apperrors.ErrInvalidQuery,
				http.StatusBadRequest, "limit must be a positive integer"))
			return
		}
		// Out-of-range limits clamp to the boundary maximum rather than
		// failing, documented at the API boundary.
		if parsed > h.maxLimit {
			parsed = h.maxLimit
		}
		limit = parsed
	}

	var result *engine.SearchResult
	var err error
	cacheHit := false

	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, ownerID, query, limit, func() (*engine.SearchResult, error) {
			return h.service.Search(ctx, ownerID, query, limit)
		})
	} else {
		result, err = h.service.Search(ctx, ownerID, query, limit)
	}

	if err != nil {
		h.countQuery("error")
		log.Error("search failed", "owner_id", ownerID, "query", query, "error", err)
		h.writeError(w, err)
		return
	}

	latencyMs := time.Since(start).Milliseconds()
	outcome := "ok"
	if len(result.Results) == 0 {
		outcome = "zero_result"
	}
	h.countQuery(outcome)
	if h.metrics != nil {
		cacheStatus := "miss"
		if cacheHit {
			cacheStatus = "hit"
			h.metrics.CacheHitsTotal.Inc()
		} else {
			h.metrics.CacheMissesTotal.Inc()
		}
		h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())
		h.metrics.SearchResultsCount.Observe(float64(len(result.Results)))
	}

	log.Info("search completed",
		"owner_id", ownerID,
		"query", query,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", latencyMs,
	)
	if h.collector != nil {
		eventType := events.EventSearch
		if len(result.Results) == 0 {
			eventType = events.EventZeroResult
		}
		var terms []string
		if h.terms != nil {
			terms = h.terms.Terms(query)
		}
		h.collector.TrackSearch(events.SearchEvent{
			Type:      eventType,
			OwnerID:   ownerID,
			Query:     query,
			Terms:     terms,
			TotalHits: result.TotalHits,
			Returned:  len(result.Results),
			LatencyMs: latencyMs,
			CacheHit:  cacheHit,
			Timestamp: time.Now().UTC(),
			RequestID: w.Header().Get("X-Request-ID"),
		})
	}

	h.writeJSON(w, http.StatusOK, result)
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

// CacheInvalidate handles POST /api/v1/cache/invalidate for the calling
// owner.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, apperrors.New(apperrors.ErrInternal,
			http.StatusServiceUnavailable, "caching is disabled"))
		return
	}
	ownerID, ok := h.ownerID(w, r)
	if !ok {
		return
	}

	if err := h.cache.InvalidateOwner(r.Context(), ownerID); err != nil {
		h.logger.Error("cache invalidation failed", "owner_id", ownerID, "error", err)
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

// ownerID extracts the authenticated owner identity forwarded by the
// gateway. Requests without one are rejected.
func (h *Handler) ownerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	ownerID := r.Header.Get(ownerHeader)
	if ownerID == "" {
		h.writeError(w, apperrors.New(apperrors.ErrUnauthorized,
			http.StatusUnauthorized, "missing "+ownerHeader+" header"))
		return "", false
	}
	return ownerID, true
}

func (h *Handler) countQuery(outcome string) {
	if h.metrics != nil {
		h.metrics.SearchQueriesTotal.WithLabelValues(outcome).Inc()
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}
