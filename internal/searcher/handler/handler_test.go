package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/careconnect/unisearch/internal/index"
	"github.com/careconnect/unisearch/internal/searcher/engine"
	apperrors "github.com/careconnect/unisearch/pkg/errors"
)

type stubService struct {
	buildSummary index.BuildSummary
	buildErr     error
	searchResult *engine.SearchResult
	searchErr    error

	lastOwner string
	lastQuery string
	lastLimit int
}

func (s *stubService) Build(ctx context.Context, ownerID string) (index.BuildSummary, error) {
	s.lastOwner = ownerID
	return s.buildSummary, s.buildErr
}

func (s *stubService) Search(ctx context.Context, ownerID, query string, limit int) (*engine.SearchResult, error) {
	s.lastOwner = ownerID
	s.lastQuery = query
	s.lastLimit = limit
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.searchResult, nil
}

func newHandler(svc *stubService) *Handler {
	return New(svc, nil, nil, nil, nil, 10, 50)
}

func doSearch(h *Handler, owner, rawQuery string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?"+rawQuery, nil)
	if owner != "" {
		req.Header.Set("X-Owner-ID", owner)
	}
	rec := httptest.NewRecorder()
	h.Search(rec, req)
	return rec
}

func TestSearchMissingOwner(t *testing.T) {
	h := newHandler(&stubService{})
	rec := doSearch(h, "", "q=hello")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	h := newHandler(&stubService{})
	rec := doSearch(h, "u1", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSearchLimitValidation(t *testing.T) {
	tests := []struct {
		name       string
		rawQuery   string
		wantStatus int
		wantLimit  int
	}{
		{"default limit", "q=hello", http.StatusOK, 10},
		{"explicit limit", "q=hello&limit=5", http.StatusOK, 5},
		{"clamped to max", "q=hello&limit=500", http.StatusOK, 50},
		{"zero limit rejected", "q=hello&limit=0", http.StatusBadRequest, 0},
		{"negative limit rejected", "q=hello&limit=-3", http.StatusBadRequest, 0},
		{"non-numeric limit rejected", "q=hello&limit=abc", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{searchResult: &engine.SearchResult{Query: "hello", Results: []engine.Result{}}}
			h := newHandler(svc)
			rec := doSearch(h, "u1", tt.rawQuery)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && svc.lastLimit != tt.wantLimit {
				t.Errorf("limit passed to service = %d, want %d", svc.lastLimit, tt.wantLimit)
			}
		})
	}
}

func TestSearchErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"index not ready", fmt.Errorf("wrapped: %w", apperrors.ErrIndexNotReady), http.StatusConflict},
		{"data source down", fmt.Errorf("wrapped: %w", apperrors.ErrDataSource), http.StatusServiceUnavailable},
		{"invalid query", apperrors.New(apperrors.ErrInvalidQuery, http.StatusBadRequest, "bad"), http.StatusBadRequest},
		{"internal", fmt.Errorf("wrapped: %w", apperrors.ErrInternal), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandler(&stubService{searchErr: tt.err})
			rec := doSearch(h, "u1", "q=hello")
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestSearchHappyPath(t *testing.T) {
	svc := &stubService{searchResult: &engine.SearchResult{
		Query:     "groceries",
		TotalHits: 1,
		Results: []engine.Result{
			{ID: "t1", Type: "task", Title: "Buy groceries", URL: "/tasks/t1", Score: 1.3863},
		},
	}}
	h := newHandler(svc)

	rec := doSearch(h, "u1", "q=groceries&limit=10")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if svc.lastOwner != "u1" || svc.lastQuery != "groceries" {
		t.Errorf("service called with owner=%q query=%q", svc.lastOwner, svc.lastQuery)
	}

	var result engine.SearchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if result.TotalHits != 1 || len(result.Results) != 1 || result.Results[0].ID != "t1" {
		t.Errorf("response = %+v", result)
	}
}

func TestBuildEndpoint(t *testing.T) {
	svc := &stubService{buildSummary: index.BuildSummary{DocumentsIndexed: 7, DocumentsSkipped: 2}}
	h := newHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/index/build", nil)
	req.Header.Set("X-Owner-ID", "u1")
	rec := httptest.NewRecorder()
	h.Build(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body["documents_indexed"].(float64) != 7 || body["documents_skipped"].(float64) != 2 {
		t.Errorf("body = %v", body)
	}
}

func TestBuildEndpointErrors(t *testing.T) {
	t.Run("missing owner", func(t *testing.T) {
		h := newHandler(&stubService{})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/index/build", nil)
		rec := httptest.NewRecorder()
		h.Build(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})
	t.Run("datastore down", func(t *testing.T) {
		h := newHandler(&stubService{buildErr: fmt.Errorf("fetch: %w", apperrors.ErrDataSource)})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/index/build", nil)
		req.Header.Set("X-Owner-ID", "u1")
		rec := httptest.NewRecorder()
		h.Build(rec, req)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
	})
}

func TestCacheStatsDisabled(t *testing.T) {
	h := newHandler(&stubService{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil)
	rec := httptest.NewRecorder()
	h.CacheStats(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body["status"] != "disabled" {
		t.Errorf("body = %v, want disabled", body)
	}
}
