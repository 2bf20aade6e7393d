// Package engine executes ranked keyword queries against an index snapshot.
// Query execution is read-only: it never mutates the snapshot it is given.
package engine

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"sort"
	"strings"

	"github.com/careconnect/unisearch/internal/index"
	"github.com/careconnect/unisearch/internal/searcher/scorer"
	"github.com/careconnect/unisearch/internal/tokenizer"
	apperrors "github.com/careconnect/unisearch/pkg/errors"
	"github.com/careconnect/unisearch/pkg/logger"
)

// Result is one ranked search hit.
type Result struct {
	ID    string  `json:"id"`
	Type  string  `json:"type"`
	Title string  `json:"title"`
	URL   string  `json:"url,omitempty"`
	Score float64 `json:"score"`
}

// SearchResult is the full response for one query.
type SearchResult struct {
	Query     string   `json:"query"`
	TotalHits int      `json:"total_hits"`
	Results   []Result `json:"results"`
}

// Engine turns a query string into ranked results against a snapshot.
type Engine struct {
	weights     scorer.Weights
	maxQueryLen int
	logger      *slog.Logger
}

// New creates an Engine. maxQueryLen bounds tokenization cost for
// pathologically long input; values <= 0 fall back to 1024.
func New(weights scorer.Weights, maxQueryLen int) *Engine {
	if maxQueryLen <= 0 {
		maxQueryLen = 1024
	}
	return &Engine{
		weights:     weights,
		maxQueryLen: maxQueryLen,
		logger:      logger.WithComponent("query-engine"),
	}
}

// Search tokenizes the query with the same tokenizer used at index time,
// unions candidate documents across all terms, filters them to ownerID,
// scores, sorts, and truncates to limit. A query that tokenizes to zero
// terms yields an empty result, not an error.
func (e *Engine) Search(snap *index.Snapshot, ownerID, query string, limit int) (*SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.New(apperrors.ErrInvalidQuery, http.StatusBadRequest, "query must not be empty")
	}
	if len(query) > e.maxQueryLen {
		return nil, apperrors.Newf(apperrors.ErrInvalidQuery, http.StatusBadRequest,
			"query exceeds maximum length of %d", e.maxQueryLen)
	}
	if limit < 1 {
		return nil, apperrors.Newf(apperrors.ErrInvalidQuery, http.StatusBadRequest, "limit must be >= 1, got %d", limit)
	}
	if snap == nil {
		return nil, fmt.Errorf("no snapshot: %w", apperrors.ErrIndexNotReady)
	}

	terms := uniqueTerms(tokenizer.Tokenize(query))
	if len(terms) == 0 {
		return &SearchResult{Query: query, Results: []Result{}}, nil
	}

	// Union of candidates across terms; a term absent from the index
	// contributes nothing.
	matchesByDoc := make(map[string][]scorer.Match)
	for _, term := range terms {
		docFreq := snap.DocFreq(term)
		for _, posting := range snap.Postings(term) {
			matchesByDoc[posting.DocID] = append(matchesByDoc[posting.DocID], scorer.Match{
				Term:      term,
				Field:     posting.Field,
				Frequency: posting.Frequency,
				DocFreq:   docFreq,
			})
		}
	}

	type ranked struct {
		meta  index.DocMeta
		score float64
	}
	candidates := make([]ranked, 0, len(matchesByDoc))
	for docID, matches := range matchesByDoc {
		meta, ok := snap.Doc(docID)
		if !ok || meta.OwnerID != ownerID {
			continue
		}
		score := scorer.Score(e.weights, snap.DocCount(), matches)
		candidates = append(candidates, ranked{
			meta:  meta,
			score: math.Round(score*10000) / 10000,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if !candidates[i].meta.UpdatedAt.Equal(candidates[j].meta.UpdatedAt) {
			return candidates[i].meta.UpdatedAt.After(candidates[j].meta.UpdatedAt)
		}
		return candidates[i].meta.ID < candidates[j].meta.ID
	})

	totalHits := len(candidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, Result{
			ID:    c.meta.ID,
			Type:  string(c.meta.Kind),
			Title: c.meta.Title,
			URL:   c.meta.URL,
			Score: c.score,
		})
	}

	e.logger.Debug("query executed",
		"terms", terms,
		"candidates", totalHits,
		"returned", len(results),
	)
	return &SearchResult{
		Query:     query,
		TotalHits: totalHits,
		Results:   results,
	}, nil
}

// Terms exposes the engine's view of a query's normalized terms, for
// analytics and cache keys.
func (e *Engine) Terms(query string) []string {
	return uniqueTerms(tokenizer.Tokenize(query))
}

func uniqueTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	unique := make([]string, 0, len(terms))
	for _, term := range terms {
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		unique = append(unique, term)
	}
	return unique
}
