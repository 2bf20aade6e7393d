// Package events emits search analytics events to the platform's Kafka
// pipeline. Events are batched in memory and flushed in bulk; the rest of
// the platform consumes them downstream, nothing in this service reads
// them back.
package events

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventZeroResult EventType = "zero_result"
	EventIndexBuild EventType = "index_build"
)

// SearchEvent describes one executed search.
type SearchEvent struct {
	Type      EventType `json:"type"`
	OwnerID   string    `json:"owner_id"`
	Query     string    `json:"query"`
	Terms     []string  `json:"terms"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// BuildEvent describes one index build.
type BuildEvent struct {
	Type             EventType `json:"type"`
	OwnerID          string    `json:"owner_id"`
	DocumentsIndexed int       `json:"documents_indexed"`
	DocumentsSkipped int       `json:"documents_skipped"`
	LatencyMs        int64     `json:"latency_ms"`
	Timestamp        time.Time `json:"timestamp"`
}
