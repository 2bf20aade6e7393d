package service

import (
	"context"
	"time"

	"github.com/careconnect/unisearch/internal/searcher/cache"
	"github.com/careconnect/unisearch/pkg/kafka"
	"github.com/careconnect/unisearch/pkg/logger"
)

// EntityChangeEvent is published by the platform's CRUD layer whenever an
// owner's record is created, updated, or deleted.
type EntityChangeEvent struct {
	OwnerID    string    `json:"owner_id"`
	EntityKind string    `json:"entity_kind"`
	EntityID   string    `json:"entity_id"`
	Action     string    `json:"action"`
	Timestamp  time.Time `json:"timestamp"`
}

// HandleEntityChange returns a Kafka message handler that evicts the
// affected owner's index snapshot and cached query results. queryCache may
// be nil when caching is disabled.
func HandleEntityChange(svc *Service, queryCache *cache.QueryCache) kafka.MessageHandler {
	log := logger.WithComponent("index-invalidator")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[EntityChangeEvent](value)
		if err != nil {
			// A malformed event is dropped, not redelivered forever.
			log.Error("dropping undecodable entity change event", "error", err)
			return nil
		}
		if event.OwnerID == "" {
			log.Warn("entity change event without owner id", "key", string(key))
			return nil
		}

		evicted := svc.Invalidate(event.OwnerID)
		if queryCache != nil {
			if err := queryCache.InvalidateOwner(ctx, event.OwnerID); err != nil {
				log.Error("query cache invalidation failed",
					"owner_id", event.OwnerID,
					"error", err,
				)
			}
		}
		log.Debug("entity change processed",
			"owner_id", event.OwnerID,
			"entity_kind", event.EntityKind,
			"action", event.Action,
			"snapshot_evicted", evicted,
		)
		return nil
	}
}
