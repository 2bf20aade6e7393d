// Package cache is the redis-backed query-result cache. Keys are scoped by
// owner so invalidation after an entity mutation only evicts that owner's
// entries, and are derived from the query's normalized terms so
// "Alpha review" and "ALPHA!! review" share one entry.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/careconnect/unisearch/internal/searcher/engine"
	"github.com/careconnect/unisearch/internal/tokenizer"
	"github.com/careconnect/unisearch/pkg/config"
	"github.com/careconnect/unisearch/pkg/logger"
	pkgredis "github.com/careconnect/unisearch/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "search:"

type QueryCache struct {
	client *pkgredis.Client
	cfg    config.RedisConfig
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

func New(client *pkgredis.Client, cfg config.RedisConfig) *QueryCache {
	return &QueryCache{
		client: client,
		cfg:    cfg,
		logger: logger.WithComponent("query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, ownerID, query string, limit int) (*engine.SearchResult, bool) {
	key := c.buildKey(ownerID, query, limit)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if pkgredis.IsNilError(err) {
			c.misses.Add(1)
			return nil, false
		}
		c.logger.Error("cache get failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	var result engine.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "owner_id", ownerID, "key", key)
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, ownerID, query string, limit int, result *engine.SearchResult) {
	key := c.buildKey(ownerID, query, limit)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result or computes and stores it, with
// concurrent identical requests collapsed into one computation.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	ownerID, query string,
	limit int,
	computeFn func() (*engine.SearchResult, error),
) (*engine.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, ownerID, query, limit); ok {
		return result, true, nil
	}
	key := c.buildKey(ownerID, query, limit)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if result, ok := c.Get(ctx, ownerID, query, limit); ok {
			return result, nil
		}
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, ownerID, query, limit, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*engine.SearchResult), false, nil
}

// InvalidateOwner deletes every cached query result belonging to the owner.
func (c *QueryCache) InvalidateOwner(ctx context.Context, ownerID string) error {
	pattern := keyPrefix + ownerKey(ownerID) + ":*"
	deleted, err := c.client.FlushByPattern(ctx, pattern)
	if err != nil {
		return fmt.Errorf("invalidating cache for owner %s: %w", ownerID, err)
	}
	c.logger.Info("owner cache invalidated", "owner_id", ownerID, "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) buildKey(ownerID, query string, limit int) string {
	raw := fmt.Sprintf("%s:limit=%d", normalizeQuery(query), limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%s:%x", keyPrefix, ownerKey(ownerID), hash[:16])
}

// ownerKey hashes the owner id so arbitrary identifiers stay glob-safe.
func ownerKey(ownerID string) string {
	hash := sha256.Sum256([]byte(ownerID))
	return fmt.Sprintf("%x", hash[:8])
}

// normalizeQuery reduces a query to its sorted unique terms, using the same
// tokenizer as the index so equivalent queries share a cache entry.
func normalizeQuery(query string) string {
	terms := tokenizer.Tokenize(query)
	seen := make(map[string]struct{}, len(terms))
	unique := make([]string, 0, len(terms))
	for _, term := range terms {
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		unique = append(unique, term)
	}
	sort.Strings(unique)
	return strings.Join(unique, ",")
}
