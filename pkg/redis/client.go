// Package redis wraps go-redis/v9 for the query-result cache: get/set with a
// TTL, and glob-pattern invalidation for evicting one owner's entries.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/careconnect/unisearch/pkg/config"
	"github.com/redis/go-redis/v9"
)

// deleteChunk caps how many keys a single DEL carries during pattern
// invalidation.
const deleteChunk = 200

// Client wraps a pooled go-redis client.
type Client struct {
	rdb *redis.Client
}

// NewClient connects to Redis and verifies the connection with a PING.
func NewClient(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

// Get returns the string value stored at key. Absent keys surface as an
// error satisfying IsNilError.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.rdb.Get(ctx, key).Result()
}

// Set stores a value under key with the given TTL.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// FlushByPattern deletes every key matching the glob pattern and returns how
// many were removed. Keys are scanned incrementally and deleted in chunks so
// a large owner cache never turns into one giant command.
func (c *Client) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	var deleted int64
	chunk := make([]string, 0, deleteChunk)

	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		n, err := c.rdb.Del(ctx, chunk...).Result()
		deleted += n
		chunk = chunk[:0]
		return err
	}

	iter := c.rdb.Scan(ctx, 0, pattern, deleteChunk).Iterator()
	for iter.Next(ctx) {
		chunk = append(chunk, iter.Val())
		if len(chunk) == deleteChunk {
			if err := flush(); err != nil {
				return deleted, fmt.Errorf("deleting keys for pattern %s: %w", pattern, err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("scanning pattern %s: %w", pattern, err)
	}
	if err := flush(); err != nil {
		return deleted, fmt.Errorf("deleting keys for pattern %s: %w", pattern, err)
	}
	return deleted, nil
}

// IsNilError reports whether err means the key does not exist.
func IsNilError(err error) bool {
	return errors.Is(err, redis.Nil)
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping probes the connection, for health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
