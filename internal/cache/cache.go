// Package cache wraps Redis as the durable, TTL-bounded second tier of the
// chunk fulfillment pipeline: faster than the persistent store, but never
// the source of truth. Callers delete on write; they never repopulate the
// cache from an in-memory value, so Redis and the store can never diverge
// silently.
package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/briannalee/chunkgenerator-sub000/internal/world"
)

// Cache is a thin, typed wrapper over a Redis client.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to redisURL (a redis:// URL) and returns a Cache with the
// given chunk TTL in seconds.
func New(redisURL string, db int, ttlSeconds int64) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if db != 0 {
		opts.DB = db
	}
	client := redis.NewClient(opts)
	return &Cache{client: client, ttl: time.Duration(ttlSeconds) * time.Second}, nil
}

func chunkKey(key world.ChunkCoord) string {
	return fmt.Sprintf("chunk:%d:%d", key.X, key.Y)
}

// Get returns the cached chunk, or ok=false on a cache miss.
func (c *Cache) Get(ctx context.Context, key world.ChunkCoord) (*world.Chunk, bool, error) {
	data, err := c.client.Get(ctx, chunkKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	chunk, err := world.Deserialize(data)
	if err != nil {
		return nil, false, fmt.Errorf("cache deserialize %s: %w", key, err)
	}
	return chunk, true, nil
}

// Put writes chunk into the cache with the configured TTL.
func (c *Cache) Put(ctx context.Context, chunk *world.Chunk) error {
	data, err := world.Serialize(chunk)
	if err != nil {
		return fmt.Errorf("cache serialize %s: %w", chunk.Key, err)
	}
	if err := c.client.Set(ctx, chunkKey(chunk.Key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", chunk.Key, err)
	}
	return nil
}

// Invalidate deletes a chunk from the cache. Writers call this instead of
// repopulating the cache: the next reader regenerates the entry from the
// store, keeping cache and store from ever disagreeing.
func (c *Cache) Invalidate(ctx context.Context, key world.ChunkCoord) error {
	if err := c.client.Del(ctx, chunkKey(key)).Err(); err != nil {
		return fmt.Errorf("cache invalidate %s: %w", key, err)
	}
	return nil
}

// PurgeAll removes every chunk key from the cache. Only ever called when
// DEBUG_MODE is enabled, matching spec.md's debug reset contract.
func (c *Cache) PurgeAll(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, "chunk:*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache purge: %w", err)
	}
	log.Printf("cache: purged %d chunk keys (debug mode)", len(keys))
	return nil
}

// Close releases the underlying Redis connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}
