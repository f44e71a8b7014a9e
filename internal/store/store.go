// Package store is the persistent chunk table backing the fulfillment
// pipeline's last-resort lookup: a (cx, cy)-keyed record surviving cache
// eviction and process restarts.
package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/briannalee/chunkgenerator-sub000/internal/world"
)

// Store wraps a pgx connection pool around the chunks table.
type Store struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	cx         INTEGER NOT NULL,
	cy         INTEGER NOT NULL,
	tiles      BYTEA NOT NULL,
	terrain    BYTEA,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (cx, cy)
);`

// Open connects to databaseURL and ensures the chunks table exists, retrying
// up to maxAttempts times with a 1s backoff before giving up. A database that
// never comes up is fatal to the process, matching spec.md's boot contract.
func Open(ctx context.Context, databaseURL string, maxAttempts int) (*Store, error) {
	var pool *pgxpool.Pool
	var err error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		pool, err = pgxpool.New(ctx, databaseURL)
		if err == nil {
			if pingErr := pool.Ping(ctx); pingErr == nil {
				break
			} else {
				err = pingErr
				pool.Close()
			}
		}
		log.Printf("store: connect attempt %d/%d failed: %v", attempt, maxAttempts, err)
		if attempt < maxAttempts {
			time.Sleep(time.Second)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("store: could not connect after %d attempts: %w", maxAttempts, err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ensure schema: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Get loads a chunk by coordinate, returning ok=false if no row exists.
func (s *Store) Get(ctx context.Context, key world.ChunkCoord) (*world.Chunk, bool, error) {
	var tiles []byte
	err := s.pool.QueryRow(ctx, `SELECT tiles FROM chunks WHERE cx = $1 AND cy = $2`, key.X, key.Y).Scan(&tiles)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("store get %s: %w", key, err)
	}
	chunk, err := world.Deserialize(tiles)
	if err != nil {
		return nil, false, fmt.Errorf("store deserialize %s: %w", key, err)
	}
	return chunk, true, nil
}

// Put upserts a chunk's serialized tile grid.
func (s *Store) Put(ctx context.Context, chunk *world.Chunk) error {
	data, err := world.Serialize(chunk)
	if err != nil {
		return fmt.Errorf("store serialize %s: %w", chunk.Key, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO chunks (cx, cy, tiles, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (cx, cy) DO UPDATE SET tiles = EXCLUDED.tiles`,
		chunk.Key.X, chunk.Key.Y, data)
	if err != nil {
		return fmt.Errorf("store put %s: %w", chunk.Key, err)
	}
	return nil
}

// Truncate empties the chunks table. Only ever called when DEBUG_MODE is
// enabled at boot.
func (s *Store) Truncate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE TABLE chunks`); err != nil {
		return fmt.Errorf("store truncate: %w", err)
	}
	log.Printf("store: truncated chunks table (debug mode)")
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
