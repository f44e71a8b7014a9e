// Package orchestrator sequences the chunk fulfillment pipeline: in-flight
// request dedup, durable cache, persistent store, and finally worker
// dispatch. Every call carries an implicit deadline swept by a background
// loop, matching spec.md's 15s-deadline contract.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/briannalee/chunkgenerator-sub000/internal/workerpool"
	"github.com/briannalee/chunkgenerator-sub000/internal/world"
)

const requestTimeout = 15 * time.Second
const sweepInterval = 5 * time.Second

// chunkCache is the subset of *cache.Cache the orchestrator needs. A narrow
// interface lets tests substitute an in-memory fake instead of a real Redis
// connection.
type chunkCache interface {
	Get(ctx context.Context, key world.ChunkCoord) (*world.Chunk, bool, error)
	Put(ctx context.Context, chunk *world.Chunk) error
	Invalidate(ctx context.Context, key world.ChunkCoord) error
}

// chunkStore is the subset of *store.Store the orchestrator needs.
type chunkStore interface {
	Get(ctx context.Context, key world.ChunkCoord) (*world.Chunk, bool, error)
	Put(ctx context.Context, chunk *world.Chunk) error
}

// generatorPool is the subset of *workerpool.Pool the orchestrator needs.
type generatorPool interface {
	Dispatch(ctx context.Context, cx, cy int, mode workerpool.Mode) (*world.Chunk, error)
	PurgeLRUs(key world.ChunkCoord)
}

// invalidationPublisher is the subset of *hub.Hub the orchestrator needs.
type invalidationPublisher interface {
	PublishChunkInvalidate(ctx context.Context, key world.ChunkCoord)
}

// pendingRequest tracks one in-flight generation, so concurrent callers for
// the same chunk observe exactly one piece of work.
type pendingRequest struct {
	done      chan struct{}
	chunk     *world.Chunk
	err       error
	startedAt time.Time
}

// Orchestrator is the fulfillment pipeline described in spec.md section 4.E.
type Orchestrator struct {
	cache chunkCache
	store chunkStore
	pool  generatorPool
	hub   invalidationPublisher

	mu      sync.Mutex
	pending map[world.ChunkCoord]*pendingRequest
}

// New wires the pipeline's four tiers together. c, s, and h may be nil;
// pool must not be.
func New(c chunkCache, s chunkStore, pool generatorPool, h invalidationPublisher) *Orchestrator {
	return &Orchestrator{
		cache:   c,
		store:   s,
		pool:    pool,
		hub:     h,
		pending: make(map[world.ChunkCoord]*pendingRequest),
	}
}

// RunSweeper periodically fails pending requests that have outlived the
// 15s deadline, until ctx is cancelled. Call this once at startup.
func (o *Orchestrator) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.sweep()
		}
	}
}

func (o *Orchestrator) sweep() {
	now := time.Now()
	o.mu.Lock()
	defer o.mu.Unlock()
	for key, req := range o.pending {
		select {
		case <-req.done:
			delete(o.pending, key)
		default:
			if now.Sub(req.startedAt) > requestTimeout {
				req.err = fmt.Errorf("orchestrator: generation timeout for %s", key)
				close(req.done)
				delete(o.pending, key)
				log.Printf("orchestrator: swept timed-out request for chunk %s", key)
			}
		}
	}
}

// GetChunk resolves a chunk through dedup -> cache -> store -> generate,
// never failing purely because the cache or store layer is unavailable.
// mode is workerpool.ModeChunk for a full-chunk request; this is the only
// mode that flows through dedup, cache and store. mode == "" is treated as
// ModeChunk, matching session.go's default.
func (o *Orchestrator) GetChunk(ctx context.Context, key world.ChunkCoord, mode workerpool.Mode) (*world.Chunk, error) {
	if mode == "" {
		mode = workerpool.ModeChunk
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	if mode != workerpool.ModeChunk {
		return o.pool.Dispatch(ctx, key.X, key.Y, mode)
	}

	if req, joined := o.join(key); joined {
		return o.await(ctx, req)
	}

	req := o.lead(key)
	defer o.finish(key, req)

	chunk, err := o.fulfill(ctx, key)
	req.chunk, req.err = chunk, err
	close(req.done)
	return chunk, err
}

func (o *Orchestrator) join(key world.ChunkCoord) (*pendingRequest, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if req, ok := o.pending[key]; ok {
		return req, true
	}
	return nil, false
}

func (o *Orchestrator) lead(key world.ChunkCoord) *pendingRequest {
	o.mu.Lock()
	defer o.mu.Unlock()
	req := &pendingRequest{done: make(chan struct{}), startedAt: time.Now()}
	o.pending[key] = req
	return req
}

func (o *Orchestrator) finish(key world.ChunkCoord, req *pendingRequest) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pending[key] == req {
		delete(o.pending, key)
	}
}

func (o *Orchestrator) await(ctx context.Context, req *pendingRequest) (*world.Chunk, error) {
	select {
	case <-req.done:
		return req.chunk, req.err
	case <-ctx.Done():
		return nil, fmt.Errorf("orchestrator: %w", ctx.Err())
	}
}

func (o *Orchestrator) fulfill(ctx context.Context, key world.ChunkCoord) (*world.Chunk, error) {
	if o.cache != nil {
		if chunk, ok, err := o.cache.Get(ctx, key); err != nil {
			log.Printf("orchestrator: cache unavailable for %s, continuing: %v", key, err)
		} else if ok {
			return chunk, nil
		}
	}

	if o.store != nil {
		if chunk, ok, err := o.store.Get(ctx, key); err != nil {
			log.Printf("orchestrator: store unavailable for %s, continuing: %v", key, err)
		} else if ok {
			if o.cache != nil {
				if err := o.cache.Put(ctx, chunk); err != nil {
					log.Printf("orchestrator: cache repopulate failed for %s: %v", key, err)
				}
			}
			return chunk, nil
		}
	}

	chunk, err := o.pool.Dispatch(ctx, key.X, key.Y, workerpool.ModeChunk)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: generation failed for %s: %w", key, err)
	}

	if err := o.persist(ctx, chunk); err != nil {
		log.Printf("orchestrator: persist failed for %s (serving generated chunk anyway): %v", key, err)
	}

	return chunk, nil
}

// persist writes a freshly generated or mutated chunk through the store,
// evicts its cache entry (the lazy-reload pattern, never repopulate on
// write), and publishes an invalidation so other instances purge too.
func (o *Orchestrator) persist(ctx context.Context, chunk *world.Chunk) error {
	var firstErr error
	if o.store != nil {
		if err := o.store.Put(ctx, chunk); err != nil {
			firstErr = fmt.Errorf("store put: %w", err)
		}
	}
	if o.cache != nil {
		if err := o.cache.Invalidate(ctx, chunk.Key); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("cache invalidate: %w", err)
		}
	}
	if o.hub != nil {
		o.hub.PublishChunkInvalidate(ctx, chunk.Key)
	}
	if o.pool != nil {
		o.pool.PurgeLRUs(chunk.Key)
	}
	return firstErr
}

// WriteChunk is the entry point mutations (e.g. mining) use to persist a
// chunk they've already modified in place.
func (o *Orchestrator) WriteChunk(ctx context.Context, chunk *world.Chunk) error {
	return o.persist(ctx, chunk)
}
