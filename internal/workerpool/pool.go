// Package workerpool runs a fixed number of long-lived CPU-bound generator
// workers. Each worker owns a small LRU of recently generated chunks and is
// dispatched jobs by load (outstanding job count), never by round robin,
// so a slow chunk doesn't starve a worker that's keeping up.
package workerpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/briannalee/chunkgenerator-sub000/internal/terrain"
	"github.com/briannalee/chunkgenerator-sub000/internal/world"
)

// Mode selects how much of a chunk a Job needs. Chunk is the full grid,
// dispatched through the orchestrator's dedup/cache/store pipeline; Row,
// Column and Point are partial requests that spec.md section 4.C requires to
// bypass that pipeline entirely and resolve straight off a worker's local
// LRU.
type Mode string

const (
	ModeChunk  Mode = "chunk"
	ModeRow    Mode = "row"
	ModeColumn Mode = "column"
	ModePoint  Mode = "point"
)

// Job requests a chunk at (CX, CY) and delivers the result on Reply. Mode is
// informational for the worker (the full chunk is always generated/cached
// locally; Mode only affects which tiles the caller slices out downstream),
// but it is threaded through so the in-process LRU is always consulted
// regardless of which pipeline tier dispatched the job.
type Job struct {
	CX, CY int
	Mode   Mode
	Reply  chan Result
}

// Result carries either a generated chunk or an error back to the caller.
type Result struct {
	Chunk *world.Chunk
	Err   error
}

// Pool dispatches jobs across N workers, picking the least-loaded worker
// for each new job.
type Pool struct {
	workers []*worker
}

type worker struct {
	id    int
	gen   *terrain.Generator
	jobs  chan Job
	load  int64 // atomic outstanding job count
	lru   *lru
}

// New starts size workers, each generating chunks for the given seed and
// caching up to lruCapacity recently generated chunks locally.
func New(size int, seed int64, lruCapacity int) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{workers: make([]*worker, size)}
	for i := 0; i < size; i++ {
		w := &worker{
			id:   i,
			gen:  terrain.NewGenerator(seed),
			jobs: make(chan Job, 64),
			lru:  newLRU(lruCapacity),
		}
		p.workers[i] = w
		go w.run()
	}
	return p
}

func (w *worker) run() {
	for job := range w.jobs {
		if chunk, ok := w.lru.get(job.CX, job.CY); ok {
			atomic.AddInt64(&w.load, -1)
			job.Reply <- Result{Chunk: chunk}
			continue
		}
		chunk, err := w.gen.Generate(job.CX, job.CY)
		if err == nil {
			w.lru.put(job.CX, job.CY, chunk)
		}
		atomic.AddInt64(&w.load, -1)
		job.Reply <- Result{Chunk: chunk, Err: err}
	}
}

// Dispatch submits a generation job to the least-loaded worker and blocks
// until a result arrives or ctx is cancelled. mode does not change what gets
// generated (a worker always produces the full chunk and caches it locally)
// but is carried on the Job for callers that want it reflected in logs or
// metrics.
func (p *Pool) Dispatch(ctx context.Context, cx, cy int, mode Mode) (*world.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("workerpool: %w", err)
	}
	if mode == "" {
		mode = ModeChunk
	}

	w := p.leastLoaded()
	reply := make(chan Result, 1)
	atomic.AddInt64(&w.load, 1)

	select {
	case w.jobs <- Job{CX: cx, CY: cy, Mode: mode, Reply: reply}:
	case <-ctx.Done():
		atomic.AddInt64(&w.load, -1)
		return nil, ctx.Err()
	}

	select {
	case result := <-reply:
		return result.Chunk, result.Err
	case <-ctx.Done():
		return nil, fmt.Errorf("workerpool: %w", ctx.Err())
	}
}

func (p *Pool) leastLoaded() *worker {
	best := p.workers[0]
	bestLoad := atomic.LoadInt64(&best.load)
	for _, w := range p.workers[1:] {
		if l := atomic.LoadInt64(&w.load); l < bestLoad {
			best, bestLoad = w, l
		}
	}
	return best
}

// PurgeLRUs drops every worker's local LRU entry for key, called after a
// write-through and on chunk_invalidate events so stale generations aren't
// served from a worker's cache.
func (p *Pool) PurgeLRUs(key world.ChunkCoord) {
	for _, w := range p.workers {
		w.lru.delete(key.X, key.Y)
	}
}

// lru is a tiny capacity-bounded, mutex-guarded least-recently-used cache
// keyed by chunk coordinate. Each worker owns one; it is never shared.
type lru struct {
	mu       sync.Mutex
	capacity int
	order    []world.ChunkCoord
	entries  map[world.ChunkCoord]*world.Chunk
}

func newLRU(capacity int) *lru {
	if capacity <= 0 {
		capacity = 1
	}
	return &lru{capacity: capacity, entries: make(map[world.ChunkCoord]*world.Chunk)}
}

func (l *lru) get(cx, cy int) (*world.Chunk, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := world.ChunkCoord{X: cx, Y: cy}
	chunk, ok := l.entries[key]
	if ok {
		l.touch(key)
	}
	return chunk, ok
}

func (l *lru) put(cx, cy int, chunk *world.Chunk) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := world.ChunkCoord{X: cx, Y: cy}
	if _, exists := l.entries[key]; !exists && len(l.entries) >= l.capacity {
		l.evictOldest()
	}
	l.entries[key] = chunk
	l.touch(key)
}

func (l *lru) delete(cx, cy int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := world.ChunkCoord{X: cx, Y: cy}
	delete(l.entries, key)
	for i, k := range l.order {
		if k == key {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

func (l *lru) touch(key world.ChunkCoord) {
	for i, k := range l.order {
		if k == key {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	l.order = append(l.order, key)
}

func (l *lru) evictOldest() {
	if len(l.order) == 0 {
		return
	}
	oldest := l.order[0]
	l.order = l.order[1:]
	delete(l.entries, oldest)
}
