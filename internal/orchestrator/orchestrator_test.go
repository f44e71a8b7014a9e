package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/briannalee/chunkgenerator-sub000/internal/workerpool"
	"github.com/briannalee/chunkgenerator-sub000/internal/world"
)

func testChunk(cx, cy int) *world.Chunk {
	tiles := make([]world.Tile, world.ChunkSize*world.ChunkSize)
	for i := range tiles {
		tiles[i] = world.Tile{X: cx*world.ChunkSize + i%world.ChunkSize, Y: cy*world.ChunkSize + i/world.ChunkSize, Biome: world.BiomeGrassland}
	}
	return world.NewChunk(world.ChunkCoord{X: cx, Y: cy}, tiles)
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[world.ChunkCoord]*world.Chunk
	fail    bool
}

func newFakeCache() *fakeCache { return &fakeCache{entries: make(map[world.ChunkCoord]*world.Chunk)} }

func (f *fakeCache) Get(ctx context.Context, key world.ChunkCoord) (*world.Chunk, bool, error) {
	if f.fail {
		return nil, false, fmt.Errorf("cache down")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.entries[key]
	return c, ok, nil
}

func (f *fakeCache) Put(ctx context.Context, chunk *world.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[chunk.Key] = chunk
	return nil
}

func (f *fakeCache) Invalidate(ctx context.Context, key world.ChunkCoord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, key)
	return nil
}

type fakeStore struct {
	mu      sync.Mutex
	entries map[world.ChunkCoord]*world.Chunk
	fail    bool
}

func newFakeStore() *fakeStore { return &fakeStore{entries: make(map[world.ChunkCoord]*world.Chunk)} }

func (f *fakeStore) Get(ctx context.Context, key world.ChunkCoord) (*world.Chunk, bool, error) {
	if f.fail {
		return nil, false, fmt.Errorf("store down")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.entries[key]
	return c, ok, nil
}

func (f *fakeStore) Put(ctx context.Context, chunk *world.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[chunk.Key] = chunk
	return nil
}

type fakePool struct {
	mu      sync.Mutex
	calls   int
	delay   time.Duration
	modes   []workerpool.Mode
}

func (f *fakePool) Dispatch(ctx context.Context, cx, cy int, mode workerpool.Mode) (*world.Chunk, error) {
	f.mu.Lock()
	f.calls++
	f.modes = append(f.modes, mode)
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return testChunk(cx, cy), nil
}

func (f *fakePool) PurgeLRUs(key world.ChunkCoord) {}

type fakeHub struct {
	mu          sync.Mutex
	invalidated []world.ChunkCoord
}

func (f *fakeHub) PublishChunkInvalidate(ctx context.Context, key world.ChunkCoord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, key)
}

func TestGetChunkHitsCacheFirst(t *testing.T) {
	c := newFakeCache()
	s := newFakeStore()
	pool := &fakePool{}
	pre := testChunk(1, 1)
	c.entries[pre.Key] = pre

	o := New(c, s, pool, nil)
	got, err := o.GetChunk(context.Background(), world.ChunkCoord{X: 1, Y: 1}, workerpool.ModeChunk)
	if err != nil {
		t.Fatalf("GetChunk: %v", err)
	}
	if got.Key != pre.Key {
		t.Fatalf("got %v, want %v", got.Key, pre.Key)
	}
	if pool.calls != 0 {
		t.Fatalf("expected no generation on cache hit, got %d calls", pool.calls)
	}
}

func TestGetChunkFallsBackToStoreThenCache(t *testing.T) {
	c := newFakeCache()
	s := newFakeStore()
	pool := &fakePool{}
	pre := testChunk(2, 2)
	s.entries[pre.Key] = pre

	o := New(c, s, pool, nil)
	got, err := o.GetChunk(context.Background(), world.ChunkCoord{X: 2, Y: 2}, workerpool.ModeChunk)
	if err != nil {
		t.Fatalf("GetChunk: %v", err)
	}
	if got.Key != pre.Key {
		t.Fatalf("got %v, want %v", got.Key, pre.Key)
	}
	if pool.calls != 0 {
		t.Fatalf("expected no generation on store hit, got %d calls", pool.calls)
	}
	if _, ok := c.entries[pre.Key]; !ok {
		t.Fatal("expected store hit to repopulate cache")
	}
}

func TestGetChunkGeneratesOnDoubleMiss(t *testing.T) {
	c := newFakeCache()
	s := newFakeStore()
	pool := &fakePool{}
	h := &fakeHub{}

	o := New(c, s, pool, h)
	got, err := o.GetChunk(context.Background(), world.ChunkCoord{X: 3, Y: 3}, workerpool.ModeChunk)
	if err != nil {
		t.Fatalf("GetChunk: %v", err)
	}
	if got.Key != (world.ChunkCoord{X: 3, Y: 3}) {
		t.Fatalf("unexpected chunk key %v", got.Key)
	}
	if pool.calls != 1 {
		t.Fatalf("expected exactly one generation, got %d", pool.calls)
	}
	if _, ok := s.entries[got.Key]; !ok {
		t.Fatal("expected generated chunk to be persisted to store")
	}
	if len(h.invalidated) != 1 {
		t.Fatalf("expected one invalidation publish, got %d", len(h.invalidated))
	}
}

func TestGetChunkToleratesCacheAndStoreFailures(t *testing.T) {
	c := newFakeCache()
	c.fail = true
	s := newFakeStore()
	s.fail = true
	pool := &fakePool{}

	o := New(c, s, pool, nil)
	got, err := o.GetChunk(context.Background(), world.ChunkCoord{X: 0, Y: 0}, workerpool.ModeChunk)
	if err != nil {
		t.Fatalf("GetChunk should succeed via generation despite cache/store failures: %v", err)
	}
	if got == nil {
		t.Fatal("expected a generated chunk")
	}
}

func TestGetChunkDedupsConcurrentRequests(t *testing.T) {
	c := newFakeCache()
	s := newFakeStore()
	pool := &fakePool{delay: 100 * time.Millisecond}

	o := New(c, s, pool, nil)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := o.GetChunk(context.Background(), world.ChunkCoord{X: 9, Y: 9}, workerpool.ModeChunk); err != nil {
				t.Errorf("GetChunk: %v", err)
			}
		}()
	}
	wg.Wait()

	if pool.calls != 1 {
		t.Fatalf("expected exactly one generation for 10 concurrent requests, got %d", pool.calls)
	}
}

func TestGetChunkPartialModeBypassesCacheAndStore(t *testing.T) {
	c := newFakeCache()
	s := newFakeStore()
	pool := &fakePool{}
	pre := testChunk(6, 6)
	c.entries[pre.Key] = pre
	s.entries[pre.Key] = pre

	o := New(c, s, pool, nil)
	if _, err := o.GetChunk(context.Background(), world.ChunkCoord{X: 6, Y: 6}, workerpool.ModeRow); err != nil {
		t.Fatalf("GetChunk: %v", err)
	}
	if pool.calls != 1 {
		t.Fatalf("expected row mode to dispatch straight to the pool, got %d calls", pool.calls)
	}
	if pool.modes[0] != workerpool.ModeRow {
		t.Fatalf("expected pool to see ModeRow, got %v", pool.modes[0])
	}
}

func TestGetChunkPartialModeDoesNotDedupWithChunkMode(t *testing.T) {
	c := newFakeCache()
	s := newFakeStore()
	pool := &fakePool{delay: 50 * time.Millisecond}

	o := New(c, s, pool, nil)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := o.GetChunk(context.Background(), world.ChunkCoord{X: 7, Y: 7}, workerpool.ModeChunk); err != nil {
			t.Errorf("GetChunk chunk mode: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		if _, err := o.GetChunk(context.Background(), world.ChunkCoord{X: 7, Y: 7}, workerpool.ModePoint); err != nil {
			t.Errorf("GetChunk point mode: %v", err)
		}
	}()
	wg.Wait()

	if pool.calls != 2 {
		t.Fatalf("expected chunk mode and point mode to each dispatch independently, got %d calls", pool.calls)
	}
}

func TestWriteChunkInvalidatesAndPersists(t *testing.T) {
	c := newFakeCache()
	s := newFakeStore()
	pool := &fakePool{}
	h := &fakeHub{}
	chunk := testChunk(5, 5)
	c.entries[chunk.Key] = chunk

	o := New(c, s, pool, h)
	if err := o.WriteChunk(context.Background(), chunk); err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}
	if _, ok := c.entries[chunk.Key]; ok {
		t.Fatal("expected WriteChunk to evict the cache entry")
	}
	if _, ok := s.entries[chunk.Key]; !ok {
		t.Fatal("expected WriteChunk to persist to the store")
	}
	if len(h.invalidated) != 1 {
		t.Fatalf("expected one invalidation publish, got %d", len(h.invalidated))
	}
}
