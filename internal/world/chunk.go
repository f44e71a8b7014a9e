package world

import "sync"

// Chunk is a ChunkSize x ChunkSize grid of tiles. A chunk is a pure function
// of (seed, cx, cy): once generated its terrain fields never change, but the
// Remaining count on a tile's resource may be mutated by mining.
type Chunk struct {
	Key   ChunkCoord
	tiles []Tile // row-major by local (x, y), length ChunkSize*ChunkSize

	mu sync.RWMutex
}

// NewChunk wraps a freshly generated tile grid. tiles must already be in
// row-major local order and have exactly ChunkSize*ChunkSize entries.
func NewChunk(key ChunkCoord, tiles []Tile) *Chunk {
	return &Chunk{Key: key, tiles: tiles}
}

func localIndex(lx, ly int) int {
	return ly*ChunkSize + lx
}

// Tiles returns a defensive copy of the chunk's tile grid.
func (c *Chunk) Tiles() []Tile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Tile, len(c.tiles))
	copy(out, c.tiles)
	return out
}

// TileAt returns the tile at local coordinates (lx, ly).
func (c *Chunk) TileAt(lx, ly int) (Tile, bool) {
	if lx < 0 || ly < 0 || lx >= ChunkSize || ly >= ChunkSize {
		return Tile{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tiles[localIndex(lx, ly)], true
}

// Row returns the tile row at local y: ChunkSize tiles, one tile tall, as
// used by the "row" request mode.
func (c *Chunk) Row(ly int) ([]Tile, bool) {
	if ly < 0 || ly >= ChunkSize {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	row := make([]Tile, ChunkSize)
	copy(row, c.tiles[localIndex(0, ly):localIndex(0, ly)+ChunkSize])
	return row, true
}

// Column returns the tile column at local x.
func (c *Chunk) Column(lx int) ([]Tile, bool) {
	if lx < 0 || lx >= ChunkSize {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	col := make([]Tile, ChunkSize)
	for ly := 0; ly < ChunkSize; ly++ {
		col[ly] = c.tiles[localIndex(lx, ly)]
	}
	return col, true
}

// MutateResource applies fn to the resource node at local (lx, ly), if any,
// and reports whether a resource was present to mutate.
func (c *Chunk) MutateResource(lx, ly int, fn func(*ResourceNode)) bool {
	if lx < 0 || ly < 0 || lx >= ChunkSize || ly >= ChunkSize {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	tile := &c.tiles[localIndex(lx, ly)]
	if tile.Resource == nil {
		return false
	}
	fn(tile.Resource)
	return true
}

// Resources returns a snapshot of every resource node in the chunk, keyed
// by "wx,wy" as the wire protocol requires.
func (c *Chunk) Resources() map[string]ResourceNode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]ResourceNode)
	for _, t := range c.tiles {
		if t.Resource == nil {
			continue
		}
		out[ChunkCoord{X: t.X, Y: t.Y}.Key()] = *t.Resource
	}
	return out
}
