package world

import "encoding/json"

// Snapshot is the durable form of a chunk: what the cache stores (with a
// TTL layered on top by the caller) and what the persistent store writes
// into its "tiles" column. It has no separate terrain part; the store's
// "terrain" column is not written.
type Snapshot struct {
	CX    int    `json:"cx"`
	CY    int    `json:"cy"`
	Tiles []Tile `json:"tiles"`
}

// Serialize produces the durable encoding of a chunk.
func Serialize(c *Chunk) ([]byte, error) {
	snap := Snapshot{CX: c.Key.X, CY: c.Key.Y, Tiles: c.Tiles()}
	return json.Marshal(snap)
}

// Deserialize reconstructs a chunk from its durable encoding.
func Deserialize(data []byte) (*Chunk, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return NewChunk(ChunkCoord{X: snap.CX, Y: snap.CY}, snap.Tiles), nil
}
