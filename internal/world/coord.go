// Package world defines the tile, chunk and resource data model shared by
// the terrain generator, the fulfillment pipeline and the session layer.
package world

import "fmt"

// ChunkSize is the fixed width/height of a chunk in tiles. Clients depend on
// this value over the wire; changing it is a protocol break.
const ChunkSize = 10

// ChunkCoord identifies a chunk in chunk space.
type ChunkCoord struct {
	X int
	Y int
}

func (c ChunkCoord) String() string {
	return fmt.Sprintf("%d,%d", c.X, c.Y)
}

// Key returns the "x,y" string form of the coordinate. Chunk.Resources uses
// it, on tile coordinates, to key the wire resource map.
func (c ChunkCoord) Key() string {
	return c.String()
}

// TileCoord identifies a single tile in world space.
type TileCoord struct {
	X int
	Y int
}

// ChunkOf returns the chunk coordinate containing the given world tile,
// using non-negative (floor) division so coordinates on either side of the
// origin resolve to the correct chunk.
func ChunkOf(x, y int) ChunkCoord {
	return ChunkCoord{X: floorDiv(x, ChunkSize), Y: floorDiv(y, ChunkSize)}
}

// LocalOf returns the local (within-chunk) coordinate for a world tile,
// using a non-negative modulus.
func LocalOf(x, y int) (int, int) {
	return floorMod(x, ChunkSize), floorMod(y, ChunkSize)
}

// Origin returns the world coordinate of the chunk's (0,0) tile.
func (c ChunkCoord) Origin() (int, int) {
	return c.X * ChunkSize, c.Y * ChunkSize
}

func floorDiv(value, size int) int {
	if size <= 0 {
		return 0
	}
	if value >= 0 {
		return value / size
	}
	return -((-value - 1) / size) - 1
}

func floorMod(value, size int) int {
	if size <= 0 {
		return 0
	}
	m := value % size
	if m < 0 {
		m += size
	}
	return m
}
