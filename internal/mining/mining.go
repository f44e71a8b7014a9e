// Package mining implements the mining subsystem described in spec.md
// section 4.H: it mutates a resource node's remaining amount in place and
// writes the owning chunk back through the orchestrator so cache/store and
// every other session observe the change.
package mining

import (
	"context"
	"fmt"
	"math"

	"github.com/briannalee/chunkgenerator-sub000/internal/workerpool"
	"github.com/briannalee/chunkgenerator-sub000/internal/world"
)

// Tool is one of the three mining implements a player may use.
type Tool string

const (
	ToolHand    Tool = "hand"
	ToolPickaxe Tool = "pickaxe"
	ToolDrill   Tool = "drill"
)

var toolEfficiency = map[Tool]float64{
	ToolHand:    0.2,
	ToolPickaxe: 0.6,
	ToolDrill:   0.9,
}

const minEfficiency = 0.1

// chunkSource is the subset of the orchestrator mining needs: read a chunk
// through the pipeline, then write the mutated chunk back through it.
type chunkSource interface {
	GetChunk(ctx context.Context, key world.ChunkCoord, mode workerpool.Mode) (*world.Chunk, error)
	WriteChunk(ctx context.Context, chunk *world.Chunk) error
}

// Result is the outcome of a mining attempt.
type Result struct {
	Resource world.ResourceType
	Amount   int
	X, Y     int
}

// ErrMiningFailed reports any of the MiningMiss cases spec.md section 7
// names: an unloaded chunk, a tile with no resource, or a depleted node.
// It is never logged at error level; callers surface {type:"miningFailed"}.
var ErrMiningFailed = fmt.Errorf("mining: no minable resource at target tile")

// Mine executes one mining attempt at world coordinate (x, y).
func Mine(ctx context.Context, pipeline chunkSource, x, y int, tool Tool) (*Result, error) {
	key := world.ChunkOf(x, y)
	lx, ly := world.LocalOf(x, y)

	chunk, err := pipeline.GetChunk(ctx, key, workerpool.ModeChunk)
	if err != nil {
		return nil, fmt.Errorf("%w: load chunk %s: %w", ErrMiningFailed, key, err)
	}

	tile, ok := chunk.TileAt(lx, ly)
	if !ok || tile.Resource == nil || tile.Resource.Remaining <= 0 {
		return nil, ErrMiningFailed
	}

	efficiency, ok := toolEfficiency[tool]
	if !ok {
		efficiency = toolEfficiency[ToolHand]
	}
	efficiency = math.Max(minEfficiency, efficiency-tile.Resource.Hardness)

	var mined int
	var resourceType world.ResourceType

	chunk.MutateResource(lx, ly, func(node *world.ResourceNode) {
		minedAmount := int(math.Floor(float64(node.Remaining) * efficiency * 0.1))
		if minedAmount < 1 {
			minedAmount = 1
		}
		if minedAmount > node.Remaining {
			minedAmount = node.Remaining
		}
		node.Remaining = int(math.Max(0, float64(node.Remaining-minedAmount)))
		mined = minedAmount
		resourceType = node.Type
	})

	if err := pipeline.WriteChunk(ctx, chunk); err != nil {
		return nil, fmt.Errorf("mining: persist chunk %s: %w", key, err)
	}

	return &Result{Resource: resourceType, Amount: mined, X: x, Y: y}, nil
}
