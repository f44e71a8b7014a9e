// Package terrain implements the deterministic per-chunk world generator:
// sampling the noise package's scalar fields for every cell, classifying
// biomes, resolving beaches and rivers/lakes, and placing resources. The
// whole pass is a pure function of (seed, chunk coordinate) — called
// directly by tests and, in production, dispatched onto the worker pool.
package terrain

import (
	"github.com/briannalee/chunkgenerator-sub000/internal/noise"
	"github.com/briannalee/chunkgenerator-sub000/internal/world"
)

// lakeNHThreshold splits water cells: below it is ocean, from it up to sea
// level is lake (no landlocked test is made); riverThreshold is the RiverMap
// cutoff above which a land cell becomes a river channel. Neither value is given in spec.md; see
// "Open questions resolved" in DESIGN.md for the resolution.
const (
	lakeNHThreshold = 0.38
	riverThreshold  = 0.55
)

// Generator produces chunks for a single world seed. It holds no mutable
// state beyond the noise engine, so one Generator is safe for concurrent use
// by multiple worker goroutines, matching the teacher's stateless
// NoiseGenerator.Generate contract.
type Generator struct {
	seed   int64
	engine *noise.Engine
}

// NewGenerator returns a Generator bound to seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{seed: seed, engine: noise.New(seed)}
}

// Generate produces the fully classified, resource-populated chunk at
// (cx, cy). It never touches cache or store; callers own persistence.
func (g *Generator) Generate(cx, cy int) (*world.Chunk, error) {
	tiles := make([]world.Tile, world.ChunkSize*world.ChunkSize)
	nhs := make([]float64, world.ChunkSize*world.ChunkSize)

	originX, originY := world.ChunkCoord{X: cx, Y: cy}.Origin()

	for ly := 0; ly < world.ChunkSize; ly++ {
		for lx := 0; lx < world.ChunkSize; lx++ {
			wx := originX + lx
			wy := originY + ly
			fx, fy := float64(wx), float64(wy)

			h := g.engine.Height(fx, fy)
			nh := (h + 1) / 2
			steepness := g.steepnessAt(fx, fy, h)
			temperature := g.engine.Temperature(fx, fy, nh)
			precipitation := g.engine.Precipitation(fx, fy, nh, temperature)
			river := g.engine.RiverMap(fx, fy, h)

			water, waterType := classifyWater(nh, river)
			biome := classify(nh, steepness, temperature, precipitation, water, waterType)

			tile := world.Tile{
				X: wx, Y: wy,
				H: h, NH: nh,
				Water: water, WaterType: waterType,
				Temperature: temperature, Precipitation: precipitation, Steepness: steepness,
				Biome: biome, Color: world.ColorFor(biome),
			}

			if !water {
				tile.Cliff = biome == world.BiomeCliff
				tile.Vegetation, tile.VegType, tile.Soil = vegetationFor(biome, temperature, precipitation)
			}

			i := ly*world.ChunkSize + lx
			tiles[i] = tile
			nhs[i] = nh
		}
	}

	resolveBeaches(tiles, nhs)
	placeResources(tiles, g.seed, cx, cy)

	return world.NewChunk(world.ChunkCoord{X: cx, Y: cy}, tiles), nil
}

// classifyWater decides whether a cell is water and, if so, which kind:
// a normalized height below lakeNHThreshold is ocean, one between that and
// sea level is a lake; a land cell with a strong river signal is carved
// into a river channel instead.
func classifyWater(nh, river float64) (bool, world.WaterType) {
	if nh < lakeNHThreshold {
		return true, world.WaterOcean
	}
	if nh < seaLevelNH {
		return true, world.WaterLake
	}
	if river > riverThreshold {
		return true, world.WaterRiver
	}
	return false, ""
}

// steepnessAt estimates local slope via forward differences of Height,
// matching the finite-difference approach the teacher's terrain package
// uses for its own undergroundLimit/surface calculations.
func (g *Generator) steepnessAt(x, y, center float64) float64 {
	const step = 1.0
	hx := g.engine.Height(x+step, y)
	hy := g.engine.Height(x, y+step)
	dx := hx - center
	dy := hy - center
	slope := (abs(dx) + abs(dy)) / (2 * step)
	if slope > 1 {
		slope = 1
	}
	return slope
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
