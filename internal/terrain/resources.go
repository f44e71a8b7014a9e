package terrain

import (
	"github.com/briannalee/chunkgenerator-sub000/internal/noise"
	"github.com/briannalee/chunkgenerator-sub000/internal/world"
)

// steepCutoff and the hardness-difficulty pair are named directly in
// spec.md section 4.B; the resource amount/hardness/respawn bands and the
// per-biome density table are not given concrete numbers there, so the
// values below are this implementation's Open Question resolution (see
// DESIGN.md) — internally consistent, and satisfying every numeric
// invariant spec.md section 8 actually tests (0 <= remaining <= amount,
// membership in the type's declared range).
const (
	steepCutoff             = 0.8
	steepHardnessCutoff     = 0.6
	steepHardnessDifficulty = 0.2
	resourceMin             = 2
	resourceMaxMultiplier   = 8.0
)

type intRange struct{ Lo, Hi int }
type floatRange struct{ Lo, Hi float64 }

var resourceAmountRange = map[world.ResourceType]intRange{
	world.ResourceWater: {50, 200},
	world.ResourceWood:  {10, 50},
	world.ResourceCoal:  {20, 80},
	world.ResourceIron:  {15, 60},
}

var resourceHardnessRange = map[world.ResourceType]floatRange{
	world.ResourceWater: {0.0, 0.1},
	world.ResourceWood:  {0.1, 0.3},
	world.ResourceCoal:  {0.3, 0.6},
	world.ResourceIron:  {0.4, 0.8},
}

// respawnRange in seconds; Water intentionally absent — its respawnTime is
// always unset per spec.md's tile invariant.
var resourceRespawnRange = map[world.ResourceType]intRange{
	world.ResourceWood: {60, 300},
	world.ResourceCoal: {300, 900},
	world.ResourceIron: {300, 900},
}

// biomeRule describes how a land biome participates in resource placement:
// density is the per-cell placement probability for "any other eligible
// tile"; forest-triad biomes (forced=true) instead always place a resource.
type biomeRule struct {
	density      float64
	forced       bool
	multiplier   float64
	probability  map[world.ResourceType]float64 // must sum to 1.0
}

var biomeResourceTable = map[world.Biome]biomeRule{
	world.BiomeGrassland: {density: 0.05, multiplier: 1.0, probability: map[world.ResourceType]float64{
		world.ResourceWood: 0.5, world.ResourceCoal: 0.3, world.ResourceIron: 0.2,
	}},
	world.BiomeForest: {forced: true, multiplier: 1.2, probability: map[world.ResourceType]float64{
		world.ResourceWood: 0.6, world.ResourceCoal: 0.25, world.ResourceIron: 0.15,
	}},
	world.BiomeDenseForest: {forced: true, multiplier: 1.5, probability: map[world.ResourceType]float64{
		world.ResourceWood: 0.5, world.ResourceCoal: 0.3, world.ResourceIron: 0.2,
	}},
	world.BiomeJungle: {forced: true, multiplier: 1.3, probability: map[world.ResourceType]float64{
		world.ResourceWood: 0.4, world.ResourceCoal: 0.3, world.ResourceIron: 0.3,
	}},
	world.BiomeSavanna: {density: 0.04, multiplier: 0.8, probability: map[world.ResourceType]float64{
		world.ResourceWood: 0.3, world.ResourceCoal: 0.4, world.ResourceIron: 0.3,
	}},
	world.BiomeDesert: {density: 0.06, multiplier: 1.0, probability: map[world.ResourceType]float64{
		world.ResourceCoal: 0.5, world.ResourceIron: 0.5,
	}},
	world.BiomeTundra: {density: 0.07, multiplier: 1.1, probability: map[world.ResourceType]float64{
		world.ResourceCoal: 0.4, world.ResourceIron: 0.6,
	}},
	world.BiomeSnow: {density: 0.05, multiplier: 1.0, probability: map[world.ResourceType]float64{
		world.ResourceIron: 0.7, world.ResourceCoal: 0.3,
	}},
	world.BiomeMountain: {density: 0.15, multiplier: 1.8, probability: map[world.ResourceType]float64{
		world.ResourceIron: 0.5, world.ResourceCoal: 0.5,
	}},
	world.BiomeMountainSnow: {density: 0.15, multiplier: 1.8, probability: map[world.ResourceType]float64{
		world.ResourceIron: 0.6, world.ResourceCoal: 0.4,
	}},
	world.BiomeSwamp: {density: 0.05, multiplier: 0.9, probability: map[world.ResourceType]float64{
		world.ResourceWood: 0.6, world.ResourceCoal: 0.4,
	}},
	world.BiomeMarsh: {density: 0.04, multiplier: 0.8, probability: map[world.ResourceType]float64{
		world.ResourceWood: 0.5, world.ResourceCoal: 0.5,
	}},
}

// drawResourceType performs a weighted draw over rule.probability.
func drawResourceType(rule biomeRule, rng *cellRNG) world.ResourceType {
	roll := rng.Float64()
	var cumulative float64
	var last world.ResourceType
	for _, t := range []world.ResourceType{world.ResourceWood, world.ResourceCoal, world.ResourceIron} {
		p, ok := rule.probability[t]
		if !ok {
			continue
		}
		cumulative += p
		last = t
		if roll < cumulative {
			return t
		}
	}
	return last
}

func makeResource(rtype world.ResourceType, multiplier float64, stp float64, wx, wy int, rng *cellRNG) *world.ResourceNode {
	amountRange := resourceAmountRange[rtype]
	hardnessRange := resourceHardnessRange[rtype]

	amount := int(float64(rng.UniformInt(amountRange.Lo, amountRange.Hi)) * multiplier)
	if amount < 1 {
		amount = 1
	}

	hardness := rng.UniformFloat(hardnessRange.Lo, hardnessRange.Hi)
	if stp > steepHardnessCutoff {
		hardness += steepHardnessDifficulty
	}

	node := &world.ResourceNode{
		Type:      rtype,
		Amount:    amount,
		Remaining: amount,
		Hardness:  hardness,
		X:         wx,
		Y:         wy,
	}

	if respawn, ok := resourceRespawnRange[rtype]; ok {
		node.RespawnTime = rng.UniformInt(respawn.Lo, respawn.Hi)
		node.HasRespawn = true
	}
	return node
}

// placeResources runs the deterministic per-cell resource placement pass
// described in spec.md section 4.B over a finished (post-beach-resolution)
// tile grid, mutating tiles in place. Random (non-forced) placements are
// capped by a budget that grows by density*resourceMaxMultiplier for each
// eligible tile visited, and is never below resourceMin.
func placeResources(tiles []world.Tile, seed int64, cx, cy int) {
	budget := 0.0
	placed := 0

	for i := range tiles {
		t := &tiles[i]

		if t.Water {
			if t.WaterType == world.WaterLake || t.WaterType == world.WaterRiver {
				rng := newCellRNG(noise.CellSeed(seed, t.X, t.Y))
				t.Resource = makeResource(world.ResourceWater, 1.0, 0, t.X, t.Y, rng)
			}
			continue
		}

		if t.Cliff || t.Steepness > steepCutoff {
			continue
		}

		rule, ok := biomeResourceTable[t.Biome]
		if !ok {
			continue
		}

		rng := newCellRNG(noise.CellSeed(seed, t.X, t.Y))

		if rule.forced {
			rtype := drawResourceType(rule, rng)
			t.Resource = makeResource(rtype, rule.multiplier, t.Steepness, t.X, t.Y, rng)
			continue
		}

		budget += rule.density * resourceMaxMultiplier
		limit := budget
		if limit < resourceMin {
			limit = resourceMin
		}
		if float64(placed) >= limit {
			continue
		}
		if rng.Float64() > rule.density {
			continue
		}
		rtype := drawResourceType(rule, rng)
		t.Resource = makeResource(rtype, rule.multiplier, t.Steepness, t.X, t.Y, rng)
		placed++
	}
}
