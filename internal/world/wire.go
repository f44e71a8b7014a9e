package world

import "math"

// waterTypeCode / vegTypeCode / soilTypeCode encode the small enums into the
// positional wire array clients decode; 0 always means "absent/not
// applicable" so water and land tiles can share one encoder.
var waterTypeCode = map[WaterType]int{
	"":         0,
	WaterOcean: 1,
	WaterRiver: 2,
	WaterLake:  3,
}

var vegTypeCode = map[VegetationType]int{
	VegetationNone:       0,
	VegetationShrub:      1,
	VegetationConiferous: 2,
	VegetationDeciduous:  3,
}

var soilTypeCode = map[SoilType]int{
	"":         0,
	SoilNormal: 1,
	SoilRock:   2,
}

var biomeCode = map[Biome]int{
	BiomeOceanDeep:    0,
	BiomeOceanShallow: 1,
	BiomeBeach:        2,
	BiomeGrassland:    3,
	BiomeForest:       4,
	BiomeDenseForest:  5,
	BiomeJungle:       6,
	BiomeSavanna:      7,
	BiomeDesert:       8,
	BiomeTundra:       9,
	BiomeSnow:         10,
	BiomeMountain:     11,
	BiomeMountainSnow: 12,
	BiomeCliff:        13,
	BiomeRiver:        14,
	BiomeLake:         15,
	BiomeSwamp:        16,
	BiomeMarsh:        17,
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// WireTile renders a tile as the compact positional array the wire protocol
// sends: [x, y, h, nH, water, t, p, stp, b, c, iC, wT, v, vT, sT].
func WireTile(t Tile) []any {
	return []any{
		t.X, t.Y,
		round2(t.H), round2(t.NH),
		boolInt(t.Water),
		round2(t.Temperature), round2(t.Precipitation), round2(t.Steepness),
		biomeCode[t.Biome], t.Color,
		boolInt(t.Cliff),
		waterTypeCode[t.WaterType],
		round2(t.Vegetation),
		vegTypeCode[t.VegType],
		soilTypeCode[t.Soil],
	}
}

// WireTiles renders an entire tile slice in row-major order.
func WireTiles(tiles []Tile) [][]any {
	out := make([][]any, len(tiles))
	for i, t := range tiles {
		out[i] = WireTile(t)
	}
	return out
}
