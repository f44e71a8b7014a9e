package world

// Biome enumerates the classification assigned to a tile during generation.
type Biome string

const (
	BiomeOceanDeep     Biome = "OCEAN_DEEP"
	BiomeOceanShallow  Biome = "OCEAN_SHALLOW"
	BiomeBeach         Biome = "BEACH"
	BiomeGrassland     Biome = "GRASSLAND"
	BiomeForest        Biome = "FOREST"
	BiomeDenseForest   Biome = "DENSE_FOREST"
	BiomeJungle        Biome = "JUNGLE"
	BiomeSavanna       Biome = "SAVANNA"
	BiomeDesert        Biome = "DESERT"
	BiomeTundra        Biome = "TUNDRA"
	BiomeSnow          Biome = "SNOW"
	BiomeMountain      Biome = "MOUNTAIN"
	BiomeMountainSnow  Biome = "MOUNTAIN_SNOW"
	BiomeCliff         Biome = "CLIFF"
	BiomeRiver         Biome = "RIVER"
	BiomeLake          Biome = "LAKE"
	BiomeSwamp         Biome = "SWAMP"
	BiomeMarsh         Biome = "MARSH"
)

// WaterType distinguishes the three flavors of water tile.
type WaterType string

const (
	WaterOcean WaterType = "OCEAN"
	WaterRiver WaterType = "RIVER"
	WaterLake  WaterType = "LAKE"
)

// VegetationType classifies the plant cover of a land tile.
type VegetationType string

const (
	VegetationNone        VegetationType = ""
	VegetationShrub       VegetationType = "SHRUB"
	VegetationConiferous   VegetationType = "CONIFEROUS"
	VegetationDeciduous    VegetationType = "DECIDUOUS"
)

// SoilType classifies the ground composition of a land tile.
type SoilType string

const (
	SoilNormal SoilType = "NORMAL"
	SoilRock   SoilType = "ROCK"
)

// colorIndex maps each biome to the parallel color enum the client renders.
// Rendering itself is an external collaborator; only the index is owned here.
var colorIndex = map[Biome]int{
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

// ColorFor returns the color index a client uses to render the biome.
func ColorFor(b Biome) int {
	return colorIndex[b]
}

// Tile is one grid cell, fully classified with terrain and climate fields.
// A tile is immutable once emitted except for the embedded Resource's
// Remaining count, which mining mutates in place.
type Tile struct {
	X int `json:"x"`
	Y int `json:"y"`

	H  float64 `json:"h"`  // raw height, [-1, 1]
	NH float64 `json:"nh"` // normalized height, [0, 1]

	Water     bool      `json:"water"`
	WaterType WaterType `json:"waterType,omitempty"`

	Temperature   float64 `json:"temperature"`
	Precipitation float64 `json:"precipitation"`
	Steepness     float64 `json:"steepness"`

	Biome Biome `json:"biome"`
	Color int   `json:"color"`

	// Land-only fields; zero-valued on water tiles.
	Vegetation float64        `json:"vegetation,omitempty"`
	VegType    VegetationType `json:"vegType,omitempty"`
	Soil       SoilType       `json:"soil,omitempty"`
	Cliff      bool           `json:"cliff,omitempty"`

	Resource *ResourceNode `json:"resource,omitempty"`
}

// IsLand reports whether the tile is land (the complement of Water).
func (t Tile) IsLand() bool {
	return !t.Water
}

// ResourceType enumerates the mineable/gatherable resource kinds.
type ResourceType string

const (
	ResourceWater ResourceType = "water"
	ResourceWood  ResourceType = "wood"
	ResourceCoal  ResourceType = "coal"
	ResourceIron  ResourceType = "iron"
)

// ResourceNode describes a mineable resource occupying a tile.
type ResourceNode struct {
	Type        ResourceType `json:"type"`
	Amount      int          `json:"amount"`
	Remaining   int          `json:"remaining"`
	Hardness    float64      `json:"hardness"`
	X           int          `json:"x"`
	Y           int          `json:"y"`
	RespawnTime int          `json:"respawnTime,omitempty"` // seconds; unset iff Type == ResourceWater
	HasRespawn  bool         `json:"-"`
}
