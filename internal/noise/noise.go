// Package noise provides the deterministic, side-effect-free scalar fields
// the terrain generator samples: fractal Brownian motion over a seeded value
// noise primitive, domain warping, and the derived height/climate/river
// fields. Every function here is pure — identical (seed, x, y) always
// produces identical output on every host, which is what makes chunk
// generation reproducible.
package noise

import "math"

const seaLevel = 0.3

// Engine samples deterministic noise fields for one world seed.
type Engine struct {
	seed int64
}

// New returns an Engine bound to seed.
func New(seed int64) *Engine {
	return &Engine{seed: seed}
}

// FBM sums octaves layers of value noise at exponentially rising frequency
// and decaying amplitude, normalized by the cumulative amplitude so the
// result stays in [-1, 1].
func (e *Engine) FBM(x, y float64, octaves int, lacunarity, persistence float64) float64 {
	frequency := 1.0
	amplitude := 1.0
	sum := 0.0
	maxAmplitude := 0.0

	for i := 0; i < octaves; i++ {
		sum += e.valueNoise(x*frequency, y*frequency) * amplitude
		maxAmplitude += amplitude
		amplitude *= persistence
		frequency *= lacunarity
	}

	if maxAmplitude == 0 {
		return 0
	}
	return sum / maxAmplitude
}

// fbmDefault matches spec.md's default octave/lacunarity/persistence triple.
func (e *Engine) fbmDefault(x, y float64) float64 {
	return e.FBM(x, y, 4, 2.0, 0.5)
}

// DomainWarp displaces (x, y) by a noise field so downstream shapes read as
// more organic than raw value noise would produce.
func (e *Engine) DomainWarp(x, y float64) (float64, float64) {
	const amp = 30.0
	const freq = 0.01
	xf, yf := x*freq, y*freq
	wx := x + amp*e.fbmDefault(xf, yf)
	wy := y + amp*e.fbmDefault(xf+5.2, yf+1.3)
	return wx, wy
}

// Height returns raw terrain height in [-1, 1], including river carving
// above sea level.
func (e *Engine) Height(x, y float64) float64 {
	wx, wy := e.DomainWarp(x, y)
	h := e.fbmDefault(wx*0.01, wy*0.01)

	if h > seaLevel {
		carve := e.RiverMap(x, y, h) * 0.1 * math.Min(1, (h-seaLevel)*2.5)
		h -= carve
	}
	return clamp(h, -1, 1)
}

// Temperature derives a latitude/height-driven temperature field in [0, 1].
// nh is the normalized ([0,1]) height at (x, y).
func (e *Engine) Temperature(x, y, nh float64) float64 {
	latitude := math.Cos((y / 1000) * math.Pi)
	base := latitude * math.Max(0, 1-1.5*nh)
	detail := e.FBM(x*0.02, y*0.02, 3, 2.0, 0.5) * 0.2
	return clamp(base+detail, 0, 1)
}

// Precipitation derives a rain-shadowed precipitation field in [0, 1].
func (e *Engine) Precipitation(x, y, nh, t float64) float64 {
	base := e.FBM(x*0.01+100, y*0.01+100, 4, 2.0, 0.5)*0.5 + 0.5
	shadow := math.Max(0, nh-0.5) * 2 * math.Max(0, e.FBM(x*0.001, y*0.001, 1, 2.0, 0.5)) * 0.5
	p := base - shadow
	p *= 0.5 + (1-math.Abs(t-0.5)*2)*0.5
	return clamp(p, 0, 1)
}

// RiverMap returns a ridged, height-attenuated river-carving signal, zero
// below sea level.
func (e *Engine) RiverMap(x, y, h float64) float64 {
	if h < seaLevel {
		return 0
	}
	wx, wy := e.DomainWarp(x, y)
	n := e.FBM(wx*0.04, wy*0.04, 3, 2.0, 0.5)
	ridged := 1 - math.Abs(2*n-1)
	attenuation := math.Min(1, (h-seaLevel)*2.5)
	return ridged * attenuation
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// valueNoise samples seeded 2D value noise with smoothstep interpolation.
func (e *Engine) valueNoise(x, y float64) float64 {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	x1 := x0 + 1
	y1 := y0 + 1

	sx := smooth(x - float64(x0))
	sy := smooth(y - float64(y0))

	n0 := random2D(x0, y0, e.seed)
	n1 := random2D(x1, y0, e.seed)
	ix0 := lerp(n0, n1, sx)

	n2 := random2D(x0, y1, e.seed)
	n3 := random2D(x1, y1, e.seed)
	ix1 := lerp(n2, n3, sx)

	return lerp(ix0, ix1, sy)
}

func smooth(t float64) float64 {
	return t * t * (3 - 2*t)
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

func random2D(x, y int, seed int64) float64 {
	return float64(hash3(x, y, int(seed))&0xFFFF)/0x8000 - 1.0
}

// hash3 is a fast, deterministic integer hash used both for value noise
// lattice points and for per-cell resource-placement seeding.
func hash3(x, y, z int) uint32 {
	h := uint32(x*374761393 + y*668265263 + z*2147483647)
	h = (h ^ (h >> 13)) * 1274126177
	return h ^ (h >> 16)
}

// CellSeed derives a deterministic 32-bit seed for a world cell, used by the
// terrain package to drive per-cell resource-placement RNG independent of
// the noise lattice.
func CellSeed(seed int64, wx, wy int) uint32 {
	return hash3(wx, wy, int(seed))
}
