package terrain

import "math"

// fractalNoise sums octaves of value noise at world coordinates and returns
// a value in [-1, 1].
func (g *Generator) fractalNoise(x, z float64, salt int64) float64 {
	frequency := g.cfg.Frequency
	amplitude := 1.0
	noiseSum := 0.0
	maxAmplitude := 0.0

	for i := 0; i < g.cfg.Octaves; i++ {
		noiseSum += g.valueNoise(x*frequency, z*frequency, salt) * amplitude
		maxAmplitude += amplitude
		amplitude *= g.cfg.Persistence
		frequency *= g.cfg.Lacunarity
	}

	if maxAmplitude == 0 {
		return 0
	}
	return noiseSum / maxAmplitude
}

func (g *Generator) valueNoise(x, z float64, salt int64) float64 {
	x0 := int(math.Floor(x))
	z0 := int(math.Floor(z))
	x1 := x0 + 1
	z1 := z0 + 1

	sx := smooth(x - float64(x0))
	sz := smooth(z - float64(z0))

	seed := g.seed ^ salt
	ix0 := lerp(random2D(x0, z0, seed), random2D(x1, z0, seed), sx)
	ix1 := lerp(random2D(x0, z1, seed), random2D(x1, z1, seed), sx)
	return lerp(ix0, ix1, sz)
}

func smooth(t float64) float64 {
	return t * t * (3 - 2*t)
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

func random2D(x, z int, seed int64) float64 {
	return float64(hash3(x, z, int(seed))&0xFFFF)/0x8000 - 1.0
}

// chance maps a world cell to [0, 1].
func chance(x, z int, seed int64) float64 {
	return float64(hash3(x, z, int(seed))&0xFFFF) / 0xFFFF
}

func hash3(x, y, z int) uint32 {
	h := uint32(x*374761393 + y*668265263 + z*2147483647)
	h = (h ^ (h >> 13)) * 1274126177
	return h ^ (h >> 16)
}

// xorshift is a small deterministic generator for per-chunk decoration.
type xorshift struct {
	state uint64
}

func newXorshift(seed int64) *xorshift {
	state := uint64(seed)
	if state == 0 {
		state = 0x9e3779b97f4a7c15
	}
	return &xorshift{state: state}
}

func (r *xorshift) next() uint64 {
	r.state ^= r.state << 7
	r.state ^= r.state >> 9
	r.state ^= r.state << 8
	return r.state
}

func (r *xorshift) intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.next() % uint64(n))
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
