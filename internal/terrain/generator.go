// Package terrain fills chunks with a value-noise heightmap. Everything but
// ore placement is a function of world coordinates, so the halo of a freshly
// generated chunk already agrees with what its neighbours will generate.
package terrain

import (
	"errors"

	"voxelterrain/internal/block"
	"voxelterrain/internal/config"
	"voxelterrain/internal/world"
)

// salts keep the height, biome and decoration noise fields independent.
const (
	heightSalt  int64 = 0
	biomeSalt   int64 = 0x5bd1e995
	moistSalt   int64 = 0x27d4eb2f
	foliageSalt int64 = 0x165667b1
	kindSalt    int64 = 0x61c88647
)

// Generator implements world.Generator.
type Generator struct {
	cfg  config.TerrainConfig
	dims block.Dimensions
	seed int64
}

// New returns a generator for chunks of dims.
func New(cfg config.TerrainConfig, dims block.Dimensions, seed int64) (*Generator, error) {
	if !dims.Valid() {
		return nil, errors.New("terrain: invalid chunk dimensions")
	}
	if cfg.Octaves <= 0 {
		return nil, errors.New("terrain: octaves must be positive")
	}
	return &Generator{cfg: cfg, dims: dims, seed: seed}, nil
}

// Generate fills every cell of the chunk at pos, halo included. chunkSeed
// drives the ore scatter, which only touches interior cells.
func (g *Generator) Generate(pos world.ChunkPos, chunkSeed int64) (world.Generated, error) {
	dims := g.dims
	out := world.Generated{
		Blocks:     make([]block.Type, dims.Volume()),
		Biomes:     make([]block.Biome, dims.Columns()),
		Parameters: make(map[world.LocalPos]int16),
	}
	origin := pos.Origin(dims.Size)
	heights := make([]int, dims.Columns())

	for z := 0; z < dims.Stride(); z++ {
		for x := 0; x < dims.Stride(); x++ {
			wx, wz := origin.X+x-1, origin.Z+z-1
			surface := g.surfaceHeight(wx, wz)
			biome := g.biomeAt(wx, wz)
			heights[dims.ColumnIndex(x, z)] = surface
			out.Biomes[dims.ColumnIndex(x, z)] = biome
			g.fillColumn(out, x, z, surface, biome)
			g.decorate(out, x, z, wx, wz, surface, biome)
		}
	}
	g.scatterOres(out, heights, chunkSeed)
	return out, nil
}

func (g *Generator) surfaceHeight(wx, wz int) int {
	base := float64(g.cfg.SeaLevel)
	h := int(base + g.fractalNoise(float64(wx), float64(wz), heightSalt)*g.cfg.Amplitude)
	return clampInt(h, 1, g.dims.Height-2)
}

func (g *Generator) biomeAt(wx, wz int) block.Biome {
	temperature := g.fractalNoise(float64(wx)*0.25, float64(wz)*0.25, biomeSalt)
	moisture := g.fractalNoise(float64(wx)*0.25, float64(wz)*0.25, moistSalt)
	switch {
	case temperature > 0.25 && moisture < 0:
		return block.BiomeDesert
	case temperature < -0.3:
		return block.BiomeTundra
	case moisture > 0.15:
		return block.BiomeForest
	}
	return block.BiomePlains
}

func (g *Generator) fillColumn(out world.Generated, x, z, surface int, biome block.Biome) {
	dims := g.dims
	beach := surface <= g.cfg.SeaLevel+1
	for y := 0; y < dims.Height; y++ {
		var t block.Type
		switch {
		case y == 0:
			t = block.Bedrock
		case y < surface-3:
			t = block.Stone
		case y < surface:
			t = block.Dirt
			if biome == block.BiomeDesert || beach {
				t = block.Sand
			}
		case y == surface:
			t = block.GrassBlock
			if biome == block.BiomeDesert || beach {
				t = block.Sand
			}
		case y <= g.cfg.SeaLevel:
			t = block.Water
		default:
			t = block.Air
		}
		out.Blocks[dims.Index(x, y, z)] = t
	}
}

// decorate places a single foliage block on dry grass.
func (g *Generator) decorate(out world.Generated, x, z, wx, wz, surface int, biome block.Biome) {
	dims := g.dims
	y := surface + 1
	if y >= dims.Height || out.Blocks[dims.Index(x, surface, z)] != block.GrassBlock {
		return
	}
	if chance(wx, wz, g.seed^foliageSalt) >= g.cfg.FoliageDensity {
		return
	}

	roll := hash3(wx, wz, int(g.seed^kindSalt))
	t := block.TallGrass
	switch {
	case biome == block.BiomePlains && roll%5 == 0:
		t = block.Wheat
		out.Parameters[world.LocalPos{X: x, Y: y, Z: z}] = int16((roll >> 8) % 8)
	case roll%3 == 0:
		t = block.Flower
	}
	out.Blocks[dims.Index(x, y, z)] = t
}

// scatterOres replaces interior stone with ore. Iron only forms in the lower
// half of a column.
func (g *Generator) scatterOres(out world.Generated, heights []int, chunkSeed int64) {
	if g.cfg.OreAttempts <= 0 {
		return
	}
	dims := g.dims
	rng := newXorshift(chunkSeed ^ g.seed)
	for i := 0; i < g.cfg.OreAttempts; i++ {
		x := 1 + rng.intn(dims.Size)
		z := 1 + rng.intn(dims.Size)
		surface := heights[dims.ColumnIndex(x, z)]
		if surface <= 4 {
			continue
		}
		y := 1 + rng.intn(surface-4)
		idx := dims.Index(x, y, z)
		if out.Blocks[idx] != block.Stone {
			continue
		}
		if y < surface/2 && rng.intn(3) == 0 {
			out.Blocks[idx] = block.IronOre
		} else {
			out.Blocks[idx] = block.CoalOre
		}
	}
}
