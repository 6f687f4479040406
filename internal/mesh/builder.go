package mesh

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"voxelterrain/internal/block"
)

// ErrInvalidVolume reports block or biome arrays that do not match the
// declared dimensions.
var ErrInvalidVolume = errors.New("invalid mesh volume")

// liquidSurface is the height of a liquid cell with open air above it.
const liquidSurface float32 = 0.875

// Volume is the read-only input of one build: a chunk's halo'd block array,
// its per-column biomes and a lookup for per-block parameters.
type Volume struct {
	Dims      block.Dimensions
	Blocks    []block.Type
	Biomes    []block.Biome
	Parameter func(x, y, z int) int16
}

func (v Volume) at(x, y, z int) block.Type {
	if y < 0 {
		return block.Bedrock
	}
	if y >= v.Dims.Height {
		return block.Air
	}
	return v.Blocks[v.Dims.Index(x, y, z)]
}

func (v Volume) param(x, y, z int) int16 {
	if v.Parameter == nil {
		return 0
	}
	return v.Parameter(x, y, z)
}

// Validate checks that the arrays are sized for the dimensions.
func Validate(v Volume) error {
	if !v.Dims.Valid() {
		return fmt.Errorf("%w: dimensions %+v", ErrInvalidVolume, v.Dims)
	}
	if len(v.Blocks) != v.Dims.Volume() {
		return fmt.Errorf("%w: %d blocks, want %d", ErrInvalidVolume, len(v.Blocks), v.Dims.Volume())
	}
	if len(v.Biomes) != v.Dims.Columns() {
		return fmt.Errorf("%w: %d biome columns, want %d", ErrInvalidVolume, len(v.Biomes), v.Dims.Columns())
	}
	return nil
}

// Builder converts volumes into geometry. A Builder holds no state, so one
// value may be shared by every concurrent build as long as each build writes
// into its own Geometry.
type Builder struct {
	// Strict panics on invalid input instead of returning an error.
	Strict bool
}

// Build clears out and fills it with the geometry of the interior cells of v.
// Output is fully determined by the input: cells are visited in y, z, x order
// and faces in block.Faces order.
func (b Builder) Build(v Volume, out *Geometry) error {
	out.Reset()
	if err := Validate(v); err != nil {
		if b.Strict {
			panic(err)
		}
		return err
	}

	size := v.Dims.Size
	for y := 0; y < v.Dims.Height; y++ {
		for z := 1; z <= size; z++ {
			for x := 1; x <= size; x++ {
				t := v.Blocks[v.Dims.Index(x, y, z)]
				switch t.Class() {
				case block.ClassSolid:
					buildSolid(v, out, t, x, y, z)
				case block.ClassLiquid:
					buildLiquid(v, out, t, x, y, z)
				case block.ClassFoliage:
					buildFoliage(v, out, t, x, y, z)
				}
			}
		}
	}
	return nil
}

func buildSolid(v Volume, out *Geometry, t block.Type, x, y, z int) {
	origin := cellOrigin(x, y, z)
	biome := v.Biomes[v.Dims.ColumnIndex(x, z)]
	for _, f := range block.Faces {
		dx, dy, dz := f.Offset()
		if v.at(x+dx, y+dy, z+dz).Opaque() {
			continue
		}
		tile := block.TileFor(t, f, biome, 0)
		out.Solid.quad(faceCorners(origin, f, 1), tileUVs(tile, false))
	}
}

func buildLiquid(v Volume, out *Geometry, t block.Type, x, y, z int) {
	origin := cellOrigin(x, y, z)
	biome := v.Biomes[v.Dims.ColumnIndex(x, z)]
	top := float32(1)
	if v.at(x, y+1, z) != t {
		top = liquidHeight(v.param(x, y, z))
	}
	for _, f := range block.Faces {
		dx, dy, dz := f.Offset()
		n := v.at(x+dx, y+dy, z+dz)
		if n == t || n.Opaque() {
			continue
		}
		tile := block.TileFor(t, f, biome, 0)
		out.Liquid.quad(faceCorners(origin, f, top), tileUVs(tile, false))
	}
}

func buildFoliage(v Volume, out *Geometry, t block.Type, x, y, z int) {
	origin := cellOrigin(x, y, z)
	biome := v.Biomes[v.Dims.ColumnIndex(x, z)]
	tile := block.TileFor(t, block.FaceNorth, biome, int(v.param(x, y, z)))
	front := tileUVs(tile, false)
	back := tileUVs(tile, true)
	for _, plane := range crossPlanes {
		var corners, reversed [4]mgl32.Vec3
		for i, c := range plane {
			corners[i] = origin.Add(mgl32.Vec3{c[0], c[1], c[2]})
			reversed[3-i] = corners[i]
		}
		out.Foliage.quad(corners, front)
		out.Foliage.quad(reversed, back)
	}
}

// liquidHeight lowers the surface by one eighth per level step.
func liquidHeight(level int16) float32 {
	if level < 0 {
		level = 0
	}
	if level > 7 {
		level = 7
	}
	return liquidSurface * float32(8-level) / 8
}

// cellOrigin places interior cell 1 at local coordinate 0.
func cellOrigin(x, y, z int) mgl32.Vec3 {
	return mgl32.Vec3{float32(x - 1), float32(y), float32(z - 1)}
}

// faceTemplates lists the four corners of each unit face, bottom-left first,
// counter-clockwise when seen from outside so triangle normals point out.
var faceTemplates = [...][4][3]float32{
	block.FaceTop:    {{0, 1, 0}, {0, 1, 1}, {1, 1, 1}, {1, 1, 0}},
	block.FaceBottom: {{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1}},
	block.FaceNorth:  {{1, 0, 1}, {1, 1, 1}, {0, 1, 1}, {0, 0, 1}},
	block.FaceSouth:  {{0, 0, 0}, {0, 1, 0}, {1, 1, 0}, {1, 0, 0}},
	block.FaceEast:   {{1, 0, 0}, {1, 1, 0}, {1, 1, 1}, {1, 0, 1}},
	block.FaceWest:   {{0, 0, 1}, {0, 1, 1}, {0, 1, 0}, {0, 0, 0}},
}

var crossPlanes = [...][4][3]float32{
	{{0, 0, 0}, {0, 1, 0}, {1, 1, 1}, {1, 0, 1}},
	{{1, 0, 0}, {1, 1, 0}, {0, 1, 1}, {0, 0, 1}},
}

// faceCorners offsets the face template by origin, replacing the unit top
// height with top.
func faceCorners(origin mgl32.Vec3, f block.Face, top float32) [4]mgl32.Vec3 {
	var out [4]mgl32.Vec3
	for i, c := range faceTemplates[f] {
		y := c[1]
		if y == 1 {
			y = top
		}
		out[i] = origin.Add(mgl32.Vec3{c[0], y, c[2]})
	}
	return out
}

func tileUVs(tile block.Tile, mirrored bool) [4]mgl32.Vec2 {
	u0, v0, u1, v1 := tile.UV()
	if mirrored {
		u0, u1 = u1, u0
	}
	return [4]mgl32.Vec2{{u0, v0}, {u0, v1}, {u1, v1}, {u1, v0}}
}
