package mesh

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"voxelterrain/internal/block"
)

func newVolume(size, height int) Volume {
	dims := block.Dimensions{Size: size, Height: height}
	return Volume{
		Dims:   dims,
		Blocks: make([]block.Type, dims.Volume()),
		Biomes: make([]block.Biome, dims.Columns()),
	}
}

func (v Volume) set(x, y, z int, t block.Type) {
	v.Blocks[v.Dims.Index(x, y, z)] = t
}

func build(t *testing.T, v Volume) *Geometry {
	t.Helper()
	out := NewGeometry(Capacity{})
	if err := (Builder{}).Build(v, out); err != nil {
		t.Fatalf("build: %v", err)
	}
	return out
}

func TestSingleBlockEmitsSixFaces(t *testing.T) {
	v := newVolume(3, 3)
	v.set(2, 1, 2, block.Stone)

	g := build(t, v)
	if g.Solid.Len() != 24 || len(g.Solid.Triangles) != 36 || len(g.Solid.UVs) != 24 {
		t.Fatalf("solid stream = %d vertices, %d indices, %d uvs; want 24, 36, 24",
			g.Solid.Len(), len(g.Solid.Triangles), len(g.Solid.UVs))
	}
	if g.Liquid.Len() != 0 || g.Foliage.Len() != 0 {
		t.Fatalf("stone should only produce solid geometry")
	}
	for _, vert := range g.Solid.Vertices {
		if vert.X() < 1 || vert.X() > 2 || vert.Y() < 1 || vert.Y() > 2 || vert.Z() < 1 || vert.Z() > 2 {
			t.Fatalf("vertex %v outside the unit cube at local (1,1,1)", vert)
		}
	}
}

func TestSolidFacesWindOutward(t *testing.T) {
	v := newVolume(3, 3)
	v.set(2, 1, 2, block.Stone)
	center := mgl32.Vec3{1.5, 1.5, 1.5}

	g := build(t, v)
	tris := g.Solid.Triangles
	for i := 0; i+2 < len(tris); i += 3 {
		a, b, c := g.Solid.Vertices[tris[i]], g.Solid.Vertices[tris[i+1]], g.Solid.Vertices[tris[i+2]]
		normal := b.Sub(a).Cross(c.Sub(a))
		outward := a.Add(b).Add(c).Mul(1.0 / 3).Sub(center)
		if normal.Dot(outward) <= 0 {
			t.Fatalf("triangle %d (%v %v %v) faces inward", i/3, a, b, c)
		}
	}
}

func TestHaloCullsBorderFace(t *testing.T) {
	v := newVolume(1, 1)
	v.set(1, 0, 1, block.Stone)

	// bottom is culled against the floor
	if got := build(t, v).Solid.Len(); got != 5*4 {
		t.Fatalf("isolated block = %d vertices, want 20", got)
	}

	v.set(2, 0, 1, block.Stone)
	g := build(t, v)
	if g.Solid.Len() != 4*4 {
		t.Fatalf("block with opaque east halo = %d vertices, want 16", g.Solid.Len())
	}
	east := faceCorners(cellOrigin(1, 0, 1), block.FaceEast, 1)
	for i := 0; i+3 < g.Solid.Len(); i += 4 {
		quad := [4]mgl32.Vec3{g.Solid.Vertices[i], g.Solid.Vertices[i+1], g.Solid.Vertices[i+2], g.Solid.Vertices[i+3]}
		if quad == east {
			t.Fatalf("east face should be culled by the halo")
		}
	}
}

func TestTransparentNeighbourKeepsFace(t *testing.T) {
	v := newVolume(2, 1)
	v.set(1, 0, 1, block.Stone)
	v.set(2, 0, 1, block.Leaves)

	g := build(t, v)
	// stone: 5 faces (bottom culled). leaves: west face hidden by stone, so 4.
	if g.Solid.Len() != (5+4)*4 {
		t.Fatalf("solid vertices = %d, want %d", g.Solid.Len(), (5+4)*4)
	}
}

func TestLiquidSurfaceHeight(t *testing.T) {
	v := newVolume(1, 2)
	v.set(1, 0, 1, block.Water)

	g := build(t, v)
	if g.Solid.Len() != 0 {
		t.Fatalf("water should not produce solid geometry")
	}
	// top and four sides, bottom rests on the floor
	if g.Liquid.Len() != 5*4 {
		t.Fatalf("liquid vertices = %d, want 20", g.Liquid.Len())
	}
	if top := maxY(g.Liquid.Vertices); top != liquidSurface {
		t.Fatalf("surface height = %v, want %v", top, liquidSurface)
	}

	v.Parameter = func(x, y, z int) int16 { return 4 }
	if top := maxY(build(t, v).Liquid.Vertices); top != liquidSurface/2 {
		t.Fatalf("level 4 surface = %v, want %v", top, liquidSurface/2)
	}
}

func TestStackedLiquidHasNoInnerFace(t *testing.T) {
	v := newVolume(1, 3)
	v.set(1, 0, 1, block.Water)
	v.set(1, 1, 1, block.Water)

	g := build(t, v)
	// lower cell: four sides; upper cell: four sides and a top
	if g.Liquid.Len() != 9*4 {
		t.Fatalf("liquid vertices = %d, want 36", g.Liquid.Len())
	}
	if top := maxY(g.Liquid.Vertices); top != 1+liquidSurface {
		t.Fatalf("surface height = %v, want %v", top, 1+liquidSurface)
	}
}

func TestFoliageIsDoubleSidedCross(t *testing.T) {
	v := newVolume(1, 1)
	v.set(1, 0, 1, block.TallGrass)

	g := build(t, v)
	if g.Foliage.Len() != 16 || len(g.Foliage.Triangles) != 24 {
		t.Fatalf("foliage = %d vertices, %d indices; want 16, 24", g.Foliage.Len(), len(g.Foliage.Triangles))
	}
	if g.Solid.Len() != 0 {
		t.Fatalf("foliage should not produce solid geometry")
	}
}

func TestWheatStageShiftsUV(t *testing.T) {
	v := newVolume(1, 1)
	v.set(1, 0, 1, block.Wheat)

	young := build(t, v).Foliage.UVs
	v.Parameter = func(x, y, z int) int16 { return 5 }
	ripe := build(t, v).Foliage.UVs

	if cmp.Equal(young, ripe) {
		t.Fatalf("wheat UVs should change with growth stage")
	}
	wantShift := float32(5) / block.AtlasTiles
	if d := ripe[0].X() - young[0].X(); d < wantShift-1e-6 || d > wantShift+1e-6 {
		t.Fatalf("uv shift = %v, want %v", d, wantShift)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	v := newVolume(4, 6)
	kinds := []block.Type{block.Air, block.Stone, block.Water, block.Leaves, block.TallGrass, block.GrassBlock, block.Air}
	for i := range v.Blocks {
		v.Blocks[i] = kinds[(i*7+i/5)%len(kinds)]
	}
	for i := range v.Biomes {
		v.Biomes[i] = block.Biome(i % 4)
	}

	first := build(t, v)
	reused := NewGeometry(DefaultCapacity)
	for i := 0; i < 3; i++ {
		if err := (Builder{}).Build(v, reused); err != nil {
			t.Fatalf("build: %v", err)
		}
	}
	if diff := cmp.Diff(first, reused, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("rebuild differs (-first +reused):\n%s", diff)
	}
	if diff := cmp.Diff(first, first.Clone(), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("clone differs:\n%s", diff)
	}
}

func TestInvalidVolume(t *testing.T) {
	v := newVolume(2, 2)
	v.set(1, 0, 1, block.Stone)
	out := build(t, v)
	if out.Empty() {
		t.Fatalf("expected geometry for a valid volume")
	}

	v.Blocks = v.Blocks[:3]
	err := (Builder{}).Build(v, out)
	if !errors.Is(err, ErrInvalidVolume) {
		t.Fatalf("err = %v, want ErrInvalidVolume", err)
	}
	if !out.Empty() {
		t.Fatalf("failed build should leave the output empty")
	}
}

func TestStrictBuilderPanics(t *testing.T) {
	v := newVolume(2, 2)
	v.Biomes = nil
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrInvalidVolume) {
			t.Fatalf("recover() = %v, want ErrInvalidVolume", r)
		}
	}()
	_ = Builder{Strict: true}.Build(v, NewGeometry(Capacity{}))
	t.Fatalf("strict build should panic")
}

func maxY(verts []mgl32.Vec3) float32 {
	var top float32
	for _, v := range verts {
		if v.Y() > top {
			top = v.Y()
		}
	}
	return top
}
