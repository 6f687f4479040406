package world

import (
	"sync"

	"go.uber.org/atomic"

	"voxelterrain/internal/block"
	"voxelterrain/internal/mesh"
)

// Chunk owns the dense block array of one column of the world, a sparse set
// of per-block parameters and the geometry built from them.
//
// The raw accessors (Get, Set, Parameter, ...) do not lock. The world calls
// them while holding the chunk's batch lock; tests and generators may call
// them on a chunk nothing else can see yet.
type Chunk struct {
	pos   ChunkPos
	dims  block.Dimensions
	world *World

	// mu is held by a batch from its first write until publish.
	mu sync.Mutex

	blocks []block.Type
	biomes []block.Biome
	params map[LocalPos]int16

	// neighbors is guarded by World.linkMu.
	neighbors [4]*Chunk
	bornTick  uint64

	modified atomic.Bool
	disposed atomic.Bool

	scratch   *mesh.Geometry
	published atomic.Pointer[mesh.Geometry]
}

func newChunk(pos ChunkPos, dims block.Dimensions, capacity mesh.Capacity) *Chunk {
	return &Chunk{
		pos:     pos,
		dims:    dims,
		blocks:  make([]block.Type, dims.Volume()),
		biomes:  make([]block.Biome, dims.Columns()),
		params:  make(map[LocalPos]int16),
		scratch: mesh.NewGeometry(capacity),
	}
}

// Pos returns the chunk's grid position.
func (c *Chunk) Pos() ChunkPos {
	return c.pos
}

// Dimensions returns the chunk's storage extents.
func (c *Chunk) Dimensions() block.Dimensions {
	return c.dims
}

// Get returns the block at p without bounds checking beyond the slice's own.
func (c *Chunk) Get(p LocalPos) block.Type {
	return c.blocks[c.dims.Index(p.X, p.Y, p.Z)]
}

// TryGet returns the block at p, or false when p lies outside the stored
// volume.
func (c *Chunk) TryGet(p LocalPos) (block.Type, bool) {
	if c.blocks == nil || !c.dims.Contains(p.X, p.Y, p.Z) {
		return block.Air, false
	}
	return c.blocks[c.dims.Index(p.X, p.Y, p.Z)], true
}

// Set writes the block at p. It does not mirror, rebuild or emit events.
func (c *Chunk) Set(p LocalPos, t block.Type) {
	c.blocks[c.dims.Index(p.X, p.Y, p.Z)] = t
	if c.dims.Interior(p.X, p.Z) {
		c.modified.Store(true)
	}
}

// Parameter returns the parameter at p, or zero when none is set.
func (c *Chunk) Parameter(p LocalPos) int16 {
	return c.params[p]
}

// SetParameter stores v at p. Zero is the absent value and removes the entry.
func (c *Chunk) SetParameter(p LocalPos, v int16) {
	if v == 0 {
		delete(c.params, p)
	} else {
		c.params[p] = v
	}
	if c.dims.Interior(p.X, p.Z) {
		c.modified.Store(true)
	}
}

// ClearParameter removes any parameter at p. Clearing twice is a no-op.
func (c *Chunk) ClearParameter(p LocalPos) {
	if _, ok := c.params[p]; !ok {
		return
	}
	delete(c.params, p)
	if c.dims.Interior(p.X, p.Z) {
		c.modified.Store(true)
	}
}

// Parameters returns the number of stored parameters.
func (c *Chunk) Parameters() int {
	return len(c.params)
}

// Neighbor returns the loaded chunk in direction d, or nil.
func (c *Chunk) Neighbor(d Direction) *Chunk {
	if c.world != nil {
		c.world.linkMu.RLock()
		defer c.world.linkMu.RUnlock()
	}
	return c.neighbors[d]
}

// Modified reports whether an interior cell changed since the chunk was
// generated or loaded.
func (c *Chunk) Modified() bool {
	return c.modified.Load()
}

// Disposed reports whether the chunk was unloaded.
func (c *Chunk) Disposed() bool {
	return c.disposed.Load()
}

// Geometry returns the last published geometry, or nil before the first
// publish. The returned value is never mutated.
func (c *Chunk) Geometry() *mesh.Geometry {
	return c.published.Load()
}

// Blocks returns a copy of the raw block array, halo included.
func (c *Chunk) Blocks() []block.Type {
	return append([]block.Type(nil), c.blocks...)
}

// Biome returns the biome of the stored column (x, z).
func (c *Chunk) Biome(x, z int) block.Biome {
	return c.biomes[c.dims.ColumnIndex(x, z)]
}

func (c *Chunk) volume() mesh.Volume {
	params := c.params
	return mesh.Volume{
		Dims:   c.dims,
		Blocks: c.blocks,
		Biomes: c.biomes,
		Parameter: func(x, y, z int) int16 {
			return params[LocalPos{X: x, Y: y, Z: z}]
		},
	}
}

// dispose releases every buffer. Callers hold the world's link lock
// exclusively, so no batch can still be using the chunk.
func (c *Chunk) dispose() {
	c.disposed.Store(true)
	c.blocks = nil
	c.biomes = nil
	c.params = nil
	c.neighbors = [4]*Chunk{}
	c.scratch = nil
	c.published.Store(nil)
}
