package world

import "fmt"

// ChunkPos identifies a chunk on the horizontal chunk grid. Chunks span the
// full world height, so there is no vertical component.
type ChunkPos struct {
	X int
	Z int
}

func (p ChunkPos) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Z)
}

// Add returns the chunk one step away in direction d.
func (p ChunkPos) Add(d Direction) ChunkPos {
	dx, dz := d.Offset()
	return ChunkPos{X: p.X + dx, Z: p.Z + dz}
}

// Origin returns the world block coordinate of the chunk's first interior
// cell at y=0.
func (p ChunkPos) Origin(size int) BlockPos {
	return BlockPos{X: p.X * size, Z: p.Z * size}
}

// less orders chunks by X then Z. Batches lock chunks in this order.
func (p ChunkPos) less(o ChunkPos) bool {
	if p.X != o.X {
		return p.X < o.X
	}
	return p.Z < o.Z
}

// BlockPos is a block coordinate in world space.
type BlockPos struct {
	X int
	Y int
	Z int
}

func (p BlockPos) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p.X, p.Y, p.Z)
}

func (p BlockPos) add(dx, dy, dz int) BlockPos {
	return BlockPos{X: p.X + dx, Y: p.Y + dy, Z: p.Z + dz}
}

// LocalPos is a coordinate inside a chunk's stored volume. Interior cells
// are 1..size on x and z; 0 and size+1 address the halo.
type LocalPos struct {
	X int
	Y int
	Z int
}

func (p LocalPos) String() string {
	return fmt.Sprintf("[%d,%d,%d]", p.X, p.Y, p.Z)
}

// axis returns the coordinate that direction d moves along.
func (p LocalPos) axis(d Direction) int {
	if d.alongX() {
		return p.X
	}
	return p.Z
}

// withAxis returns p with the coordinate along d replaced by v.
func (p LocalPos) withAxis(d Direction, v int) LocalPos {
	if d.alongX() {
		p.X = v
	} else {
		p.Z = v
	}
	return p
}

// Locate splits a world position into its chunk and the interior local
// position inside that chunk.
func Locate(pos BlockPos, size int) (ChunkPos, LocalPos) {
	cp := ChunkPos{X: floorDiv(pos.X, size), Z: floorDiv(pos.Z, size)}
	return cp, LocalPos{
		X: pos.X - cp.X*size + 1,
		Y: pos.Y,
		Z: pos.Z - cp.Z*size + 1,
	}
}

// WorldPos converts a local position of chunk cp back into world space.
// Halo positions map onto the neighbouring chunk's interior cell.
func WorldPos(cp ChunkPos, local LocalPos, size int) BlockPos {
	return BlockPos{
		X: cp.X*size + local.X - 1,
		Y: local.Y,
		Z: cp.Z*size + local.Z - 1,
	}
}

func floorDiv(value, size int) int {
	if size <= 0 {
		return 0
	}
	if value >= 0 {
		return value / size
	}
	return -((-value - 1) / size) - 1
}
