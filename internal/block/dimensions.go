package block

// Dimensions describes the storage volume of a chunk. Size is the interior
// width on both horizontal axes; storage adds a one cell halo on every
// horizontal side, so interior cells live at 1..Size and the halo at 0 and
// Size+1.
type Dimensions struct {
	Size   int
	Height int
}

// Stride is the stored width of one horizontal axis, halo included.
func (d Dimensions) Stride() int {
	return d.Size + 2
}

// Volume is the number of cells in the dense block array.
func (d Dimensions) Volume() int {
	s := d.Stride()
	return s * s * d.Height
}

// Columns is the number of stored (x, z) columns, halo included.
func (d Dimensions) Columns() int {
	s := d.Stride()
	return s * s
}

// Index maps a stored coordinate to its position in the dense array. It does
// not check bounds.
func (d Dimensions) Index(x, y, z int) int {
	s := d.Stride()
	return x + z*s + y*s*s
}

// ColumnIndex maps a stored horizontal coordinate to a per-column array index.
func (d Dimensions) ColumnIndex(x, z int) int {
	return x + z*d.Stride()
}

// Contains reports whether the stored coordinate (halo included) is inside the volume.
func (d Dimensions) Contains(x, y, z int) bool {
	s := d.Stride()
	return x >= 0 && x < s && z >= 0 && z < s && y >= 0 && y < d.Height
}

// Interior reports whether the horizontal coordinate is owned by the chunk
// rather than mirrored from a neighbour.
func (d Dimensions) Interior(x, z int) bool {
	return x >= 1 && x <= d.Size && z >= 1 && z <= d.Size
}

// Valid reports whether both extents are positive.
func (d Dimensions) Valid() bool {
	return d.Size > 0 && d.Height > 0
}
