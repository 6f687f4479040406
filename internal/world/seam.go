package world

import "voxelterrain/internal/block"

// seamTarget is one halo cell that mirrors a border cell of another chunk.
type seamTarget struct {
	chunk *Chunk
	pos   LocalPos
}

// seamTargets returns the halo cells mirroring p. The x and z axes are
// checked independently, so a corner cell yields up to two targets; the
// diagonal chunk is never a target. Absent neighbours are skipped.
func (c *Chunk) seamTargets(p LocalPos) []seamTarget {
	var out []seamTarget
	size := c.dims.Size
	for _, d := range Directions {
		if p.axis(d) != d.edge(size) {
			continue
		}
		n := c.neighbors[d]
		if n == nil || n.neighbors[d.Opposite()] != c {
			continue
		}
		out = append(out, seamTarget{chunk: n, pos: p.withAxis(d, d.Opposite().halo(size))})
	}
	return out
}

// mirrorBlock copies a border write into every mirroring halo and returns
// the chunks it wrote to.
func (c *Chunk) mirrorBlock(p LocalPos, t block.Type) []*Chunk {
	targets := c.seamTargets(p)
	out := make([]*Chunk, 0, len(targets))
	for _, tg := range targets {
		tg.chunk.Set(tg.pos, t)
		out = append(out, tg.chunk)
	}
	return out
}

// mirrorParameter copies the full parameter value at p into the mirroring
// halos, rewriting the key into each neighbour's frame. Zero clears.
func (c *Chunk) mirrorParameter(p LocalPos, v int16) []*Chunk {
	targets := c.seamTargets(p)
	out := make([]*Chunk, 0, len(targets))
	for _, tg := range targets {
		tg.chunk.SetParameter(tg.pos, v)
		out = append(out, tg.chunk)
	}
	return out
}

func (c *Chunk) mirrorClear(p LocalPos) []*Chunk {
	targets := c.seamTargets(p)
	out := make([]*Chunk, 0, len(targets))
	for _, tg := range targets {
		tg.chunk.ClearParameter(tg.pos)
		out = append(out, tg.chunk)
	}
	return out
}

// reconcileHalo overwrites c's halo row on side d with n's interior border
// row facing c, parameters included. It reports whether anything changed.
func (c *Chunk) reconcileHalo(d Direction, n *Chunk) bool {
	size := c.dims.Size
	src := d.Opposite().edge(size)
	dst := d.halo(size)
	changed := false

	for y := 0; y < c.dims.Height; y++ {
		for i := 0; i <= size+1; i++ {
			from := LocalPos{X: i, Y: y, Z: i}.withAxis(d, src)
			to := LocalPos{X: i, Y: y, Z: i}.withAxis(d, dst)
			if !n.dims.Interior(from.X, from.Z) {
				// corners of the row belong to diagonal chunks
				continue
			}
			if want := n.Get(from); c.Get(to) != want {
				c.Set(to, want)
				changed = true
			}
			if want := n.Parameter(from); c.Parameter(to) != want {
				c.SetParameter(to, want)
				changed = true
			}
		}
	}
	return changed
}
