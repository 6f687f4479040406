package world

import (
	"sort"
	"sync"

	"voxelterrain/internal/block"
)

// updateScheduler maps positions to the tick their block update is due. A
// position is scheduled at most once; later requests keep the first tick.
type updateScheduler struct {
	mu  sync.Mutex
	due map[BlockPos]uint64
}

func (s *updateScheduler) schedule(pos BlockPos, at uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.due[pos]; exists {
		return
	}
	s.due[pos] = at
}

// take removes and returns every update due at or before tick, sorted by
// position.
func (s *updateScheduler) take(tick uint64) []BlockPos {
	s.mu.Lock()
	var out []BlockPos
	for pos, at := range s.due {
		if at > tick {
			continue
		}
		delete(s.due, pos)
		out = append(out, pos)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		return a.X < b.X
	})
	return out
}

func (s *updateScheduler) dropChunk(cp ChunkPos, size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for pos := range s.due {
		if c, _ := Locate(pos, size); c == cp {
			delete(s.due, pos)
		}
	}
}

func (s *updateScheduler) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.due)
}

var updateOffsets = [...][3]int{
	{0, 0, 0},
	{0, 1, 0}, {0, -1, 0},
	{0, 0, 1}, {0, 0, -1},
	{1, 0, 0}, {-1, 0, 0},
}

// scheduleUpdatesAround schedules updates for pos and its six neighbours.
// Positions outside the world height or in unloaded chunks are skipped.
func (w *World) scheduleUpdatesAround(pos BlockPos) {
	at := w.tick.Load() + w.opts.UpdateDelay
	for _, off := range updateOffsets {
		p := pos.add(off[0], off[1], off[2])
		if p.Y < 0 || p.Y >= w.opts.Dims.Height {
			continue
		}
		cp, _ := Locate(p, w.opts.Dims.Size)
		if _, ok := w.lookup(cp); !ok {
			continue
		}
		w.updates.schedule(p, at)
	}
}

// fireUpdates delivers every update due at tick. Events are built under the
// chunk locks and delivered after they are released.
func (w *World) fireUpdates(tick uint64) {
	due := w.updates.take(tick)
	if len(due) == 0 {
		return
	}
	events := make([]BlockUpdate, 0, len(due))
	w.linkMu.RLock()
	for _, pos := range due {
		c, lp, err := w.locate(pos)
		if err != nil {
			continue
		}
		unlock := lockClosure([]*Chunk{c})
		events = append(events, c.blockUpdate(lp, pos))
		unlock()
	}
	w.linkMu.RUnlock()

	for _, e := range events {
		w.opts.Listener.BlockUpdated(e)
	}
}

var faceDirections = map[block.Face]Direction{
	block.FaceEast:  East,
	block.FaceWest:  West,
	block.FaceNorth: North,
	block.FaceSouth: South,
}

// blockUpdate builds the update event for p. A side that crosses into a
// linked neighbour resolves to the neighbour's interior cell; without a
// neighbour it falls back to this chunk's halo. Sides above or below the
// column are omitted.
func (c *Chunk) blockUpdate(p LocalPos, pos BlockPos) BlockUpdate {
	u := BlockUpdate{
		BlockEvent: BlockEvent{Chunk: c.pos, Position: p, World: pos, Type: c.Get(p)},
		Neighbors:  make(map[block.Face]NeighborBlock, len(block.Faces)),
	}
	for _, f := range block.Faces {
		dx, dy, dz := f.Offset()
		q := LocalPos{X: p.X + dx, Y: p.Y + dy, Z: p.Z + dz}
		owner, local := c, q
		if !c.dims.Interior(q.X, q.Z) {
			d := faceDirections[f]
			if n := c.neighbors[d]; n != nil {
				owner, local = n, q.withAxis(d, d.Opposite().edge(c.dims.Size))
			}
		}
		t, ok := owner.TryGet(local)
		if !ok {
			continue
		}
		u.Neighbors[f] = NeighborBlock{Chunk: owner.pos, Position: local, Type: t}
	}
	return u
}
