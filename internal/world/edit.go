package world

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"voxelterrain/internal/block"
)

// EditOptions selects the side effects of a block edit.
type EditOptions struct {
	EmitDestroyEvent  bool
	EmitPlaceEvent    bool
	DropItemOnDestroy bool
	DropVelocity      mgl32.Vec3
	RotateDrop        bool
}

var (
	// Vanish changes blocks without events or drops.
	Vanish = EditOptions{}
	// Destroy emits a destroy event and drops the broken block's item.
	Destroy = EditOptions{
		EmitDestroyEvent:  true,
		DropItemOnDestroy: true,
		DropVelocity:      mgl32.Vec3{0, 2, 0},
		RotateDrop:        true,
	}
	// Place emits a place event.
	Place = EditOptions{EmitPlaceEvent: true}
)

// BlockEdit is one write of a bulk edit.
type BlockEdit struct {
	Pos  BlockPos
	Type block.Type
}

// PlaceBlock writes one block and republishes every chunk it touched.
func (w *World) PlaceBlock(pos BlockPos, t block.Type, opts EditOptions) error {
	return w.PlaceBlocks([]BlockEdit{{Pos: pos, Type: t}}, opts)
}

// PlaceBlocks applies all edits, then runs a single build and publish cycle
// over the edited chunks and every neighbour bordering an edited cell.
// Rewriting the type a cell already holds is still a full edit. Destroy
// events carry the previous type even when it was air. Positions are
// validated up front: if any is unloaded or out of range, nothing is
// written. Later edits to the same position win.
func (w *World) PlaceBlocks(edits []BlockEdit, opts EditOptions) error {
	if len(edits) == 0 {
		return nil
	}
	w.linkMu.RLock()
	b, published, err := w.applyEdits(edits, opts)
	w.linkMu.RUnlock()

	if b != nil {
		w.deliver(b, published)
	}
	return err
}

type resolvedEdit struct {
	chunk *Chunk
	local LocalPos
	world BlockPos
	typ   block.Type
}

func (w *World) applyEdits(edits []BlockEdit, opts EditOptions) (*batch, PublishedBatch, error) {
	resolved := make([]resolvedEdit, 0, len(edits))
	var roots []*Chunk
	seen := make(map[*Chunk]bool)
	for _, e := range edits {
		if !e.Type.Valid() {
			return nil, PublishedBatch{}, fmt.Errorf("block %v: unknown type %v", e.Pos, e.Type)
		}
		c, lp, err := w.locate(e.Pos)
		if err != nil {
			return nil, PublishedBatch{}, err
		}
		if !seen[c] {
			seen[c] = true
			roots = append(roots, c)
		}
		resolved = append(resolved, resolvedEdit{chunk: c, local: lp, world: e.Pos, typ: e.Type})
	}

	unlock := lockClosure(roots)
	defer unlock()

	b := w.newBatch()
	for _, e := range resolved {
		c, p := e.chunk, e.local
		prev := c.Get(p)
		c.Set(p, e.typ)
		b.mark(c, buildIncremental)
		for _, n := range c.mirrorBlock(p, e.typ) {
			b.mark(n, buildIncremental)
		}

		if opts.EmitDestroyEvent {
			b.events = append(b.events, batchEvent{destroyed: true, event: BlockEvent{
				Chunk: c.pos, Position: p, World: e.world, Type: prev,
			}})
		}
		if opts.DropItemOnDestroy {
			if d := block.DropFor(prev); d.Item != block.ItemNone {
				b.drops = append(b.drops, ItemDrop{
					Position: mgl32.Vec3{float32(e.world.X) + 0.5, float32(e.world.Y) + 0.5, float32(e.world.Z) + 0.5},
					Velocity: opts.DropVelocity,
					Rotate:   opts.RotateDrop,
					Drop:     d,
					Source:   prev,
				})
			}
		}
		if opts.EmitPlaceEvent {
			b.events = append(b.events, batchEvent{event: BlockEvent{
				Chunk: c.pos, Position: p, World: e.world, Type: e.typ,
			}})
		}
		w.scheduleUpdatesAround(e.world)
	}

	published, err := w.dispatch(b)
	return b, published, err
}

// Rebuild meshes the chunks at positions again without changing their data.
func (w *World) Rebuild(positions ...ChunkPos) error {
	w.linkMu.RLock()
	var roots []*Chunk
	for _, pos := range positions {
		c, ok := w.lookup(pos)
		if !ok {
			w.linkMu.RUnlock()
			return fmt.Errorf("chunk %v: %w", pos, ErrChunkNotLoaded)
		}
		roots = append(roots, c)
	}
	unlock := lockChunks(roots)
	b := w.newBatch()
	for _, c := range roots {
		b.mark(c, buildIncremental)
	}
	published, err := w.dispatch(b)
	unlock()
	w.linkMu.RUnlock()

	w.deliver(b, published)
	return err
}

// Block returns the block at pos.
func (w *World) Block(pos BlockPos) (block.Type, error) {
	w.linkMu.RLock()
	defer w.linkMu.RUnlock()
	c, lp, err := w.locate(pos)
	if err != nil {
		return block.Air, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Get(lp), nil
}

// Parameter returns the parameter at pos, zero when absent.
func (w *World) Parameter(pos BlockPos) (int16, error) {
	w.linkMu.RLock()
	defer w.linkMu.RUnlock()
	c, lp, err := w.locate(pos)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Parameter(lp), nil
}

// SetParameter stores v at pos and mirrors it across seams. Zero removes the
// entry. Parameter writes alone do not rebuild geometry.
func (w *World) SetParameter(pos BlockPos, v int16) error {
	return w.editParameter(pos, func(c *Chunk, p LocalPos) {
		c.SetParameter(p, v)
		c.mirrorParameter(p, v)
	})
}

// ClearParameter removes the parameter at pos and its mirrors.
func (w *World) ClearParameter(pos BlockPos) error {
	return w.editParameter(pos, func(c *Chunk, p LocalPos) {
		c.ClearParameter(p)
		c.mirrorClear(p)
	})
}

func (w *World) editParameter(pos BlockPos, fn func(c *Chunk, p LocalPos)) error {
	w.linkMu.RLock()
	defer w.linkMu.RUnlock()
	c, lp, err := w.locate(pos)
	if err != nil {
		return err
	}
	unlock := lockClosure([]*Chunk{c})
	defer unlock()
	fn(c, lp)
	return nil
}
