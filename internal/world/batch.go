package world

import (
	"errors"
	"fmt"
	"sort"

	"github.com/alitto/pond/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"voxelterrain/internal/block"
)

// BatchState tracks one batch through its edit, build and publish cycle.
type BatchState uint8

const (
	BatchCollecting BatchState = iota
	BatchDispatched
	BatchAwaitingCompletion
	BatchPublished
)

func (s BatchState) String() string {
	switch s {
	case BatchCollecting:
		return "collecting"
	case BatchDispatched:
		return "dispatched"
	case BatchAwaitingCompletion:
		return "awaiting-completion"
	case BatchPublished:
		return "published"
	}
	return "unknown"
}

type buildMode uint8

const (
	// buildIncremental meshes the chunk's current data.
	buildIncremental buildMode = iota
	// buildFull regenerates the chunk's data before meshing.
	buildFull
)

type batchEvent struct {
	destroyed bool
	event     BlockEvent
}

// batch collects the chunks touched by a group of writes. Each chunk is
// recorded once no matter how many writes hit it.
type batch struct {
	id     uuid.UUID
	state  BatchState
	chunks []*Chunk
	modes  map[*Chunk]buildMode
	stored map[*Chunk][]block.Type

	events []batchEvent
	drops  []ItemDrop
}

func (w *World) newBatch() *batch {
	return &batch{
		id:     uuid.New(),
		state:  BatchCollecting,
		modes:  make(map[*Chunk]buildMode),
		stored: make(map[*Chunk][]block.Type),
	}
}

func (b *batch) mark(c *Chunk, mode buildMode) {
	prev, ok := b.modes[c]
	if !ok {
		b.chunks = append(b.chunks, c)
	}
	if !ok || mode > prev {
		b.modes[c] = mode
	}
}

// dispatch submits one mesh task per chunk, joins all of them and publishes
// every chunk's geometry under a single publish lock. If any task fails,
// nothing is published. Callers hold linkMu and the lock of every chunk in
// the batch (or linkMu exclusively).
func (w *World) dispatch(b *batch) (PublishedBatch, error) {
	if len(b.chunks) == 0 {
		return PublishedBatch{}, nil
	}
	logger := w.log.WithFields(logrus.Fields{"batch": b.id, "tasks": len(b.chunks)})

	b.state = BatchDispatched
	tasks := make([]pond.Task, 0, len(b.chunks))
	for _, c := range b.chunks {
		c, mode, stored := c, b.modes[c], b.stored[c]
		tasks = append(tasks, w.pool.SubmitErr(func() error {
			return w.build(c, mode, stored)
		}))
	}
	w.tasks.Add(uint64(len(tasks)))

	b.state = BatchAwaitingCompletion
	var errs []error
	for i, task := range tasks {
		if err := task.Wait(); err != nil {
			errs = append(errs, fmt.Errorf("chunk %v: %w", b.chunks[i].pos, err))
		}
	}
	if len(errs) > 0 {
		w.failures.Inc()
		err := fmt.Errorf("%w: %w", ErrBatchIncomplete, errors.Join(errs...))
		logger.Errorf("batch %v not published: %v", b.id, err)
		return PublishedBatch{}, err
	}

	out := PublishedBatch{
		ID:     b.id,
		Tick:   w.tick.Load(),
		Meshes: make([]PublishedMesh, 0, len(b.chunks)),
	}
	w.publishMu.Lock()
	for _, c := range b.chunks {
		g := c.scratch.Clone()
		c.published.Store(g)
		out.Meshes = append(out.Meshes, PublishedMesh{Chunk: c.pos, Geometry: g})
	}
	w.publishMu.Unlock()
	b.state = BatchPublished

	w.batches.Inc()
	w.publishes.Add(uint64(len(b.chunks)))
	logger.Debugf("batch %v published %d chunks", b.id, len(b.chunks))
	return out, nil
}

// build is the body of one mesh task.
func (w *World) build(c *Chunk, mode buildMode, stored []block.Type) error {
	if hook := w.buildHook; hook != nil {
		hook(c.pos)
	}
	if c.Disposed() {
		return ErrChunkDisposed
	}
	if mode == buildFull {
		if err := w.generate(c, stored); err != nil {
			return err
		}
	}
	return w.builder.Build(c.volume(), c.scratch)
}

// generate repopulates c from the generator, then overlays stored blocks.
func (w *World) generate(c *Chunk, stored []block.Type) error {
	for k := range c.params {
		delete(c.params, k)
	}
	if gen := w.opts.Generator; gen != nil {
		out, err := gen.Generate(c.pos, GenerationSeed(c.pos, c.dims.Size))
		if err != nil {
			return fmt.Errorf("generate: %w", err)
		}
		if len(out.Blocks) != len(c.blocks) {
			return fmt.Errorf("generate: %d blocks, want %d", len(out.Blocks), len(c.blocks))
		}
		copy(c.blocks, out.Blocks)
		if out.Biomes != nil {
			if len(out.Biomes) != len(c.biomes) {
				return fmt.Errorf("generate: %d biome columns, want %d", len(out.Biomes), len(c.biomes))
			}
			copy(c.biomes, out.Biomes)
		}
		for k, v := range out.Parameters {
			if v != 0 {
				c.params[k] = v
			}
		}
	}
	if stored != nil {
		copy(c.blocks, stored)
	}
	c.modified.Store(false)
	return nil
}

// deliver hands a finished batch to the collaborators. It runs after every
// lock is released.
func (w *World) deliver(b *batch, published PublishedBatch) {
	if len(published.Meshes) > 0 {
		w.opts.Sink.Publish(published)
	}
	for _, e := range b.events {
		if e.destroyed {
			w.opts.Listener.BlockDestroyed(e.event)
		} else {
			w.opts.Listener.BlockPlaced(e.event)
		}
	}
	for _, d := range b.drops {
		w.opts.Dropper.SpawnDrop(d)
	}
}

// lockClosure locks roots and every linked neighbour of a root in grid order
// and returns the matching unlock. Callers hold linkMu for reading.
func lockClosure(roots []*Chunk) func() {
	all := make([]*Chunk, 0, len(roots)*5)
	for _, c := range roots {
		all = append(all, c)
		for _, n := range c.neighbors {
			if n != nil {
				all = append(all, n)
			}
		}
	}
	return lockChunks(all)
}

// lockChunks locks each distinct chunk once, in grid order.
func lockChunks(chunks []*Chunk) func() {
	seen := make(map[*Chunk]bool, len(chunks))
	locked := make([]*Chunk, 0, len(chunks))
	for _, c := range chunks {
		if !seen[c] {
			seen[c] = true
			locked = append(locked, c)
		}
	}
	sort.Slice(locked, func(i, j int) bool { return locked[i].pos.less(locked[j].pos) })
	for _, c := range locked {
		c.mu.Lock()
	}
	return func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].mu.Unlock()
		}
	}
}
