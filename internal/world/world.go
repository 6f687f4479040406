package world

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"voxelterrain/internal/block"
	"voxelterrain/internal/config"
	"voxelterrain/internal/mesh"
)

var (
	ErrChunkNotLoaded  = errors.New("chunk not loaded")
	ErrOutOfBounds     = errors.New("position out of bounds")
	ErrChunkDisposed   = errors.New("chunk disposed")
	ErrBatchIncomplete = errors.New("batch incomplete")
)

// Generated is the output of world generation for one chunk. Blocks and
// Biomes cover the stored volume, halo included.
type Generated struct {
	Blocks     []block.Type
	Biomes     []block.Biome
	Parameters map[LocalPos]int16
}

// Generator populates freshly streamed-in chunks. Generate must be a pure
// function of its arguments and safe for concurrent use.
type Generator interface {
	Generate(pos ChunkPos, seed int64) (Generated, error)
}

// GenerationSeed is the per-chunk random seed handed to the generator.
func GenerationSeed(pos ChunkPos, size int) int64 {
	o := pos.Origin(size)
	return int64(o.X)*10000 + int64(o.Z) + 1000
}

// Options configures a World. Zero values fall back to defaults.
type Options struct {
	Dims          block.Dimensions
	Capacity      mesh.Capacity
	Strict        bool
	BuildInterval uint64
	UpdateDelay   uint64
	Workers       int

	Generator Generator
	Store     Store
	Listener  Listener
	Dropper   ItemDropper
	Sink      RenderSink
	Log       logrus.FieldLogger
}

// OptionsFromConfig maps the world, scheduler and mesh sections onto Options.
// Collaborators are left for the caller to fill in.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Dims: block.Dimensions{Size: cfg.World.ChunkSize, Height: cfg.World.Height},
		Capacity: mesh.Capacity{
			Solid:   cfg.Mesh.SolidCapacity,
			Liquid:  cfg.Mesh.LiquidCapacity,
			Foliage: cfg.Mesh.FoliageCapacity,
		},
		Strict:        cfg.Mesh.Strict,
		BuildInterval: uint64(cfg.Scheduler.BuildInterval),
		UpdateDelay:   uint64(cfg.Scheduler.UpdateDelay),
		Workers:       cfg.Scheduler.MeshWorkers,
	}
}

// World is the registry of loaded chunks and the scheduler of every edit
// and mesh build applied to them.
//
// Lock order: linkMu, then chunk locks in grid order, then publishMu.
// Batches hold linkMu for reading from their first write until publish.
// Loading, linking and unloading hold it exclusively.
type World struct {
	opts    Options
	log     logrus.FieldLogger
	builder mesh.Builder
	pool    pond.Pool

	linkMu   sync.RWMutex
	unlinked []*Chunk

	// regMu guards chunks for readers that must not wait on linkMu.
	regMu  sync.RWMutex
	chunks map[ChunkPos]*Chunk

	publishMu sync.RWMutex

	pendingMu sync.Mutex
	pending   map[ChunkPos]*pendingQueue

	updates updateScheduler

	tick      atomic.Uint64
	batches   atomic.Uint64
	tasks     atomic.Uint64
	publishes atomic.Uint64
	failures  atomic.Uint64
	closed    atomic.Bool

	// buildHook runs at the start of every mesh task.
	buildHook func(ChunkPos)
}

// New creates an empty world.
func New(opts Options) *World {
	if !opts.Dims.Valid() {
		opts.Dims = block.Dimensions{Size: 16, Height: 128}
	}
	if opts.Capacity == (mesh.Capacity{}) {
		opts.Capacity = mesh.DefaultCapacity
	}
	if opts.BuildInterval == 0 {
		opts.BuildInterval = 1
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.Listener == nil {
		opts.Listener = NopListener{}
	}
	if opts.Dropper == nil {
		opts.Dropper = nopDropper{}
	}
	if opts.Sink == nil {
		opts.Sink = nopSink{}
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	return &World{
		opts:    opts,
		log:     opts.Log,
		builder: mesh.Builder{Strict: opts.Strict},
		pool:    pond.NewPool(opts.Workers),
		chunks:  make(map[ChunkPos]*Chunk),
		pending: make(map[ChunkPos]*pendingQueue),
		updates: updateScheduler{due: make(map[BlockPos]uint64)},
	}
}

// Dimensions returns the storage extents shared by every chunk.
func (w *World) Dimensions() block.Dimensions {
	return w.opts.Dims
}

// CurrentTick returns the number of completed Tick calls.
func (w *World) CurrentTick() uint64 {
	return w.tick.Load()
}

// Chunk returns the loaded chunk at pos.
func (w *World) Chunk(pos ChunkPos) (*Chunk, bool) {
	w.regMu.RLock()
	defer w.regMu.RUnlock()
	c, ok := w.chunks[pos]
	return c, ok
}

// Loaded returns the positions of every loaded chunk in grid order.
func (w *World) Loaded() []ChunkPos {
	w.regMu.RLock()
	out := make([]ChunkPos, 0, len(w.chunks))
	for pos := range w.chunks {
		out = append(out, pos)
	}
	w.regMu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].less(out[j]) })
	return out
}

// Load makes the chunks at positions resident. New chunks are generated and
// overlaid with their stored blocks in one batch; they link to their
// neighbours on the next tick. Already loaded positions are ignored.
func (w *World) Load(positions ...ChunkPos) error {
	if w.closed.Load() {
		return ErrChunkDisposed
	}
	w.linkMu.Lock()
	b := w.newBatch()
	var errs []error
	var fresh []*Chunk
	for _, pos := range positions {
		if _, ok := w.lookup(pos); ok {
			continue
		}
		stored, ok, err := w.opts.Store.Load(pos)
		if err != nil {
			errs = append(errs, fmt.Errorf("chunk %v load: %w", pos, err))
			continue
		}
		if ok && len(stored) != w.opts.Dims.Volume() {
			errs = append(errs, fmt.Errorf("chunk %v load: stored %d blocks, want %d", pos, len(stored), w.opts.Dims.Volume()))
			continue
		}
		c := newChunk(pos, w.opts.Dims, w.opts.Capacity)
		c.world = w
		c.bornTick = w.tick.Load()
		w.register(c)
		fresh = append(fresh, c)
		b.mark(c, buildFull)
		if ok {
			b.stored[c] = stored
		}
	}

	published, err := w.dispatch(b)
	if err != nil {
		// Nothing was published; drop the chunks so a later load retries.
		for _, c := range fresh {
			w.unregister(c.pos)
			c.dispose()
		}
		errs = append(errs, err)
	} else {
		w.unlinked = append(w.unlinked, fresh...)
	}
	w.linkMu.Unlock()

	w.deliver(b, published)
	return errors.Join(errs...)
}

// StreamAround loads every chunk within radius of center (a square) and
// unloads loaded chunks more than radius+1 away.
func (w *World) StreamAround(center ChunkPos, radius int) error {
	var want []ChunkPos
	for x := center.X - radius; x <= center.X+radius; x++ {
		for z := center.Z - radius; z <= center.Z+radius; z++ {
			want = append(want, ChunkPos{X: x, Z: z})
		}
	}
	var errs []error
	for _, pos := range w.Loaded() {
		if abs(pos.X-center.X) > radius+1 || abs(pos.Z-center.Z) > radius+1 {
			if err := w.Unload(pos); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if err := w.Load(want...); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Unload saves the chunk if it was modified, unlinks it from its neighbours
// and releases its buffers. It waits for every batch in flight.
func (w *World) Unload(pos ChunkPos) error {
	w.linkMu.Lock()
	defer w.linkMu.Unlock()

	c, ok := w.lookup(pos)
	if !ok {
		return fmt.Errorf("chunk %v: %w", pos, ErrChunkNotLoaded)
	}
	if c.Modified() {
		if err := w.opts.Store.Save(pos, c.blocks); err != nil {
			return fmt.Errorf("chunk %v save: %w", pos, err)
		}
	}
	for i, n := range c.neighbors {
		d := Direction(i)
		if n != nil && n.neighbors[d.Opposite()] == c {
			n.neighbors[d.Opposite()] = nil
		}
	}
	for i, u := range w.unlinked {
		if u == c {
			w.unlinked = append(w.unlinked[:i], w.unlinked[i+1:]...)
			break
		}
	}
	w.pendingMu.Lock()
	delete(w.pending, pos)
	w.pendingMu.Unlock()
	w.updates.dropChunk(pos, w.opts.Dims.Size)

	w.unregister(pos)
	c.dispose()
	w.log.WithField("chunk", pos).Debugf("chunk %v unloaded", pos)
	return nil
}

// ResolveLinks links every chunk born before the current tick to its loaded
// neighbours. Each new link copies the facing border rows into both halos;
// chunks whose halo changed are rebuilt in one batch.
func (w *World) ResolveLinks() error {
	w.linkMu.Lock()
	tick := w.tick.Load()
	b := w.newBatch()
	remaining := w.unlinked[:0]
	for _, c := range w.unlinked {
		if c.bornTick >= tick {
			remaining = append(remaining, c)
			continue
		}
		for _, d := range Directions {
			if n, ok := w.lookup(c.pos.Add(d)); ok {
				w.link(c, d, n, b)
			}
		}
	}
	w.unlinked = remaining
	published, err := w.dispatch(b)
	w.linkMu.Unlock()

	w.deliver(b, published)
	return err
}

// link sets both neighbour slots. Calling it again for the same pair only
// re-reconciles the halos.
func (w *World) link(c *Chunk, d Direction, n *Chunk, b *batch) {
	c.neighbors[d] = n
	n.neighbors[d.Opposite()] = c
	if c.reconcileHalo(d, n) {
		b.mark(c, buildIncremental)
	}
	if n.reconcileHalo(d.Opposite(), c) {
		b.mark(n, buildIncremental)
	}
}

// Tick advances the world clock: new chunks are linked, pending queues are
// drained every build interval and due block updates fire.
func (w *World) Tick() error {
	tick := w.tick.Inc()
	var errs []error
	if err := w.ResolveLinks(); err != nil {
		errs = append(errs, err)
	}
	if tick%w.opts.BuildInterval == 0 {
		errs = append(errs, w.drainPending()...)
	}
	w.fireUpdates(tick)
	return errors.Join(errs...)
}

// Save writes every modified chunk to the store. The modified flag stays set.
func (w *World) Save() error {
	w.linkMu.RLock()
	defer w.linkMu.RUnlock()

	var errs []error
	for _, pos := range w.Loaded() {
		c, ok := w.lookup(pos)
		if !ok || !c.Modified() {
			continue
		}
		c.mu.Lock()
		err := w.opts.Store.Save(pos, c.blocks)
		c.mu.Unlock()
		if err != nil {
			w.log.WithField("chunk", pos).Errorf("chunk %v save: %v", pos, err)
			errs = append(errs, fmt.Errorf("chunk %v save: %w", pos, err))
		}
	}
	return errors.Join(errs...)
}

// Close saves modified chunks, stops the mesh pool and closes the store.
func (w *World) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := w.Save()
	w.pool.StopAndWait()
	if cerr := w.opts.Store.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("close store: %w", cerr))
	}
	return err
}

// Geometry returns the published geometry of the chunk at pos, or nil.
func (w *World) Geometry(pos ChunkPos) *mesh.Geometry {
	c, ok := w.Chunk(pos)
	if !ok {
		return nil
	}
	w.publishMu.RLock()
	defer w.publishMu.RUnlock()
	return c.Geometry()
}

// GeometrySnapshot returns the published geometry of every position in one
// consistent view: a batch is either fully visible or not at all.
func (w *World) GeometrySnapshot(positions []ChunkPos) map[ChunkPos]*mesh.Geometry {
	out := make(map[ChunkPos]*mesh.Geometry, len(positions))
	w.regMu.RLock()
	defer w.regMu.RUnlock()
	w.publishMu.RLock()
	defer w.publishMu.RUnlock()
	for _, pos := range positions {
		if c, ok := w.chunks[pos]; ok {
			out[pos] = c.Geometry()
		}
	}
	return out
}

// Stats is a point-in-time summary of scheduler activity.
type Stats struct {
	Tick           uint64
	Loaded         int
	Batches        uint64
	Tasks          uint64
	Publishes      uint64
	Failures       uint64
	PendingUpdates int
	PendingEdits   int
}

func (w *World) Stats() Stats {
	w.regMu.RLock()
	loaded := len(w.chunks)
	w.regMu.RUnlock()

	w.pendingMu.Lock()
	edits := 0
	for _, q := range w.pending {
		edits += len(q.blocks) + len(q.params)
	}
	w.pendingMu.Unlock()

	return Stats{
		Tick:           w.tick.Load(),
		Loaded:         loaded,
		Batches:        w.batches.Load(),
		Tasks:          w.tasks.Load(),
		Publishes:      w.publishes.Load(),
		Failures:       w.failures.Load(),
		PendingUpdates: w.updates.len(),
		PendingEdits:   edits,
	}
}

func (w *World) lookup(pos ChunkPos) (*Chunk, bool) {
	w.regMu.RLock()
	c, ok := w.chunks[pos]
	w.regMu.RUnlock()
	return c, ok
}

func (w *World) register(c *Chunk) {
	w.regMu.Lock()
	w.chunks[c.pos] = c
	w.regMu.Unlock()
}

func (w *World) unregister(pos ChunkPos) {
	w.regMu.Lock()
	delete(w.chunks, pos)
	w.regMu.Unlock()
}

// locate resolves a world position to a loaded chunk. Callers hold linkMu.
func (w *World) locate(pos BlockPos) (*Chunk, LocalPos, error) {
	if pos.Y < 0 || pos.Y >= w.opts.Dims.Height {
		return nil, LocalPos{}, fmt.Errorf("block %v: %w", pos, ErrOutOfBounds)
	}
	cp, lp := Locate(pos, w.opts.Dims.Size)
	c, ok := w.lookup(cp)
	if !ok {
		return nil, LocalPos{}, fmt.Errorf("chunk %v: %w", cp, ErrChunkNotLoaded)
	}
	return c, lp, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
