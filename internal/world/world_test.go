package world

import (
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"voxelterrain/internal/block"
	"voxelterrain/internal/config"
)

var testDims = block.Dimensions{Size: 4, Height: 8}

// flatGenerator fills every column up to level with fill. Every chunk is
// identical, so halos agree with their neighbours from the start.
type flatGenerator struct {
	dims  block.Dimensions
	level int
	fill  block.Type
}

func (g flatGenerator) Generate(pos ChunkPos, seed int64) (Generated, error) {
	out := Generated{
		Blocks: make([]block.Type, g.dims.Volume()),
		Biomes: make([]block.Biome, g.dims.Columns()),
	}
	for y := 0; y < g.level && y < g.dims.Height; y++ {
		for z := 0; z < g.dims.Stride(); z++ {
			for x := 0; x < g.dims.Stride(); x++ {
				out.Blocks[g.dims.Index(x, y, z)] = g.fill
			}
		}
	}
	return out, nil
}

type failingGenerator struct{}

func (failingGenerator) Generate(ChunkPos, int64) (Generated, error) {
	return Generated{}, errors.New("noise exploded")
}

type recordingSink struct {
	mu      sync.Mutex
	batches []PublishedBatch
}

func (s *recordingSink) Publish(b PublishedBatch) {
	s.mu.Lock()
	s.batches = append(s.batches, b)
	s.mu.Unlock()
}

func (s *recordingSink) reset() {
	s.mu.Lock()
	s.batches = nil
	s.mu.Unlock()
}

func (s *recordingSink) snapshot() []PublishedBatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PublishedBatch(nil), s.batches...)
}

// counts returns how many times each chunk was published.
func (s *recordingSink) counts() map[ChunkPos]int {
	out := make(map[ChunkPos]int)
	for _, b := range s.snapshot() {
		for _, m := range b.Meshes {
			out[m.Chunk]++
		}
	}
	return out
}

type recordingListener struct {
	mu        sync.Mutex
	destroyed []BlockEvent
	placed    []BlockEvent
	updates   []BlockUpdate
}

func (l *recordingListener) BlockDestroyed(e BlockEvent) {
	l.mu.Lock()
	l.destroyed = append(l.destroyed, e)
	l.mu.Unlock()
}

func (l *recordingListener) BlockPlaced(e BlockEvent) {
	l.mu.Lock()
	l.placed = append(l.placed, e)
	l.mu.Unlock()
}

func (l *recordingListener) BlockUpdated(e BlockUpdate) {
	l.mu.Lock()
	l.updates = append(l.updates, e)
	l.mu.Unlock()
}

func (l *recordingListener) updatesAt(pos BlockPos) []BlockUpdate {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []BlockUpdate
	for _, u := range l.updates {
		if u.World == pos {
			out = append(out, u)
		}
	}
	return out
}

type recordingDropper struct {
	mu    sync.Mutex
	drops []ItemDrop
}

func (d *recordingDropper) SpawnDrop(drop ItemDrop) {
	d.mu.Lock()
	d.drops = append(d.drops, drop)
	d.mu.Unlock()
}

type testWorld struct {
	*World
	sink     *recordingSink
	listener *recordingListener
	dropper  *recordingDropper
	store    Store
}

func quietLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestWorld(t *testing.T, mutate func(*Options)) *testWorld {
	t.Helper()
	tw := &testWorld{
		sink:     &recordingSink{},
		listener: &recordingListener{},
		dropper:  &recordingDropper{},
		store:    NewMemoryStore(),
	}
	opts := Options{
		Dims:        testDims,
		Workers:     4,
		UpdateDelay: 10,
		Generator:   flatGenerator{dims: testDims, level: 2, fill: block.Stone},
		Store:       tw.store,
		Listener:    tw.listener,
		Dropper:     tw.dropper,
		Sink:        tw.sink,
		Log:         quietLogger(),
	}
	if mutate != nil {
		mutate(&opts)
	}
	tw.World = New(opts)
	t.Cleanup(func() {
		_ = tw.Close()
	})
	return tw
}

// loadLinked loads the chunks and runs one tick so they link.
func (tw *testWorld) loadLinked(t *testing.T, positions ...ChunkPos) {
	t.Helper()
	if err := tw.Load(positions...); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := tw.Tick(); err != nil {
		t.Fatalf("tick: %v", err)
	}
}

func (tw *testWorld) chunk(t *testing.T, pos ChunkPos) *Chunk {
	t.Helper()
	c, ok := tw.Chunk(pos)
	if !ok {
		t.Fatalf("chunk %v not loaded", pos)
	}
	return c
}

func TestLoadGeneratesAndPublishesInOneBatch(t *testing.T) {
	tw := newTestWorld(t, nil)
	positions := []ChunkPos{{0, 0}, {1, 0}, {0, 1}}
	if err := tw.Load(positions...); err != nil {
		t.Fatalf("load: %v", err)
	}

	batches := tw.sink.snapshot()
	if len(batches) != 1 || len(batches[0].Meshes) != len(positions) {
		t.Fatalf("expected one batch with %d meshes, got %+v", len(positions), batches)
	}
	for _, pos := range positions {
		g := tw.Geometry(pos)
		if g.Empty() {
			t.Fatalf("chunk %v has no geometry after load", pos)
		}
		c := tw.chunk(t, pos)
		if got := c.Get(LocalPos{X: 1, Y: 0, Z: 1}); got != block.Stone {
			t.Fatalf("chunk %v generated %v at the floor, want stone", pos, got)
		}
		if c.Modified() {
			t.Fatalf("freshly generated chunk %v should not be modified", pos)
		}
	}

	// loading again is a no-op
	if err := tw.Load(positions...); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if n := len(tw.sink.snapshot()); n != 1 {
		t.Fatalf("reloading loaded chunks published %d batches, want 1", n)
	}
}

func TestLinkingIsDeferredToNextTick(t *testing.T) {
	tw := newTestWorld(t, nil)
	if err := tw.Load(ChunkPos{0, 0}, ChunkPos{1, 0}); err != nil {
		t.Fatalf("load: %v", err)
	}
	a := tw.chunk(t, ChunkPos{0, 0})
	if a.Neighbor(East) != nil {
		t.Fatalf("chunks should not link during construction")
	}
	if err := tw.Tick(); err != nil {
		t.Fatalf("tick: %v", err)
	}
	b := tw.chunk(t, ChunkPos{1, 0})
	if a.Neighbor(East) != b || b.Neighbor(West) != a {
		t.Fatalf("chunks should link on the next tick")
	}
}

func TestSymmetryAfterLinking(t *testing.T) {
	tw := newTestWorld(t, nil)
	var positions []ChunkPos
	for x := -1; x <= 1; x++ {
		for z := -1; z <= 1; z++ {
			positions = append(positions, ChunkPos{x, z})
		}
	}
	tw.loadLinked(t, positions...)

	for _, pos := range positions {
		c := tw.chunk(t, pos)
		for _, d := range Directions {
			n := c.Neighbor(d)
			other, loaded := tw.Chunk(pos.Add(d))
			if loaded != (n != nil) {
				t.Fatalf("chunk %v %v slot = %v, loaded = %v", pos, d, n, loaded)
			}
			if n == nil {
				continue
			}
			if n != other {
				t.Fatalf("chunk %v %v neighbour is %v, want %v", pos, d, n.Pos(), other.Pos())
			}
			if n.Neighbor(d.Opposite()) != c {
				t.Fatalf("chunk %v %v link is not reciprocal", pos, d)
			}
		}
	}
}

func TestLoadFailureLeavesNothingBehind(t *testing.T) {
	tw := newTestWorld(t, func(o *Options) {
		o.Generator = failingGenerator{}
	})
	err := tw.Load(ChunkPos{0, 0})
	if !errors.Is(err, ErrBatchIncomplete) {
		t.Fatalf("load error = %v, want ErrBatchIncomplete", err)
	}
	if _, ok := tw.Chunk(ChunkPos{0, 0}); ok {
		t.Fatalf("failed chunk should not stay registered")
	}
	if len(tw.sink.snapshot()) != 0 {
		t.Fatalf("failed load should publish nothing")
	}
	if tw.Stats().Failures != 1 {
		t.Fatalf("stats should count the failed batch")
	}
}

func TestUnloadSavesModifiedAndReloadRestores(t *testing.T) {
	tw := newTestWorld(t, nil)
	tw.loadLinked(t, ChunkPos{0, 0}, ChunkPos{1, 0})
	a := tw.chunk(t, ChunkPos{0, 0})

	pos := BlockPos{X: 1, Y: 5, Z: 1}
	if err := tw.PlaceBlock(pos, block.Planks, Vanish); err != nil {
		t.Fatalf("place: %v", err)
	}
	if !a.Modified() {
		t.Fatalf("interior edit should mark the chunk modified")
	}

	if err := tw.Unload(ChunkPos{0, 0}); err != nil {
		t.Fatalf("unload: %v", err)
	}
	if !a.Disposed() {
		t.Fatalf("unloaded chunk should be disposed")
	}
	if b := tw.chunk(t, ChunkPos{1, 0}); b.Neighbor(West) != nil {
		t.Fatalf("unload should clear the neighbour's slot")
	}
	if _, ok, _ := tw.store.Load(ChunkPos{0, 0}); !ok {
		t.Fatalf("modified chunk should be saved on unload")
	}
	if _, err := tw.Block(pos); !errors.Is(err, ErrChunkNotLoaded) {
		t.Fatalf("block read on unloaded chunk = %v, want ErrChunkNotLoaded", err)
	}

	tw.loadLinked(t, ChunkPos{0, 0})
	got, err := tw.Block(pos)
	if err != nil {
		t.Fatalf("block: %v", err)
	}
	if got != block.Planks {
		t.Fatalf("reloaded block = %v, want planks", got)
	}
	if err := tw.Unload(ChunkPos{5, 5}); !errors.Is(err, ErrChunkNotLoaded) {
		t.Fatalf("unload of missing chunk = %v, want ErrChunkNotLoaded", err)
	}
}

func TestStreamAroundLoadsAndEvicts(t *testing.T) {
	tw := newTestWorld(t, nil)
	if err := tw.StreamAround(ChunkPos{0, 0}, 1); err != nil {
		t.Fatalf("stream: %v", err)
	}
	if n := len(tw.Loaded()); n != 9 {
		t.Fatalf("loaded %d chunks, want 9", n)
	}
	if err := tw.StreamAround(ChunkPos{10, 0}, 1); err != nil {
		t.Fatalf("stream: %v", err)
	}
	for _, pos := range tw.Loaded() {
		if pos.X < 9 {
			t.Fatalf("chunk %v should have been evicted", pos)
		}
	}
	if n := tw.Stats().Loaded; n != 9 {
		t.Fatalf("stats report %d loaded chunks, want 9", n)
	}
}

func TestSaveKeepsModifiedFlag(t *testing.T) {
	tw := newTestWorld(t, nil)
	tw.loadLinked(t, ChunkPos{0, 0})
	if err := tw.PlaceBlock(BlockPos{X: 2, Y: 4, Z: 2}, block.Log, Vanish); err != nil {
		t.Fatalf("place: %v", err)
	}
	if err := tw.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	stored, ok, err := tw.store.Load(ChunkPos{0, 0})
	if err != nil || !ok {
		t.Fatalf("stored chunk missing: %v", err)
	}
	if stored[testDims.Index(3, 4, 3)] != block.Log {
		t.Fatalf("saved array does not contain the edit")
	}
	if !tw.chunk(t, ChunkPos{0, 0}).Modified() {
		t.Fatalf("save should not reset the modified flag")
	}
}

func TestGenerationSeed(t *testing.T) {
	if got, want := GenerationSeed(ChunkPos{X: 1, Z: 2}, 16), int64(16*10000+32+1000); got != want {
		t.Fatalf("seed = %d, want %d", got, want)
	}
	if got, want := GenerationSeed(ChunkPos{X: -1, Z: 0}, 16), int64(-160000+1000); got != want {
		t.Fatalf("seed = %d, want %d", got, want)
	}
}

func TestLocateRoundTrips(t *testing.T) {
	for _, pos := range []BlockPos{{0, 0, 0}, {3, 1, 3}, {4, 2, 0}, {-1, 0, -1}, {-4, 3, -5}} {
		cp, lp := Locate(pos, 4)
		if !testDims.Interior(lp.X, lp.Z) {
			t.Fatalf("Locate(%v) = %v %v, not interior", pos, cp, lp)
		}
		if back := WorldPos(cp, lp, 4); back != pos {
			t.Fatalf("WorldPos(Locate(%v)) = %v", pos, back)
		}
	}
	if cp, _ := Locate(BlockPos{X: -1, Z: 4}, 4); cp != (ChunkPos{X: -1, Z: 1}) {
		t.Fatalf("Locate negative = %v", cp)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	opts := OptionsFromConfig(cfg)
	if opts.Dims.Size != cfg.World.ChunkSize || opts.Dims.Height != cfg.World.Height {
		t.Fatalf("dims = %+v", opts.Dims)
	}
	if opts.UpdateDelay != 10 || opts.BuildInterval != 1 {
		t.Fatalf("scheduler options = %+v", opts)
	}
	if opts.Capacity.Solid != cfg.Mesh.SolidCapacity {
		t.Fatalf("capacity = %+v", opts.Capacity)
	}
}
