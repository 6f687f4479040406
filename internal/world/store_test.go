package world

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"voxelterrain/internal/block"
	"voxelterrain/internal/config"
)

func sampleBlocks(seed int) []block.Type {
	out := make([]block.Type, testDims.Volume())
	for i := range out {
		out[i] = block.Type((i*7 + seed) % int(block.Wheat+1))
	}
	return out
}

func TestMemoryStoreCopies(t *testing.T) {
	s := NewMemoryStore()
	blocks := sampleBlocks(1)
	if err := s.Save(ChunkPos{1, 2}, blocks); err != nil {
		t.Fatalf("save: %v", err)
	}
	blocks[0] = block.Bedrock

	got, ok, err := s.Load(ChunkPos{1, 2})
	if err != nil || !ok {
		t.Fatalf("load = %v %v", ok, err)
	}
	if diff := cmp.Diff(sampleBlocks(1), got); diff != "" {
		t.Fatalf("stored blocks changed (-want +got):\n%s", diff)
	}
	if _, ok, _ := s.Load(ChunkPos{9, 9}); ok {
		t.Fatalf("missing chunk reported as present")
	}
}

func TestDiskStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDiskStore(dir, 2)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	neg := ChunkPos{-3, -7}
	pos := ChunkPos{4, 0}
	if err := s.Save(neg, sampleBlocks(1)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save(pos, sampleBlocks(2)); err != nil {
		t.Fatalf("save: %v", err)
	}
	// a later save replaces the earlier record
	if err := s.Save(neg, sampleBlocks(3)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Delete(pos); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = NewDiskStore(dir, 2)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	got, ok, err := s.Load(neg)
	if err != nil || !ok {
		t.Fatalf("load = %v %v", ok, err)
	}
	if diff := cmp.Diff(sampleBlocks(3), got); diff != "" {
		t.Fatalf("reloaded blocks differ (-want +got):\n%s", diff)
	}
	if _, ok, err := s.Load(pos); ok || err != nil {
		t.Fatalf("deleted chunk = %v %v, want absent", ok, err)
	}
}

func TestDiskHeaderRoundTrip(t *testing.T) {
	header := encodeDiskHeader(diskOpSet, ChunkPos{-1, 2147483647}, 99)
	if len(header) != diskHeaderSize {
		t.Fatalf("header length = %d", len(header))
	}
	op, pos, size := decodeDiskHeader(header)
	if op != diskOpSet || pos != (ChunkPos{-1, 2147483647}) || size != 99 {
		t.Fatalf("decoded %d %v %d", op, pos, size)
	}
}

func TestLevelDBStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLevelDBStore(dir, 3)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	pos := ChunkPos{-2, 5}
	if err := s.Save(pos, sampleBlocks(4)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = NewLevelDBStore(dir, 3)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, ok, err := s.Load(pos)
	if err != nil || !ok {
		t.Fatalf("load = %v %v", ok, err)
	}
	if diff := cmp.Diff(sampleBlocks(4), got); diff != "" {
		t.Fatalf("reloaded blocks differ (-want +got):\n%s", diff)
	}
	if _, ok, err := s.Load(ChunkPos{5, -2}); ok || err != nil {
		t.Fatalf("missing chunk = %v %v", ok, err)
	}
}

func TestOpenStoreBackends(t *testing.T) {
	s, err := OpenStore(config.StorageConfig{Backend: "memory"})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	s.Close()

	s, err = OpenStore(config.StorageConfig{Backend: "disk", Path: t.TempDir(), CompressionLevel: 1})
	if err != nil {
		t.Fatalf("disk: %v", err)
	}
	if _, ok := s.(*DiskStore); !ok {
		t.Fatalf("disk backend returned %T", s)
	}
	s.Close()

	if _, err := OpenStore(config.StorageConfig{Backend: "tape"}); err == nil {
		t.Fatalf("unknown backend should fail")
	}
}

func TestWorldReloadsFromDiskStore(t *testing.T) {
	dir := t.TempDir()
	open := func() Store {
		s, err := NewDiskStore(dir, 2)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		return s
	}
	pos := BlockPos{X: 2, Y: 5, Z: -3}

	tw := newTestWorld(t, func(o *Options) { o.Store = open() })
	tw.loadLinked(t, ChunkPos{0, -1})
	if err := tw.PlaceBlock(pos, block.Cobblestone, Vanish); err != nil {
		t.Fatalf("place: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	tw = newTestWorld(t, func(o *Options) { o.Store = open() })
	tw.loadLinked(t, ChunkPos{0, -1})
	if got, _ := tw.Block(pos); got != block.Cobblestone {
		t.Fatalf("reloaded block = %v, want cobblestone", got)
	}
}
