package main

import (
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"voxelterrain/internal/block"
	"voxelterrain/internal/config"
	"voxelterrain/internal/world"
)

type eventLogger struct {
	log logrus.FieldLogger
}

func (l eventLogger) BlockDestroyed(e world.BlockEvent) {
	l.log.WithField("chunk", e.Chunk).Debugf("destroyed %v at %v", e.Type, e.World)
}

func (l eventLogger) BlockPlaced(e world.BlockEvent) {
	l.log.WithField("chunk", e.Chunk).Debugf("placed %v at %v", e.Type, e.World)
}

func (l eventLogger) BlockUpdated(e world.BlockUpdate) {
	l.log.WithField("chunk", e.Chunk).Tracef("update %v at %v with %d neighbours", e.Type, e.World, len(e.Neighbors))
}

type dropLogger struct {
	log logrus.FieldLogger
}

func (d dropLogger) SpawnDrop(drop world.ItemDrop) {
	d.log.Debugf("drop %v x%d (%v) from %v at %v", drop.Drop.Block, drop.Drop.Count, drop.Drop.Item, drop.Source, drop.Position)
}

// meshCounter stands in for a renderer and tallies the vertices it receives.
type meshCounter struct {
	log      logrus.FieldLogger
	vertices atomic.Int64
}

func (m *meshCounter) Publish(b world.PublishedBatch) {
	var n int
	for _, pm := range b.Meshes {
		n += pm.Geometry.Vertices()
	}
	total := m.vertices.Add(int64(n))
	m.log.WithField("batch", b.ID).Debugf("batch at tick %d: %d chunks, %d vertices (%d total)", b.Tick, len(b.Meshes), n, total)
}

// demoWalker moves the streaming centre east and digs and fills a shaft at
// the centre of every chunk it enters.
type demoWalker struct {
	w      *world.World
	radius int
	size   int
	height int
	center world.ChunkPos
}

func newDemoWalker(w *world.World, cfg *config.Config) *demoWalker {
	return &demoWalker{
		w:      w,
		radius: cfg.Stream.Radius,
		size:   cfg.World.ChunkSize,
		height: cfg.World.Height,
	}
}

func (d *demoWalker) step(tick uint64) error {
	origin := d.center.Origin(d.size)
	shaft := world.BlockPos{X: origin.X + d.size/2, Z: origin.Z + d.size/2}

	switch tick % 200 {
	case 50:
		edits := make([]world.BlockEdit, 0, d.height/2)
		for y := 1; y < d.height/2; y++ {
			edits = append(edits, world.BlockEdit{Pos: world.BlockPos{X: shaft.X, Y: y, Z: shaft.Z}, Type: block.Air})
		}
		return d.w.PlaceBlocks(edits, world.Destroy)
	case 100:
		for y := 1; y < d.height/4; y++ {
			if err := d.w.QueueBlock(world.BlockPos{X: shaft.X, Y: y, Z: shaft.Z}, block.Water); err != nil {
				return err
			}
		}
		return nil
	case 150:
		top := world.BlockPos{X: shaft.X, Y: d.height/4 + 1, Z: shaft.Z}
		if err := d.w.PlaceBlock(top, block.Wheat, world.Place); err != nil {
			return err
		}
		return d.w.QueueParameter(top, int16(tick/200%8), true)
	case 0:
		d.center.X++
		return d.w.StreamAround(d.center, d.radius)
	}
	return nil
}
