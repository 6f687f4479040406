package world

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"voxelterrain/internal/block"
	"voxelterrain/internal/mesh"
)

// BlockEvent describes a single block change.
type BlockEvent struct {
	Chunk    ChunkPos
	Position LocalPos
	World    BlockPos
	Type     block.Type
}

// NeighborBlock is one entry of a block update's neighbour map.
type NeighborBlock struct {
	Chunk    ChunkPos
	Position LocalPos
	Type     block.Type
}

// BlockUpdate is delivered a fixed number of ticks after an edit near the
// position. Neighbors has the four sides and, when inside the vertical
// range, the top and bottom.
type BlockUpdate struct {
	BlockEvent
	Neighbors map[block.Face]NeighborBlock
}

// Listener receives block events. Events are delivered after the batch that
// caused them released its locks, so a listener may edit the world.
type Listener interface {
	BlockDestroyed(e BlockEvent)
	BlockPlaced(e BlockEvent)
	BlockUpdated(e BlockUpdate)
}

// NopListener ignores every event.
type NopListener struct{}

func (NopListener) BlockDestroyed(BlockEvent) {}
func (NopListener) BlockPlaced(BlockEvent)    {}
func (NopListener) BlockUpdated(BlockUpdate)  {}

// ItemDrop is requested when a destroyed block drops an item.
type ItemDrop struct {
	Position mgl32.Vec3
	Velocity mgl32.Vec3
	Rotate   bool
	Drop     block.Drop
	Source   block.Type
}

// ItemDropper spawns dropped items.
type ItemDropper interface {
	SpawnDrop(d ItemDrop)
}

// PublishedMesh is the geometry of one chunk in a published batch.
type PublishedMesh struct {
	Chunk    ChunkPos
	Geometry *mesh.Geometry
}

// PublishedBatch lists every chunk swapped in by one batch.
type PublishedBatch struct {
	ID     uuid.UUID
	Tick   uint64
	Meshes []PublishedMesh
}

// RenderSink receives each published batch exactly once. Geometry in the
// batch is read-only.
type RenderSink interface {
	Publish(b PublishedBatch)
}

type nopSink struct{}

func (nopSink) Publish(PublishedBatch) {}

type nopDropper struct{}

func (nopDropper) SpawnDrop(ItemDrop) {}
