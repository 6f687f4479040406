package world

import (
	"sync"

	"voxelterrain/internal/block"
)

type memoryStore struct {
	mu     sync.RWMutex
	chunks map[ChunkPos][]block.Type
}

// NewMemoryStore returns a store that keeps copies of saved chunks in memory.
func NewMemoryStore() Store {
	return &memoryStore{chunks: make(map[ChunkPos][]block.Type)}
}

func (m *memoryStore) Load(pos ChunkPos) ([]block.Type, bool, error) {
	m.mu.RLock()
	blocks, ok := m.chunks[pos]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	dup := make([]block.Type, len(blocks))
	copy(dup, blocks)
	return dup, true, nil
}

func (m *memoryStore) Save(pos ChunkPos, blocks []block.Type) error {
	dup := make([]block.Type, len(blocks))
	copy(dup, blocks)
	m.mu.Lock()
	m.chunks[pos] = dup
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) Close() error {
	return nil
}
