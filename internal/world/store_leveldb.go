package world

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/df-mc/goleveldb/leveldb"
	"github.com/df-mc/goleveldb/leveldb/opt"

	"voxelterrain/internal/block"
)

// LevelDBStore keeps one zstd-compressed record per chunk in a leveldb
// database. The database's own block compression is disabled.
type LevelDBStore struct {
	db    *leveldb.DB
	codec *blockCodec
}

// NewLevelDBStore opens (or creates) the database at dir.
func NewLevelDBStore(dir string, level int) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(dir, &opt.Options{
		Compression: opt.NoCompression,
		BlockSize:   16 * opt.KiB,
	})
	if err != nil {
		return nil, fmt.Errorf("open leveldb: %w", err)
	}
	codec, err := newBlockCodec(level)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &LevelDBStore{db: db, codec: codec}, nil
}

func levelDBKey(pos ChunkPos) []byte {
	key := make([]byte, 9)
	key[0] = 'c'
	binary.BigEndian.PutUint32(key[1:5], uint32(int32(pos.X)))
	binary.BigEndian.PutUint32(key[5:9], uint32(int32(pos.Z)))
	return key
}

func (s *LevelDBStore) Load(pos ChunkPos) ([]block.Type, bool, error) {
	payload, err := s.db.Get(levelDBKey(pos), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get chunk %v: %w", pos, err)
	}
	blocks, err := s.codec.decode(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode chunk %v: %w", pos, err)
	}
	return blocks, true, nil
}

func (s *LevelDBStore) Save(pos ChunkPos, blocks []block.Type) error {
	if err := s.db.Put(levelDBKey(pos), s.codec.encode(blocks), nil); err != nil {
		return fmt.Errorf("put chunk %v: %w", pos, err)
	}
	return nil
}

func (s *LevelDBStore) Close() error {
	s.codec.close()
	return s.db.Close()
}
