package world

import (
	"fmt"

	"github.com/klauspost/compress/zstd"

	"voxelterrain/internal/block"
	"voxelterrain/internal/config"
)

// Store persists the raw block arrays of modified chunks. Parameters are
// not persisted.
type Store interface {
	Save(pos ChunkPos, blocks []block.Type) error
	Load(pos ChunkPos) ([]block.Type, bool, error)
	Close() error
}

// OpenStore creates the backend selected by cfg.
func OpenStore(cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "disk":
		s, err := NewDiskStore(cfg.Path, cfg.CompressionLevel)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "leveldb":
		s, err := NewLevelDBStore(cfg.Path, cfg.CompressionLevel)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

// blockCodec compresses block arrays. Both directions are safe for
// concurrent use.
type blockCodec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newBlockCodec(level int) (*blockCodec, error) {
	if level < int(zstd.SpeedFastest) || level > int(zstd.SpeedBestCompression) {
		level = int(zstd.SpeedDefault)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevel(level)))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &blockCodec{enc: enc, dec: dec}, nil
}

func (c *blockCodec) encode(blocks []block.Type) []byte {
	raw := make([]byte, len(blocks))
	for i, t := range blocks {
		raw[i] = byte(t)
	}
	return c.enc.EncodeAll(raw, nil)
}

func (c *blockCodec) decode(payload []byte) ([]block.Type, error) {
	raw, err := c.dec.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress blocks: %w", err)
	}
	out := make([]block.Type, len(raw))
	for i, b := range raw {
		out[i] = block.Type(b)
	}
	return out, nil
}

func (c *blockCodec) close() {
	c.enc.Close()
	c.dec.Close()
}
