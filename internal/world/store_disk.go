package world

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"voxelterrain/internal/block"
)

const (
	diskOpDelete byte = 0
	diskOpSet    byte = 1

	// op, chunk x, chunk z, payload size
	diskHeaderSize = 13
)

type diskRecordMeta struct {
	offset int64
	size   uint32
}

// DiskStore appends every save to a single log file and keeps an in-memory
// index of the latest record per chunk. The index is rebuilt by scanning the
// log on open.
type DiskStore struct {
	file    *os.File
	codec   *blockCodec
	mu      sync.RWMutex
	records map[ChunkPos]diskRecordMeta
}

// NewDiskStore opens (or creates) the chunk log beneath dir.
func NewDiskStore(dir string, level int) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chunk directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "chunks.log"), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open chunk file: %w", err)
	}
	codec, err := newBlockCodec(level)
	if err != nil {
		f.Close()
		return nil, err
	}
	s := &DiskStore{
		file:    f,
		codec:   codec,
		records: make(map[ChunkPos]diskRecordMeta),
	}
	if err := s.loadIndex(); err != nil {
		codec.close()
		f.Close()
		return nil, err
	}
	return s, nil
}

func (s *DiskStore) loadIndex() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind chunk file: %w", err)
	}

	header := make([]byte, diskHeaderSize)
	var offset int64
	for {
		if _, err := io.ReadFull(s.file, header); err != nil {
			if err == io.EOF {
				break
			}
			if err == io.ErrUnexpectedEOF {
				return fmt.Errorf("truncated chunk header: %w", err)
			}
			return fmt.Errorf("read chunk header: %w", err)
		}
		op, pos, size := decodeDiskHeader(header)
		recordOffset := offset
		offset += diskHeaderSize + int64(size)

		if _, err := s.file.Seek(int64(size), io.SeekCurrent); err != nil {
			return fmt.Errorf("seek past payload: %w", err)
		}
		if op == diskOpSet {
			s.records[pos] = diskRecordMeta{offset: recordOffset, size: size}
		} else {
			delete(s.records, pos)
		}
	}
	return nil
}

func encodeDiskHeader(op byte, pos ChunkPos, size uint32) []byte {
	header := make([]byte, diskHeaderSize)
	header[0] = op
	binary.LittleEndian.PutUint32(header[1:5], uint32(int32(pos.X)))
	binary.LittleEndian.PutUint32(header[5:9], uint32(int32(pos.Z)))
	binary.LittleEndian.PutUint32(header[9:13], size)
	return header
}

func decodeDiskHeader(header []byte) (byte, ChunkPos, uint32) {
	pos := ChunkPos{
		X: int(int32(binary.LittleEndian.Uint32(header[1:5]))),
		Z: int(int32(binary.LittleEndian.Uint32(header[5:9]))),
	}
	return header[0], pos, binary.LittleEndian.Uint32(header[9:13])
}

func (s *DiskStore) Load(pos ChunkPos) ([]block.Type, bool, error) {
	s.mu.RLock()
	meta, ok := s.records[pos]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	payload := make([]byte, meta.size)
	if _, err := s.file.ReadAt(payload, meta.offset+diskHeaderSize); err != nil {
		return nil, false, fmt.Errorf("read payload at %d: %w", meta.offset, err)
	}
	blocks, err := s.codec.decode(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode chunk %v: %w", pos, err)
	}
	return blocks, true, nil
}

func (s *DiskStore) Save(pos ChunkPos, blocks []block.Type) error {
	payload := s.codec.encode(blocks)
	return s.append(encodeDiskHeader(diskOpSet, pos, uint32(len(payload))), payload, func(offset int64) {
		s.records[pos] = diskRecordMeta{offset: offset, size: uint32(len(payload))}
	})
}

// Delete appends a tombstone for pos.
func (s *DiskStore) Delete(pos ChunkPos) error {
	return s.append(encodeDiskHeader(diskOpDelete, pos, 0), nil, func(int64) {
		delete(s.records, pos)
	})
}

func (s *DiskStore) append(header, payload []byte, index func(offset int64)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	offset, err := s.file.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("seek chunk end: %w", err)
	}
	if _, err := s.file.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if len(payload) > 0 {
		if _, err := s.file.Write(payload); err != nil {
			return fmt.Errorf("write payload: %w", err)
		}
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("sync chunk file: %w", err)
	}
	index(offset)
	return nil
}

func (s *DiskStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codec.close()
	return s.file.Close()
}
