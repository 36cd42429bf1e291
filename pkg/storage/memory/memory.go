package memory

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/nicktill/hikelog/pkg/storage"
)

// Storage keeps the image in memory. Data is lost on restart.
// Useful for testing and development.
type Storage struct {
	mu    sync.RWMutex
	image []byte
	stats storage.Stats
	reads atomic.Uint64
}

// New creates an erased in-memory image of size bytes
func New(size int) *Storage {
	image := make([]byte, size)
	for i := range image {
		image[i] = storage.Erased
	}
	return &Storage{
		image: image,
		stats: storage.Stats{SizeBytes: uint64(size)},
	}
}

// ReadBlock copies len(buf) bytes starting at addr
func (s *Storage) ReadBlock(addr int, buf []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := storage.CheckRange(len(s.image), addr, len(buf)); err != nil {
		return err
	}
	copy(buf, s.image[addr:])
	s.reads.Add(1)
	return nil
}

// WriteBlock stores data starting at addr
func (s *Storage) WriteBlock(addr int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := storage.CheckRange(len(s.image), addr, len(data)); err != nil {
		return err
	}
	copy(s.image[addr:], data)

	s.stats.Writes++
	s.stats.BytesWritten += uint64(len(data))
	s.stats.LastWrite = time.Now()
	return nil
}

// Size returns the image size
func (s *Storage) Size() int {
	return len(s.image)
}

// Stats returns write statistics
func (s *Storage) Stats() (*storage.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := s.stats
	stats.Reads = s.reads.Load()
	return &stats, nil
}

// Close is a no-op for memory storage
func (s *Storage) Close() error {
	return nil
}
