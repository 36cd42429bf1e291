package badger

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/nicktill/hikelog/pkg/storage"
)

// PageSize is the number of image bytes held by one BadgerDB value.
const PageSize = 64

// DefaultImage names the image when Config.Image is empty.
const DefaultImage = "eeprom"

// Storage implements storage.Store on top of BadgerDB (LSM tree).
// The image is split into fixed pages; pages never written read as erased.
type Storage struct {
	db     *badger.DB
	size   int
	prefix uint64

	mu    sync.Mutex // serializes writers
	stats storage.Stats
	reads atomic.Uint64
}

// Config holds BadgerDB configuration
type Config struct {
	// Path to store database files
	Path string

	// InMemory mode (for testing)
	InMemory bool

	// MaxMemoryMB limits BadgerDB memory usage in MB (0 = use defaults)
	MaxMemoryMB int64

	// Image names the byte image, so several devices can share one database
	Image string

	// Size of the image in bytes
	Size int
}

// New creates a BadgerDB storage backend
func New(cfg Config) (*Storage, error) {
	if cfg.Size <= 0 {
		return nil, fmt.Errorf("invalid image size %d", cfg.Size)
	}
	if cfg.Image == "" {
		cfg.Image = DefaultImage
	}

	opts := badger.DefaultOptions(cfg.Path).WithLogger(nil)
	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}

	// The image is tiny; keep BadgerDB's footprint tiny as well.
	memTableSize := int64(16 * 1024 * 1024)
	if cfg.MaxMemoryMB > 0 {
		memTableSize = cfg.MaxMemoryMB * 1024 * 1024 / 3
	}
	blockCacheSize := memTableSize / 2
	indexCacheSize := memTableSize / 4

	opts = opts.
		WithCompression(options.Snappy).
		WithNumVersionsToKeep(1).
		WithMemTableSize(memTableSize).
		WithNumMemtables(3).
		WithBlockCacheSize(blockCacheSize).
		WithIndexCacheSize(indexCacheSize).
		WithMaxLevels(4).
		WithNumLevelZeroTables(2).
		WithNumLevelZeroTablesStall(4).
		WithValueThreshold(1024).
		WithNumCompactors(2).
		WithValueLogMaxEntries(5000).
		WithValueLogFileSize(64 << 20).
		// each write must reach disk before returning
		WithSyncWrites(!cfg.InMemory)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return &Storage{
		db:     db,
		size:   cfg.Size,
		prefix: xxhash.Sum64String(cfg.Image),
		stats:  storage.Stats{SizeBytes: uint64(cfg.Size)},
	}, nil
}

// ReadBlock fills buf from the pages covering [addr, addr+len(buf))
func (s *Storage) ReadBlock(addr int, buf []byte) error {
	if err := storage.CheckRange(s.size, addr, len(buf)); err != nil {
		return err
	}

	err := s.db.View(func(txn *badger.Txn) error {
		return forEachPage(addr, len(buf), func(page, pageOff, bufOff, n int) error {
			data, err := s.getPage(txn, page)
			if err != nil {
				return err
			}
			copy(buf[bufOff:bufOff+n], data[pageOff:pageOff+n])
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("failed to read block at %d: %w", addr, err)
	}

	s.reads.Add(1)
	return nil
}

// WriteBlock stores data by read-modify-writing every page it touches
// inside a single transaction
func (s *Storage) WriteBlock(addr int, data []byte) error {
	if err := storage.CheckRange(s.size, addr, len(data)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		return forEachPage(addr, len(data), func(page, pageOff, dataOff, n int) error {
			current, err := s.getPage(txn, page)
			if err != nil {
				return err
			}
			copy(current[pageOff:pageOff+n], data[dataOff:dataOff+n])
			return txn.Set(makeKey(s.prefix, page), current)
		})
	})
	if err != nil {
		return fmt.Errorf("failed to write block at %d: %w", addr, err)
	}

	s.stats.Writes++
	s.stats.BytesWritten += uint64(len(data))
	s.stats.LastWrite = time.Now()
	return nil
}

// Size returns the image size in bytes
func (s *Storage) Size() int {
	return s.size
}

// Stats returns storage statistics
func (s *Storage) Stats() (*storage.Stats, error) {
	s.mu.Lock()
	stats := s.stats
	s.mu.Unlock()

	stats.Reads = s.reads.Load()
	return &stats, nil
}

// Close shuts down BadgerDB cleanly
func (s *Storage) Close() error {
	return s.db.Close()
}

// RunGC runs BadgerDB's value log garbage collection.
// discardRatio: run GC if this fraction of a file can be discarded (0.5 = 50%)
func (s *Storage) RunGC(discardRatio float64) error {
	return s.db.RunValueLogGC(discardRatio)
}

// getPage returns a private copy of a page, erased if it was never written
func (s *Storage) getPage(txn *badger.Txn, page int) ([]byte, error) {
	item, err := txn.Get(makeKey(s.prefix, page))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return erasedPage(), nil
	}
	if err != nil {
		return nil, err
	}

	data, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	if len(data) != PageSize {
		return nil, fmt.Errorf("page %d has %d bytes, want %d", page, len(data), PageSize)
	}
	return data, nil
}

// forEachPage splits [addr, addr+n) at page boundaries
func forEachPage(addr, n int, fn func(page, pageOff, off, count int) error) error {
	for off := 0; off < n; {
		page := (addr + off) / PageSize
		pageOff := (addr + off) % PageSize
		count := PageSize - pageOff
		if count > n-off {
			count = n - off
		}
		if err := fn(page, pageOff, off, count); err != nil {
			return err
		}
		off += count
	}
	return nil
}

// makeKey creates a sortable key: image_hash + page index
// Format: [image_hash (8 bytes)][page (8 bytes)]
func makeKey(prefix uint64, page int) []byte {
	key := make([]byte, 16)
	binary.BigEndian.PutUint64(key[0:8], prefix)
	binary.BigEndian.PutUint64(key[8:16], uint64(page))
	return key
}

func erasedPage() []byte {
	p := make([]byte, PageSize)
	for i := range p {
		p[i] = storage.Erased
	}
	return p
}
