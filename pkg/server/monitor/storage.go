package monitor

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nicktill/hikelog/pkg/storage"
)

const usageCacheDuration = 10 * time.Second

// StorageMonitor reports the disk used by the data directory together with
// the image statistics. Directory scans are cached.
type StorageMonitor struct {
	dataDir  string // empty for an in-memory store
	maxBytes int64
	store    storage.Store

	mu          sync.Mutex
	cachedUsage int64
	lastCheck   time.Time
}

// Usage is the storage section of the API.
type Usage struct {
	UsedBytes int64          `json:"used_bytes"`
	MaxBytes  int64          `json:"max_bytes"`
	OverLimit bool           `json:"over_limit"`
	Image     *storage.Stats `json:"image"`
}

// NewStorageMonitor creates a storage monitor.
func NewStorageMonitor(dataDir string, maxBytes int64, store storage.Store) *StorageMonitor {
	return &StorageMonitor{
		dataDir:  dataDir,
		maxBytes: maxBytes,
		store:    store,
	}
}

// GetUsage returns bytes used on disk, refreshed at most every 10 seconds.
func (sm *StorageMonitor) GetUsage() (int64, error) {
	if sm.dataDir == "" {
		return 0, nil
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.lastCheck.IsZero() && time.Since(sm.lastCheck) < usageCacheDuration {
		return sm.cachedUsage, nil
	}

	usage, err := dirSize(sm.dataDir)
	if err != nil {
		return 0, err
	}
	sm.cachedUsage = usage
	sm.lastCheck = time.Now()
	return usage, nil
}

// GetLimit returns the configured limit in bytes.
func (sm *StorageMonitor) GetLimit() int64 {
	return sm.maxBytes
}

// Usage combines disk usage with the store's statistics.
func (sm *StorageMonitor) Usage() (Usage, error) {
	used, err := sm.GetUsage()
	if err != nil {
		return Usage{}, err
	}
	stats, err := sm.store.Stats()
	if err != nil {
		return Usage{}, err
	}
	return Usage{
		UsedBytes: used,
		MaxBytes:  sm.maxBytes,
		OverLimit: sm.maxBytes > 0 && used > sm.maxBytes,
		Image:     stats,
	}, nil
}

// dirSize sums the disk blocks allocated to every file under path.
func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(filePath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if n, err := allocatedSize(filePath, info); err == nil {
			size += n
		} else {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
