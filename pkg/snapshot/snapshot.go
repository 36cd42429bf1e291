// Package snapshot implements the user snapshot log: a fixed ring of
// timestamped samples in persistent storage.
//
// Slots are not managed by a write index. Every insert scans for the oldest
// timestamp and overwrites it, which keeps the log correct whatever order
// earlier writes reached the medium in.
package snapshot

import (
	"encoding/binary"
	"fmt"

	"github.com/nicktill/hikelog/pkg/sample"
	"github.com/nicktill/hikelog/pkg/storage"
)

// Log is a snapshot ring occupying [base, base+capacity*SnapshotSize) of a store.
type Log struct {
	store    storage.Store
	base     int
	capacity int
}

// New returns a log over a region of store.
func New(store storage.Store, base, capacity int) (*Log, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("snapshot: capacity %d leaves no room", capacity)
	}
	if err := storage.CheckRange(store.Size(), base, capacity*sample.SnapshotSize); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return &Log{store: store, base: base, capacity: capacity}, nil
}

// Max returns the number of slots.
func (l *Log) Max() int {
	return l.capacity
}

func (l *Log) addr(i int) int {
	return l.base + i*sample.SnapshotSize
}

func (l *Log) timestamp(i int) (sample.Timestamp, error) {
	var b [4]byte
	if err := l.store.ReadBlock(l.addr(i), b[:]); err != nil {
		return 0, err
	}
	return sample.Timestamp(binary.LittleEndian.Uint32(b[:])), nil
}

// Put overwrites the slot holding the oldest timestamp. Ties go to the
// lowest index. It returns the slot written.
func (l *Log) Put(ts sample.Timestamp, s sample.Sample) (int, error) {
	oldest := 0
	oldestTime := sample.Timestamp(0xFFFFFFFF)
	for i := 0; i < l.capacity; i++ {
		t, err := l.timestamp(i)
		if err != nil {
			return 0, err
		}
		if t < oldestTime {
			oldestTime = t
			oldest = i
		}
	}

	b, err := sample.Snapshot{Time: ts, Sample: s}.MarshalBinary()
	if err != nil {
		return 0, err
	}
	if _, err := storage.Update(l.store, l.addr(oldest), b); err != nil {
		return 0, err
	}
	return oldest, nil
}

// NewestIndex returns the slot with the largest timestamp. Ties go to the
// highest index, so an empty log reports its last slot.
func (l *Log) NewestIndex() (int, error) {
	newest := 0
	newestTime := sample.Timestamp(0)
	for i := 0; i < l.capacity; i++ {
		t, err := l.timestamp(i)
		if err != nil {
			return 0, err
		}
		if t >= newestTime {
			newestTime = t
			newest = i
		}
	}
	return newest, nil
}

// Get reads slot i.
func (l *Log) Get(i int) (sample.Snapshot, error) {
	if i < 0 || i >= l.capacity {
		return sample.Snapshot{}, fmt.Errorf("snapshot: index %d out of range [0, %d)", i, l.capacity)
	}
	b := make([]byte, sample.SnapshotSize)
	if err := l.store.ReadBlock(l.addr(i), b); err != nil {
		return sample.Snapshot{}, err
	}
	var snap sample.Snapshot
	err := snap.UnmarshalBinary(b)
	return snap, err
}

// Count returns the number of slots before the first empty one.
func (l *Log) Count() (int, error) {
	for i := 0; i < l.capacity; i++ {
		t, err := l.timestamp(i)
		if err != nil {
			return 0, err
		}
		if t == 0 {
			return i, nil
		}
	}
	return l.capacity, nil
}

// Newest returns the most recent snapshot. An empty log returns a
// snapshot with a zero timestamp.
func (l *Log) Newest() (sample.Snapshot, error) {
	i, err := l.NewestIndex()
	if err != nil {
		return sample.Snapshot{}, err
	}
	return l.Get(i)
}

// Chronological returns the Count snapshots ending at the newest slot,
// oldest first.
func (l *Log) Chronological() ([]sample.Snapshot, error) {
	n, err := l.Count()
	if err != nil {
		return nil, err
	}
	newest, err := l.NewestIndex()
	if err != nil {
		return nil, err
	}

	i := newest + 1 - n
	if i < 0 {
		i += l.capacity
	}

	out := make([]sample.Snapshot, 0, n)
	for k := 0; k < n; k++ {
		snap, err := l.Get(i)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
		if i++; i == l.capacity {
			i = 0
		}
	}
	return out, nil
}

// Clear zeroes every slot.
func (l *Log) Clear() error {
	return storage.Fill(l.store, l.base, l.capacity*sample.SnapshotSize, 0)
}
