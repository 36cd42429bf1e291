package storage

import (
	"bytes"
	"errors"
	"fmt"
	"time"
)

// Erased is the value of a byte that was never written.
const Erased = 0xFF

// ErrOutOfRange is returned for a block that does not fit inside the image.
var ErrOutOfRange = errors.New("storage: address out of range")

// Store is an addressable non-volatile byte image.
// Implementations: memory (testing), badger (production)
//
// Reads and writes are synchronous. Callers serialize writes; a write
// either completes or returns an error.
type Store interface {
	// ReadBlock fills buf from addr
	ReadBlock(addr int, buf []byte) error

	// WriteBlock stores data at addr
	WriteBlock(addr int, data []byte) error

	// Size returns the image size in bytes
	Size() int

	// Stats returns storage statistics
	Stats() (*Stats, error)

	// Close cleanly shuts down the storage
	Close() error
}

// Stats provides storage health and usage info
type Stats struct {
	// Image size in bytes
	SizeBytes uint64 `json:"size_bytes"`

	// Block reads and writes served
	Reads  uint64 `json:"reads"`
	Writes uint64 `json:"writes"`

	// Bytes physically written
	BytesWritten uint64 `json:"bytes_written"`

	// Time of the most recent write
	LastWrite time.Time `json:"last_write"`
}

// CheckRange validates a block against an image of the given size.
func CheckRange(size, addr, n int) error {
	if addr < 0 || n < 0 || addr+n > size {
		return fmt.Errorf("%w: [%d, %d) in %d bytes", ErrOutOfRange, addr, addr+n, size)
	}
	return nil
}

// Update writes data at addr only if the stored bytes differ, so that an
// unchanged cell is never rewritten. It reports whether a write happened.
func Update(s Store, addr int, data []byte) (bool, error) {
	current := make([]byte, len(data))
	if err := s.ReadBlock(addr, current); err != nil {
		return false, err
	}
	if bytes.Equal(current, data) {
		return false, nil
	}
	if err := s.WriteBlock(addr, data); err != nil {
		return false, err
	}
	return true, nil
}

// Fill writes n copies of b starting at addr, skipping cells that already hold b.
func Fill(s Store, addr, n int, b byte) error {
	_, err := Update(s, addr, bytes.Repeat([]byte{b}, n))
	return err
}
