package memory

import (
	"errors"
	"testing"

	"github.com/nicktill/hikelog/pkg/storage"
)

func TestMemoryStorage_StartsErased(t *testing.T) {
	store := New(32)
	defer store.Close()

	buf := make([]byte, 32)
	if err := store.ReadBlock(0, buf); err != nil {
		t.Fatalf("ReadBlock failed: %v", err)
	}
	for i, b := range buf {
		if b != storage.Erased {
			t.Fatalf("byte %d = %#x, want erased", i, b)
		}
	}
}

func TestMemoryStorage_WriteAndRead(t *testing.T) {
	store := New(64)
	defer store.Close()

	if err := store.WriteBlock(10, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("WriteBlock failed: %v", err)
	}

	buf := make([]byte, 6)
	if err := store.ReadBlock(9, buf); err != nil {
		t.Fatalf("ReadBlock failed: %v", err)
	}
	want := []byte{0xFF, 1, 2, 3, 4, 0xFF}
	for i := range want {
		if buf[i] != want[i] {
			t.Errorf("buf[%d] = %#x, want %#x", i, buf[i], want[i])
		}
	}
}

func TestMemoryStorage_OutOfRange(t *testing.T) {
	store := New(16)

	if err := store.WriteBlock(14, []byte{1, 2, 3}); !errors.Is(err, storage.ErrOutOfRange) {
		t.Errorf("Expected ErrOutOfRange, got %v", err)
	}
	if err := store.ReadBlock(-1, make([]byte, 1)); !errors.Is(err, storage.ErrOutOfRange) {
		t.Errorf("Expected ErrOutOfRange, got %v", err)
	}
}

func TestMemoryStorage_UpdateSkipsUnchanged(t *testing.T) {
	store := New(16)

	wrote, err := storage.Update(store, 0, []byte{7, 7})
	if err != nil || !wrote {
		t.Fatalf("first Update: wrote=%v err=%v", wrote, err)
	}
	wrote, err = storage.Update(store, 0, []byte{7, 7})
	if err != nil || wrote {
		t.Fatalf("second Update: wrote=%v err=%v", wrote, err)
	}

	stats, _ := store.Stats()
	if stats.Writes != 1 {
		t.Errorf("Expected 1 physical write, got %d", stats.Writes)
	}
	if stats.BytesWritten != 2 {
		t.Errorf("Expected 2 bytes written, got %d", stats.BytesWritten)
	}
	if stats.Reads != 2 {
		t.Errorf("Expected 2 reads, got %d", stats.Reads)
	}
}

func TestMemoryStorage_Fill(t *testing.T) {
	store := New(8)
	if err := storage.Fill(store, 2, 4, 0); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}

	buf := make([]byte, 8)
	store.ReadBlock(0, buf)
	want := []byte{0xFF, 0xFF, 0, 0, 0, 0, 0xFF, 0xFF}
	for i := range want {
		if buf[i] != want[i] {
			t.Errorf("buf[%d] = %#x, want %#x", i, buf[i], want[i])
		}
	}
}
