package badger

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/nicktill/hikelog/pkg/storage"
)

func TestBadgerStorage_WriteAndRead(t *testing.T) {
	// Use in-memory mode for tests
	store, err := New(Config{InMemory: true, Size: 1024})
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer store.Close()

	// straddles a page boundary
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if err := store.WriteBlock(PageSize-3, data); err != nil {
		t.Fatalf("WriteBlock failed: %v", err)
	}

	buf := make([]byte, len(data))
	if err := store.ReadBlock(PageSize-3, buf); err != nil {
		t.Fatalf("ReadBlock failed: %v", err)
	}
	if !bytes.Equal(buf, data) {
		t.Errorf("Expected %v, got %v", data, buf)
	}

	// neighbours on both pages are untouched
	edge := make([]byte, 2)
	store.ReadBlock(PageSize-4, edge[:1])
	store.ReadBlock(PageSize+5, edge[1:])
	if edge[0] != storage.Erased || edge[1] != storage.Erased {
		t.Errorf("Expected erased neighbours, got %v", edge)
	}
}

func TestBadgerStorage_UnwrittenReadsErased(t *testing.T) {
	store, err := New(Config{InMemory: true, Size: 256})
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer store.Close()

	buf := make([]byte, 256)
	if err := store.ReadBlock(0, buf); err != nil {
		t.Fatalf("ReadBlock failed: %v", err)
	}
	if !bytes.Equal(buf, bytes.Repeat([]byte{storage.Erased}, 256)) {
		t.Error("Expected an erased image")
	}
}

func TestBadgerStorage_OutOfRange(t *testing.T) {
	store, err := New(Config{InMemory: true, Size: 100})
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer store.Close()

	if err := store.WriteBlock(98, []byte{1, 2, 3}); !errors.Is(err, storage.ErrOutOfRange) {
		t.Errorf("Expected ErrOutOfRange, got %v", err)
	}
}

func TestBadgerStorage_ImagesAreIsolated(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "badger-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	store, err := New(Config{Path: tmpDir, Size: 64, Image: "a"})
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	if err := store.WriteBlock(0, []byte{42}); err != nil {
		t.Fatalf("WriteBlock failed: %v", err)
	}
	store.Close()

	other, err := New(Config{Path: tmpDir, Size: 64, Image: "b"})
	if err != nil {
		t.Fatalf("Failed to reopen storage: %v", err)
	}
	defer other.Close()

	buf := make([]byte, 1)
	other.ReadBlock(0, buf)
	if buf[0] != storage.Erased {
		t.Errorf("Image b sees %#x written to image a", buf[0])
	}
}

func TestBadgerStorage_Persistence(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "badger-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	// Write to first instance
	{
		store, err := New(Config{Path: tmpDir, Size: 512})
		if err != nil {
			t.Fatalf("Failed to create storage: %v", err)
		}
		if _, err := storage.Update(store, 200, []byte{0xBE, 0xB3}); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		store.Close()
	}

	// Reopen and verify data persisted
	{
		store, err := New(Config{Path: tmpDir, Size: 512})
		if err != nil {
			t.Fatalf("Failed to reopen storage: %v", err)
		}
		defer store.Close()

		buf := make([]byte, 2)
		if err := store.ReadBlock(200, buf); err != nil {
			t.Fatalf("ReadBlock failed: %v", err)
		}
		if buf[0] != 0xBE || buf[1] != 0xB3 {
			t.Errorf("Expected persisted signature, got %#v", buf)
		}

		stats, err := store.Stats()
		if err != nil {
			t.Fatalf("Stats failed: %v", err)
		}
		if stats.SizeBytes != 512 {
			t.Errorf("Expected size 512, got %d", stats.SizeBytes)
		}
	}
}

func TestForEachPage(t *testing.T) {
	var spans [][4]int
	forEachPage(PageSize-2, PageSize+4, func(page, pageOff, off, n int) error {
		spans = append(spans, [4]int{page, pageOff, off, n})
		return nil
	})

	want := [][4]int{{0, PageSize - 2, 0, 2}, {1, 0, 2, PageSize}, {2, 0, PageSize + 2, 2}}
	if len(spans) != len(want) {
		t.Fatalf("Expected %d spans, got %v", len(want), spans)
	}
	for i := range want {
		if spans[i] != want[i] {
			t.Errorf("span %d = %v, want %v", i, spans[i], want[i])
		}
	}
}
