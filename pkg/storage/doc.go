/*
Package storage provides the persistent byte-image abstraction for hikelog.

# Store Interface

The sampling engine never touches a storage medium directly. It addresses a
flat byte image through the Store interface:

	type Store interface {
	    ReadBlock(addr int, buf []byte) error
	    WriteBlock(addr int, data []byte) error
	    Size() int
	    Stats() (*Stats, error)
	    Close() error
	}

Backends:
  - memory: RAM image for tests and ephemeral runs
  - badger: BadgerDB image that survives restarts

A fresh image reads as Erased (0xFF) everywhere, like factory-empty EEPROM.
The engine detects this through its header signature and initializes the
image itself.

# Wear

Use Update instead of WriteBlock for anything written repeatedly. It reads
first and skips the write when nothing changed, so rewriting a cursor with
its current value costs no write cycle.

# Concurrency

Writes are synchronous and not queued. A backend may be shared by readers,
but callers must serialize writers; the sampling engine does this with its
own lock.

# Usage Example

	store, err := badger.New(badger.Config{Path: "./data", Size: 1024})
	if err != nil {
	    log.Fatal(err)
	}
	defer store.Close()

	if _, err := storage.Update(store, 3, []byte{42}); err != nil {
	    log.Fatal(err)
	}
*/
package storage
