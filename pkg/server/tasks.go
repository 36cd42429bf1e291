package server

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/nicktill/hikelog/pkg/config"
	"github.com/nicktill/hikelog/pkg/storage"
	"github.com/nicktill/hikelog/pkg/storage/badger"
	"github.com/nicktill/hikelog/pkg/transfer"
)

// RunBadgerGC reclaims value log space periodically. Every rewritten page
// leaves a stale version behind.
func RunBadgerGC(store storage.Store, stop chan bool, wg *sync.WaitGroup) {
	defer wg.Done()

	badgerStore, ok := store.(*badger.Storage)
	if !ok {
		log.Println("⚠️  Storage is not BadgerDB, skipping GC")
		return
	}

	ticker := time.NewTicker(config.BadgerGCInterval)
	defer ticker.Stop()
	log.Printf("🗑️  BadgerDB GC scheduler started (runs every %v)", config.BadgerGCInterval)

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			// Reclaim a value log file once half of it is garbage
			if err := badgerStore.RunGC(0.5); err != nil {
				log.Printf("🗑️  GC completed in %v (no rewrite needed)", time.Since(start).Round(time.Millisecond))
			} else {
				log.Printf("✅ GC completed in %v (disk space reclaimed)", time.Since(start).Round(time.Millisecond))
			}
		case <-stop:
			log.Println("🛑 Stopping BadgerDB GC scheduler")
			return
		}
	}
}

// PortOpener opens the sync port.
type PortOpener func() (io.ReadWriteCloser, error)

// RunSync answers sync commands from a host on the serial port until ctx
// is done. The port is reopened after errors, for instance when a USB
// adapter is unplugged and plugged back in.
func RunSync(ctx context.Context, open PortOpener, responder *transfer.Responder) {
	var consecutiveErrors int

	for ctx.Err() == nil {
		port, err := open()
		if err != nil {
			consecutiveErrors++
			if consecutiveErrors == 1 {
				log.Printf("❌ Failed to open sync port: %v (retrying every %v)", err, config.SyncRetryDelay)
			}
			if !sleep(ctx, config.SyncRetryDelay) {
				return
			}
			continue
		}
		if consecutiveErrors > 0 {
			log.Printf("✅ Sync port reopened after %d errors", consecutiveErrors)
			consecutiveErrors = 0
		}

		// Serve returns nil after a read timeout with nothing received;
		// keep listening on the same port.
		for err == nil && ctx.Err() == nil {
			err = responder.Serve(ctx, port)
		}
		if err != nil && ctx.Err() == nil {
			log.Printf("⚠️  Sync port error: %v", err)
			consecutiveErrors++
		}
		port.Close()

		if ctx.Err() == nil && err != nil && !sleep(ctx, config.SyncRetryDelay) {
			return
		}
	}
}

// sleep waits for d or until ctx is done, reporting whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
