package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nicktill/hikelog/pkg/baro"
	"github.com/nicktill/hikelog/pkg/clock"
	"github.com/nicktill/hikelog/pkg/config"
	"github.com/nicktill/hikelog/pkg/sample"
	"github.com/nicktill/hikelog/pkg/sampling"
	"github.com/nicktill/hikelog/pkg/sensor"
	"github.com/nicktill/hikelog/pkg/server/monitor"
	"github.com/nicktill/hikelog/pkg/units"
)

// ErrSamplerStopped is returned by Snapshot once the sampler loop has exited.
var ErrSamplerStopped = errors.New("sampler stopped")

// Broadcaster receives every event, normally the WebSocket hub.
type Broadcaster interface {
	Broadcast(data interface{}) error
}

// Publisher forwards events to a message broker.
type Publisher interface {
	PublishReading(v interface{}) error
	PublishSnapshot(v interface{}) error
}

type snapshotResult struct {
	snap sample.Snapshot
	err  error
}

// Sampler owns the sensor. Its loop takes a reading at every minute
// boundary and whenever a snapshot is requested, so the sensor is never
// read concurrently.
type Sampler struct {
	engine  *sampling.Engine
	sensor  sensor.Reader
	clock   clock.Reader
	monitor *monitor.SamplerMonitor
	hub     Broadcaster
	pub     Publisher

	requests chan chan snapshotResult
	done     chan struct{}

	consecutiveErrors int
	lastErrorLog      time.Time
}

// NewSampler creates a sampler. pub may be nil.
func NewSampler(engine *sampling.Engine, s sensor.Reader, clk clock.Reader, mon *monitor.SamplerMonitor, hub Broadcaster, pub Publisher) *Sampler {
	return &Sampler{
		engine:   engine,
		sensor:   s,
		clock:    clk,
		monitor:  mon,
		hub:      hub,
		pub:      pub,
		requests: make(chan chan snapshotResult, config.SnapshotQueueSize),
		done:     make(chan struct{}),
	}
}

// RunSampler is the main loop: minute boundaries from the clock and
// snapshot requests, until ctx is done.
func (s *Sampler) RunSampler(ctx context.Context, minutes <-chan clock.Time) {
	defer close(s.done)
	log.Println("⏱️  Sampler started (one reading per minute)")

	for {
		select {
		case <-ctx.Done():
			log.Println("🛑 Stopping sampler")
			s.drain()
			return
		case t := <-minutes:
			if _, err := s.Sample(); err != nil {
				s.logFailure(t, err)
			}
		case reply := <-s.requests:
			snap, err := s.takeSnapshot()
			reply <- snapshotResult{snap: snap, err: err}
		}
	}
}

// drain fails snapshot requests queued behind shutdown.
func (s *Sampler) drain() {
	for {
		select {
		case reply := <-s.requests:
			reply <- snapshotResult{err: ErrSamplerStopped}
		default:
			return
		}
	}
}

// Sample reads the sensor once and stores the reading. A sensor failure
// skips the tick: nothing is stored and the failure is recorded.
func (s *Sampler) Sample() (baro.Reading, error) {
	tempRaw, pressureRaw, err := sensor.Read(s.sensor)
	if err != nil {
		s.monitor.RecordFailure(err)
		return baro.Reading{}, fmt.Errorf("read sensor: %w", err)
	}

	r, err := s.engine.StoreSample(tempRaw, pressureRaw)
	if err != nil {
		s.monitor.RecordFailure(err)
		return baro.Reading{}, fmt.Errorf("store sample: %w", err)
	}
	s.monitor.RecordSample()
	s.recovered()

	_, at, _ := s.engine.LastReading()
	view := newReadingView(r, at, s.engine.Calibrator(), units.Imperial)
	s.emit(Event{Type: EventReading, Reading: &view})
	if s.pub != nil {
		if err := s.pub.PublishReading(view); err != nil {
			log.Printf("⚠️  Failed to publish reading: %v", err)
		}
	}
	return r, nil
}

// Snapshot asks the loop to capture a snapshot and waits for it.
func (s *Sampler) Snapshot(ctx context.Context) (sample.Snapshot, error) {
	select {
	case <-s.done:
		return sample.Snapshot{}, ErrSamplerStopped
	default:
	}

	reply := make(chan snapshotResult, 1)
	select {
	case s.requests <- reply:
	case <-ctx.Done():
		return sample.Snapshot{}, ctx.Err()
	}

	select {
	case res := <-reply:
		return res.snap, res.err
	case <-s.done:
		// drained on the way out, or enqueued too late to be seen
		select {
		case res := <-reply:
			return res.snap, res.err
		default:
			return sample.Snapshot{}, ErrSamplerStopped
		}
	case <-ctx.Done():
		return sample.Snapshot{}, ctx.Err()
	}
}

func (s *Sampler) takeSnapshot() (sample.Snapshot, error) {
	tempRaw, pressureRaw, err := sensor.Read(s.sensor)
	if err != nil {
		s.monitor.RecordFailure(err)
		return sample.Snapshot{}, fmt.Errorf("read sensor: %w", err)
	}

	snap, err := s.engine.StoreSnapshot(tempRaw, pressureRaw, s.clock.Now().Packed())
	if err != nil {
		s.monitor.RecordFailure(err)
		return sample.Snapshot{}, fmt.Errorf("store snapshot: %w", err)
	}
	s.monitor.RecordSnapshot()
	log.Printf("📸 Snapshot stored: %s %s", units.SnapshotString(snap.Time), units.SnapshotValueString(snap.Sample, units.Imperial))

	view := newSnapshotView(snap, units.Imperial)
	s.emit(Event{Type: EventSnapshot, Snapshot: &view})
	if s.pub != nil {
		if err := s.pub.PublishSnapshot(view); err != nil {
			log.Printf("⚠️  Failed to publish snapshot: %v", err)
		}
	}
	return snap, nil
}

func (s *Sampler) emit(e Event) {
	if s.hub == nil {
		return
	}
	if err := s.hub.Broadcast(e); err != nil {
		log.Printf("❌ Failed to broadcast %s: %v", e.Type, err)
	}
}

// logFailure logs with exponential backoff: 1s, 2s, 4s ... 5m.
func (s *Sampler) logFailure(t clock.Time, err error) {
	s.consecutiveErrors++
	backoff := time.Duration(1<<uint(min(s.consecutiveErrors-1, 8))) * time.Second
	if backoff > 5*time.Minute {
		backoff = 5 * time.Minute
	}

	now := time.Now()
	if s.lastErrorLog.IsZero() || now.Sub(s.lastErrorLog) >= backoff {
		log.Printf("❌ Sample at %s skipped (error #%d): %v", t, s.consecutiveErrors, err)
		s.lastErrorLog = now
	}
	if s.consecutiveErrors == config.SamplerUnhealthyFailures {
		log.Printf("🚨 ALERT: sensor has failed %d times in a row", s.consecutiveErrors)
	}
}

func (s *Sampler) recovered() {
	if s.consecutiveErrors > 0 {
		log.Printf("✅ Sampler recovered after %d errors", s.consecutiveErrors)
		s.consecutiveErrors = 0
		s.lastErrorLog = time.Time{}
	}
}
