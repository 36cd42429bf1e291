// Package sampling stores quantized readings in rolling buffers, one per
// timescale, split between RAM and a persistent store, and derives trends
// from them.
package sampling

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/nicktill/hikelog/pkg/baro"
	"github.com/nicktill/hikelog/pkg/clock"
	"github.com/nicktill/hikelog/pkg/sample"
	"github.com/nicktill/hikelog/pkg/snapshot"
	"github.com/nicktill/hikelog/pkg/storage"
)

// Engine owns the sample buffers. Writes are serialized; reads may run
// concurrently with each other.
type Engine struct {
	mu sync.RWMutex

	cfg    Config
	layout Layout
	store  storage.Store
	clock  clock.Reader
	cal    *baro.Calibrator
	snaps  *snapshot.Log

	ram  [][]sample.Sample // nil for persistent timescales
	next []int             // RAM cursors
	slot []int             // persistent ordinal, -1 for RAM

	last       baro.Reading
	lastTime   clock.Time
	hasReading bool
}

// New validates cfg against store and returns an engine. Call Init before use.
func New(cfg Config, store storage.Store, clk clock.Reader, cal *baro.Calibrator) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	layout, err := cfg.Layout(store.Size())
	if err != nil {
		return nil, err
	}
	snaps, err := snapshot.New(store, layout.SnapshotsBase, layout.SnapshotCount)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:    cfg,
		layout: layout,
		store:  store,
		clock:  clk,
		cal:    cal,
		snaps:  snaps,
		ram:    make([][]sample.Sample, len(cfg.Timescales)),
		next:   make([]int, len(cfg.Timescales)),
		slot:   make([]int, len(cfg.Timescales)),
	}
	ordinal := 0
	for i, ts := range cfg.Timescales {
		if ts.Persistent {
			e.slot[i] = ordinal
			ordinal++
			continue
		}
		e.slot[i] = -1
		e.ram[i] = make([]sample.Sample, cfg.Capacity)
	}
	return e, nil
}

// Init clears the RAM buffers. The persistent image is wiped when its
// signature is missing or forceClear is set; otherwise it is left as is.
// It reports whether the image was wiped.
func (e *Engine) Init(forceClear bool) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.ram {
		clear(e.ram[i])
		e.next[i] = 0
	}
	e.last = baro.Reading{}
	e.lastTime = clock.Time{}
	e.hasReading = false

	var sig [2]byte
	if err := e.store.ReadBlock(0, sig[:]); err != nil {
		return false, fmt.Errorf("read signature: %w", err)
	}
	if binary.LittleEndian.Uint16(sig[:]) == Signature && !forceClear {
		return false, nil
	}

	header := make([]byte, e.layout.HeaderSize)
	binary.LittleEndian.PutUint16(header, Signature)
	if _, err := storage.Update(e.store, 0, header); err != nil {
		return false, fmt.Errorf("write header: %w", err)
	}
	n := e.layout.SnapshotsBase - e.layout.SamplesBase
	if err := storage.Fill(e.store, e.layout.SamplesBase, n, 0); err != nil {
		return false, fmt.Errorf("clear samples: %w", err)
	}
	if err := e.snaps.Clear(); err != nil {
		return false, fmt.Errorf("clear snapshots: %w", err)
	}
	return true, nil
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Layout returns the placement of persistent data.
func (e *Engine) Layout() Layout {
	return e.layout
}

// Capacity returns the number of samples in each timescale.
func (e *Engine) Capacity() int {
	return e.cfg.Capacity
}

// Timescales returns a copy of the configured timescales.
func (e *Engine) Timescales() []Timescale {
	return append([]Timescale(nil), e.cfg.Timescales...)
}

// Calibrator returns the calibrator used to derive altitude.
func (e *Engine) Calibrator() *baro.Calibrator {
	return e.cal
}

// Snapshots returns the snapshot log.
func (e *Engine) Snapshots() *snapshot.Log {
	return e.snaps
}

// LastReading returns the most recent reading and the clock time it was
// taken at. ok is false until the first sample or snapshot.
func (e *Engine) LastReading() (r baro.Reading, at clock.Time, ok bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.last, e.lastTime, e.hasReading
}

// StoreSample quantizes one raw reading and writes it to the base
// timescale and to every timescale whose cadence divides the current
// minute of the day.
func (e *Engine) StoreSample(tempRaw, pressureRaw int) (baro.Reading, error) {
	r := e.cal.Convert(tempRaw, pressureRaw)
	now := e.clock.Now()
	minute := now.MinuteOfDay()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.last, e.lastTime, e.hasReading = r, now, true

	for i, ts := range e.cfg.Timescales {
		if i != 0 && minute%ts.Cadence != 0 {
			continue
		}
		if err := e.append(i, r.Sample); err != nil {
			return r, fmt.Errorf("timescale %d: %w", i, err)
		}
	}
	return r, nil
}

func (e *Engine) append(ts int, s sample.Sample) error {
	if e.slot[ts] < 0 {
		idx := e.next[ts]
		e.ram[ts][idx] = s
		e.next[ts] = (idx + 1) % e.cfg.Capacity
		return nil
	}

	idx, err := e.persistentCursor(ts)
	if err != nil {
		return err
	}
	b, _ := s.MarshalBinary()
	if _, err := storage.Update(e.store, e.sampleAddr(ts, idx), b); err != nil {
		return err
	}
	cursor := []byte{byte((idx + 1) % e.cfg.Capacity)}
	_, err = storage.Update(e.store, e.cursorAddr(ts), cursor)
	return err
}

func (e *Engine) cursorAddr(ts int) int {
	return 3 + 4*e.slot[ts]
}

func (e *Engine) sampleAddr(ts, idx int) int {
	return e.layout.SamplesBase + (e.slot[ts]*e.cfg.Capacity+idx)*sample.Size
}

func (e *Engine) persistentCursor(ts int) (int, error) {
	var b [1]byte
	if err := e.store.ReadBlock(e.cursorAddr(ts), b[:]); err != nil {
		return 0, err
	}
	return int(b[0]) % e.cfg.Capacity, nil
}

func (e *Engine) checkTimescale(ts int) error {
	if ts < 0 || ts >= len(e.cfg.Timescales) {
		return fmt.Errorf("%w %d", ErrUnknownTimescale, ts)
	}
	return nil
}

// NextWriteIndex returns the index the next sample of timescale ts goes to.
func (e *Engine) NextWriteIndex(ts int) (int, error) {
	if err := e.checkTimescale(ts); err != nil {
		return 0, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.nextIndex(ts)
}

func (e *Engine) nextIndex(ts int) (int, error) {
	if e.slot[ts] < 0 {
		return e.next[ts], nil
	}
	return e.persistentCursor(ts)
}

// Sample returns the sample at index of timescale ts.
func (e *Engine) Sample(ts, index int) (sample.Sample, error) {
	if err := e.checkTimescale(ts); err != nil {
		return sample.Sample{}, err
	}
	if index < 0 || index >= e.cfg.Capacity {
		return sample.Sample{}, fmt.Errorf("sampling: index %d outside [0, %d)", index, e.cfg.Capacity)
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sampleAt(ts, index)
}

func (e *Engine) sampleAt(ts, idx int) (sample.Sample, error) {
	if e.slot[ts] < 0 {
		return e.ram[ts][idx], nil
	}
	b := make([]byte, sample.Size)
	if err := e.store.ReadBlock(e.sampleAddr(ts, idx), b); err != nil {
		return sample.Sample{}, err
	}
	var s sample.Sample
	err := s.UnmarshalBinary(b)
	return s, err
}

// StoreSnapshot quantizes a raw reading and records it in the snapshot log
// under ts.
func (e *Engine) StoreSnapshot(tempRaw, pressureRaw int, ts sample.Timestamp) (sample.Snapshot, error) {
	r := e.cal.Convert(tempRaw, pressureRaw)
	now := e.clock.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.last, e.lastTime, e.hasReading = r, now, true
	if _, err := e.snaps.Put(ts, r.Sample); err != nil {
		return sample.Snapshot{}, fmt.Errorf("store snapshot: %w", err)
	}
	return sample.Snapshot{Time: ts, Sample: r.Sample}, nil
}

// Graph is the contents of one timescale, oldest sample first.
type Graph struct {
	Timescale Timescale       `json:"timescale"`
	Samples   []sample.Sample `json:"samples"`
}

// GraphDump is every timescale together with the clock time it was read at.
type GraphDump struct {
	Time   clock.Time `json:"time"`
	Graphs []Graph    `json:"graphs"`
}

// Graphs returns every timescale in chronological order, starting at each
// timescale's next write index.
func (e *Engine) Graphs() (GraphDump, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	dump := GraphDump{
		Time:   e.clock.Now(),
		Graphs: make([]Graph, 0, len(e.cfg.Timescales)),
	}
	for i, ts := range e.cfg.Timescales {
		start, err := e.nextIndex(i)
		if err != nil {
			return GraphDump{}, err
		}
		g := Graph{Timescale: ts, Samples: make([]sample.Sample, 0, e.cfg.Capacity)}
		for k := 0; k < e.cfg.Capacity; k++ {
			s, err := e.sampleAt(i, (start+k)%e.cfg.Capacity)
			if err != nil {
				return GraphDump{}, err
			}
			g.Samples = append(g.Samples, s)
		}
		dump.Graphs = append(dump.Graphs, g)
	}
	return dump, nil
}

// ChronologicalSnapshots returns the stored snapshots, oldest first.
func (e *Engine) ChronologicalSnapshots() ([]sample.Snapshot, error) {
	return e.snaps.Chronological()
}

// RestoreSnapshot writes an already quantized snapshot to the log.
func (e *Engine) RestoreSnapshot(s sample.Snapshot) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.snaps.Put(s.Time, s.Sample)
	return err
}
