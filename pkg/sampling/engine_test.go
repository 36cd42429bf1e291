package sampling

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nicktill/hikelog/pkg/baro"
	"github.com/nicktill/hikelog/pkg/clock"
	"github.com/nicktill/hikelog/pkg/sample"
	"github.com/nicktill/hikelog/pkg/storage"
	"github.com/nicktill/hikelog/pkg/storage/memory"
)

var midnight = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

type fixture struct {
	store  storage.Store
	clock  *clock.Clock
	engine *Engine
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.New(1024),
		clock: clock.New(clock.FromTime(midnight)),
	}
	f.engine = f.open(t, cfg)
	return f
}

func (f *fixture) open(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := New(cfg, f.store, f.clock, baro.NewCalibrator())
	require.NoError(t, err)
	_, err = e.Init(false)
	require.NoError(t, err)
	return e
}

// storeAt stores one sample with the clock at minute m past midnight.
func (f *fixture) storeAt(t *testing.T, m, tempRaw, pressureRaw int) {
	t.Helper()
	f.clock.Set(clock.FromTime(midnight.Add(time.Duration(m) * time.Minute)))
	_, err := f.engine.StoreSample(tempRaw, pressureRaw)
	require.NoError(t, err)
}

func nextIndex(t *testing.T, e *Engine, ts int) int {
	t.Helper()
	i, err := e.NextWriteIndex(ts)
	require.NoError(t, err)
	return i
}

func TestLayout(t *testing.T) {
	l, err := DefaultConfig().Layout(1024)
	require.NoError(t, err)
	require.Equal(t, Layout{HeaderSize: 16, SamplesBase: 16, SnapshotsBase: 528, SnapshotCount: 62}, l)

	l, err = ClassicConfig().Layout(1024)
	require.NoError(t, err)
	require.Equal(t, 352, l.SnapshotsBase)
	require.Equal(t, 84, l.SnapshotCount)

	_, err = DefaultConfig().Layout(528)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	require.NoError(t, ClassicConfig().Validate())

	cases := map[string]func(*Config){
		"capacity too large":   func(c *Config) { c.Capacity = 256 },
		"capacity too small":   func(c *Config) { c.Capacity = 1 },
		"base not every min":   func(c *Config) { c.Timescales[0].Cadence = 2 },
		"second base":          func(c *Config) { c.Timescales[1].Cadence = 1 },
		"cadence not divisor":  func(c *Config) { c.Timescales[1].Cadence = 7 },
		"window wraps":         func(c *Config) { c.Trends.PressureWindow = c.Capacity - 1 },
		"zero window":          func(c *Config) { c.Trends.AscentWindow = 0 },
		"long trend timescale": func(c *Config) { c.Trends.PressureLongTimescale = 3 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestCadenceAlignment(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	for m := 0; m < 30; m++ {
		f.storeAt(t, m, 200, 101300)
	}
	require.Equal(t, 30, nextIndex(t, f.engine, 0))
	require.Equal(t, 6, nextIndex(t, f.engine, 1))
	require.Equal(t, 1, nextIndex(t, f.engine, 2))

	f.storeAt(t, 30, 200, 101300)
	require.Equal(t, 31, nextIndex(t, f.engine, 0))
	require.Equal(t, 7, nextIndex(t, f.engine, 1))
	require.Equal(t, 2, nextIndex(t, f.engine, 2))
}

func TestWraparound(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	for k := 0; k < 130; k++ {
		f.storeAt(t, k, 200, 100000+50*k)
	}
	require.Equal(t, 2, nextIndex(t, f.engine, 0))

	s, err := f.engine.Sample(0, 1)
	require.NoError(t, err)
	require.Equal(t, sample.QuantizePressure(100000+50*129), s.Pressure)

	dump, err := f.engine.Graphs()
	require.NoError(t, err)
	require.Len(t, dump.Graphs, 3)
	base := dump.Graphs[0].Samples
	require.Len(t, base, 128)
	// oldest surviving sample is the third one stored
	require.Equal(t, sample.QuantizePressure(100000+50*2), base[0].Pressure)
	require.Equal(t, sample.QuantizePressure(100000+50*129), base[127].Pressure)
}

func TestTrendsUnavailableBeforeWarmup(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	rate, err := f.engine.RateOfAscent()
	require.NoError(t, err)
	require.Equal(t, InvalidRate, rate)

	for m := 0; m < 10; m++ {
		f.storeAt(t, m, 200, 101325-100*m)
	}
	rate, err = f.engine.RateOfAscent()
	require.NoError(t, err)
	require.Equal(t, InvalidRate, rate)

	f.storeAt(t, 10, 200, 101325-1000)
	rate, err = f.engine.RateOfAscent()
	require.NoError(t, err)
	require.InDelta(t, 27, rate, 1)
}

func TestShortTrends(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	for m := 0; m <= 60; m++ {
		f.storeAt(t, m, 200+m, 101300-10*m)
	}

	trends, err := f.engine.Trends()
	require.NoError(t, err)
	require.Equal(t, -600, trends.PressureTrendShort)
	require.Equal(t, 22, trends.TemperatureTrend)
	require.Equal(t, InvalidRate, trends.PressureTrendLong)
}

func TestLongPressureTrend(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	// 75 samples on the 5 minute timescale are not enough
	for m := 0; m < 375; m++ {
		f.storeAt(t, m, 200, 101300-10*m)
	}
	rate, err := f.engine.PressureTrendLong()
	require.NoError(t, err)
	require.Equal(t, InvalidRate, rate)

	f.storeAt(t, 375, 200, 101300-3750)
	rate, err = f.engine.PressureTrendLong()
	require.NoError(t, err)
	require.Equal(t, -600, rate)
}

func TestInitKeepsIntactImage(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	f.storeAt(t, 0, 200, 101300)
	f.storeAt(t, 30, 200, 100800)
	require.Equal(t, 2, nextIndex(t, f.engine, 2))

	reopened := f.open(t, DefaultConfig())
	require.Equal(t, 0, nextIndex(t, reopened, 0))
	require.Equal(t, 2, nextIndex(t, reopened, 2))
	s, err := reopened.Sample(2, 1)
	require.NoError(t, err)
	require.Equal(t, sample.QuantizePressure(100800), s.Pressure)

	_, _, ok := reopened.LastReading()
	require.False(t, ok)
}

func TestInitWipesOnSignatureMismatch(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	f.storeAt(t, 0, 200, 101300)
	_, err := f.engine.StoreSnapshot(200, 101300, sample.PackTimestamp(26, 10, 19, 0, 0))
	require.NoError(t, err)

	require.NoError(t, f.store.WriteBlock(0, []byte{0x00}))
	wiped, err := f.engine.Init(false)
	require.NoError(t, err)
	require.True(t, wiped)

	require.Equal(t, 0, nextIndex(t, f.engine, 2))
	s, err := f.engine.Sample(2, 0)
	require.NoError(t, err)
	require.True(t, s.IsEmpty())
	n, err := f.engine.Snapshots().Count()
	require.NoError(t, err)
	require.Zero(t, n)

	wiped, err = f.engine.Init(false)
	require.NoError(t, err)
	require.False(t, wiped)
}

func TestForceClear(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.storeAt(t, 0, 200, 101300)

	wiped, err := f.engine.Init(true)
	require.NoError(t, err)
	require.True(t, wiped)
	s, err := f.engine.Sample(2, 0)
	require.NoError(t, err)
	require.True(t, s.IsEmpty())
}

func TestStoreSnapshot(t *testing.T) {
	f := newFixture(t, ClassicConfig())
	require.Equal(t, 84, f.engine.Snapshots().Max())

	ts := sample.PackTimestamp(26, 10, 19, 7, 5)
	snap, err := f.engine.StoreSnapshot(150, 84000, ts)
	require.NoError(t, err)
	require.Equal(t, ts, snap.Time)

	got, err := f.engine.Snapshots().Newest()
	require.NoError(t, err)
	require.Equal(t, snap, got)

	r, _, ok := f.engine.LastReading()
	require.True(t, ok)
	require.Equal(t, 84000, r.PressureCentiMb)
}

func TestUnknownTimescale(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	_, err := f.engine.Sample(3, 0)
	require.True(t, errors.Is(err, ErrUnknownTimescale))
	_, err = f.engine.NextWriteIndex(-1)
	require.True(t, errors.Is(err, ErrUnknownTimescale))
	_, err = f.engine.Sample(0, 128)
	require.Error(t, err)
}
