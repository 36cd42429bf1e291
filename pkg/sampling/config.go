package sampling

import (
	"errors"
	"fmt"

	"github.com/nicktill/hikelog/pkg/sample"
)

const (
	// Signature marks an initialized persistent image.
	Signature = 0xBEB3

	minutesPerDay = 1440
	headerAlign   = 16
)

// ErrUnknownTimescale is returned for a timescale number outside the configuration.
var ErrUnknownTimescale = errors.New("sampling: unknown timescale")

// Timescale is one rolling buffer and how often it takes a sample.
type Timescale struct {
	Name       string `yaml:"name" json:"name"`
	Cadence    int    `yaml:"cadence" json:"cadence"` // minutes per sample
	Persistent bool   `yaml:"persistent" json:"persistent"`
}

// TrendConfig sets the lookback windows, in samples, of the trend queries.
type TrendConfig struct {
	AscentWindow          int `yaml:"ascent_window" json:"ascent_window"`
	TemperatureWindow     int `yaml:"temperature_window" json:"temperature_window"`
	PressureWindow        int `yaml:"pressure_window" json:"pressure_window"`
	PressureLongWindow    int `yaml:"pressure_long_window" json:"pressure_long_window"`
	PressureLongTimescale int `yaml:"pressure_long_timescale" json:"pressure_long_timescale"`
}

// Config describes the buffers of an Engine. Timescale 0 is the base
// timescale and must sample every minute.
type Config struct {
	Capacity   int         `yaml:"capacity" json:"capacity"`
	Timescales []Timescale `yaml:"timescales" json:"timescales"`
	Trends     TrendConfig `yaml:"trends" json:"trends"`
}

// DefaultTrends returns the trend windows used by both logger models.
func DefaultTrends() TrendConfig {
	return TrendConfig{
		AscentWindow:          10,
		TemperatureWindow:     60,
		PressureWindow:        60,
		PressureLongWindow:    75,
		PressureLongTimescale: 1,
	}
}

// DefaultConfig is the mini logger: 2 hours, 10 hours and 2.5 days.
func DefaultConfig() Config {
	return Config{
		Capacity: 128,
		Timescales: []Timescale{
			{Name: "2h", Cadence: 1},
			{Name: "10h", Cadence: 5},
			{Name: "2.5d", Cadence: 30, Persistent: true},
		},
		Trends: DefaultTrends(),
	}
}

// ClassicConfig is the classic logger: 84 minutes, 8.4 hours and 1.75 days.
func ClassicConfig() Config {
	return Config{
		Capacity: 84,
		Timescales: []Timescale{
			{Name: "84m", Cadence: 1},
			{Name: "8.4h", Cadence: 6},
			{Name: "1.75d", Cadence: 30, Persistent: true},
		},
		Trends: DefaultTrends(),
	}
}

// Validate checks the configuration without reference to a store.
func (c Config) Validate() error {
	if c.Capacity < 2 || c.Capacity > 255 {
		return fmt.Errorf("sampling: capacity %d outside [2, 255]", c.Capacity)
	}
	if len(c.Timescales) == 0 {
		return errors.New("sampling: no timescales")
	}
	if c.Timescales[0].Cadence != 1 {
		return fmt.Errorf("sampling: base timescale cadence is %d, want 1", c.Timescales[0].Cadence)
	}
	for i, ts := range c.Timescales {
		if ts.Cadence <= 0 || minutesPerDay%ts.Cadence != 0 {
			return fmt.Errorf("sampling: timescale %d cadence %d does not divide %d", i, ts.Cadence, minutesPerDay)
		}
		if i > 0 && ts.Cadence == 1 {
			return fmt.Errorf("sampling: timescale %d duplicates the base cadence", i)
		}
	}

	t := c.Trends
	if t.PressureLongTimescale < 0 || t.PressureLongTimescale >= len(c.Timescales) {
		return fmt.Errorf("sampling: long pressure trend: %w %d", ErrUnknownTimescale, t.PressureLongTimescale)
	}
	windows := []struct {
		name string
		n    int
	}{
		{"ascent", t.AscentWindow},
		{"temperature", t.TemperatureWindow},
		{"pressure", t.PressureWindow},
		{"long pressure", t.PressureLongWindow},
	}
	for _, w := range windows {
		// a window reaching capacity-1 wraps onto samples not yet written
		if w.n <= 0 || w.n >= c.Capacity-1 {
			return fmt.Errorf("sampling: %s window %d must be in [1, %d)", w.name, w.n, c.Capacity-1)
		}
	}
	return nil
}

// Layout is the placement of persistent data in a store image.
type Layout struct {
	HeaderSize    int `json:"header_size"`
	SamplesBase   int `json:"samples_base"`
	SnapshotsBase int `json:"snapshots_base"`
	SnapshotCount int `json:"snapshot_count"`
}

// Layout places the header, the persistent timescales and the snapshot
// log in an image of storeSize bytes.
func (c Config) Layout(storeSize int) (Layout, error) {
	n := c.persistentCount()
	header := (4*n + headerAlign - 1) / headerAlign * headerAlign
	if header == 0 {
		header = headerAlign
	}

	l := Layout{
		HeaderSize:    header,
		SamplesBase:   header,
		SnapshotsBase: header + n*c.Capacity*sample.Size,
	}
	if storeSize > l.SnapshotsBase {
		l.SnapshotCount = (storeSize - l.SnapshotsBase) / sample.SnapshotSize
	}
	if l.SnapshotCount == 0 {
		return l, fmt.Errorf("sampling: %d persistent timescales of %d samples leave no snapshot room in %d bytes",
			n, c.Capacity, storeSize)
	}
	return l, nil
}

func (c Config) persistentCount() int {
	n := 0
	for _, ts := range c.Timescales {
		if ts.Persistent {
			n++
		}
	}
	return n
}
