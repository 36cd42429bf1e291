package server

import (
	"github.com/nicktill/hikelog/pkg/baro"
	"github.com/nicktill/hikelog/pkg/clock"
	"github.com/nicktill/hikelog/pkg/forecast"
	"github.com/nicktill/hikelog/pkg/sample"
	"github.com/nicktill/hikelog/pkg/sampling"
	"github.com/nicktill/hikelog/pkg/units"
)

// Measurement is one displayed quantity. Value and Units are empty when the
// quantity is unavailable; Display always holds something to show.
type Measurement struct {
	Value   string `json:"value"`
	Units   string `json:"units"`
	Display string `json:"display"`
}

func measure(kind units.Kind, v int, sys units.System) Measurement {
	return Measurement{
		Value:   units.ValueString(kind, v, sys),
		Units:   units.UnitString(kind, v, sys),
		Display: units.ValueAndUnits(kind, v, sys),
	}
}

// ReadingView is the latest reading, unclamped.
type ReadingView struct {
	Time        clock.Time   `json:"time"`
	Display     string       `json:"display"`
	Temperature Measurement  `json:"temperature"`
	Pressure    Measurement  `json:"pressure"`
	Altitude    Measurement  `json:"altitude"`
	SeaLevel    Measurement  `json:"sea_level_pressure"`
	Raw         baro.Reading `json:"raw"`
}

// newReadingView renders r. The sea-level pressure is corrected for the
// calibration altitude of cal.
func newReadingView(r baro.Reading, at clock.Time, cal *baro.Calibrator, sys units.System) ReadingView {
	seaLevelHalfMb := int(cal.SeaLevelReading(float64(r.PressureCentiMb)) / 50)
	return ReadingView{
		Time:        at,
		Display:     units.DateString(at.Day, at.Month) + " " + units.TimeString(at.Hour, at.Minute, at.Second),
		Temperature: measure(units.Temperature, r.TemperatureHalfF, sys),
		Pressure:    measure(units.Pressure, r.PressureCentiMb/50, sys),
		Altitude:    measure(units.Altitude, int(r.AltitudeFeet)/2, sys),
		SeaLevel:    measure(units.Pressure, seaLevelHalfMb, sys),
		Raw:         r,
	}
}

// SampleView is one stored sample.
type SampleView struct {
	Index       int         `json:"index"`
	MinutesAgo  int         `json:"minutes_ago"`
	Time        string      `json:"time"`
	Empty       bool        `json:"empty"`
	Temperature Measurement `json:"temperature"`
	Pressure    Measurement `json:"pressure"`
	Altitude    Measurement `json:"altitude"`
	Packed      uint32      `json:"packed"`
}

func newSampleView(s sample.Sample, sys units.System) SampleView {
	return SampleView{
		Empty:       s.IsEmpty(),
		Temperature: measure(units.Temperature, s.TemperatureHalfF(), sys),
		Pressure:    measure(units.Pressure, s.PressureHalfMb(), sys),
		Altitude:    measure(units.Altitude, s.Altitude2Ft(), sys),
		Packed:      s.Pack(),
	}
}

// GraphView is one timescale, oldest sample first.
type GraphView struct {
	Timescale sampling.Timescale `json:"timescale"`
	Number    int                `json:"number"`
	NextIndex int                `json:"next_index"`
	Samples   []SampleView       `json:"samples"`
}

// newGraphView labels samples with their age. The newest sample was taken
// at the last minute of day divisible by the cadence.
func newGraphView(number, next int, graph sampling.Graph, now clock.Time, sys units.System) GraphView {
	cadence := graph.Timescale.Cadence
	capacity := len(graph.Samples)
	offset := now.MinuteOfDay() % cadence

	view := GraphView{
		Timescale: graph.Timescale,
		Number:    number,
		NextIndex: next,
		Samples:   make([]SampleView, capacity),
	}
	for i, s := range graph.Samples {
		v := newSampleView(s, sys)
		v.Index = (next + i) % capacity
		v.MinutesAgo = offset + (capacity-1-i)*cadence
		v.Time = units.PastTimeString(now, v.MinutesAgo)
		view.Samples[i] = v
	}
	return view
}

// SnapshotView is one stored snapshot.
type SnapshotView struct {
	Time        string           `json:"time"`
	Timestamp   sample.Timestamp `json:"timestamp"`
	Display     string           `json:"display"`
	Temperature Measurement      `json:"temperature"`
	Pressure    Measurement      `json:"pressure"`
	Altitude    Measurement      `json:"altitude"`
}

func newSnapshotView(s sample.Snapshot, sys units.System) SnapshotView {
	return SnapshotView{
		Time:        units.SnapshotString(s.Time),
		Timestamp:   s.Time,
		Display:     units.SnapshotValueString(s.Sample, sys),
		Temperature: measure(units.Temperature, s.Sample.TemperatureHalfF(), sys),
		Pressure:    measure(units.Pressure, s.Sample.PressureHalfMb(), sys),
		Altitude:    measure(units.Altitude, s.Sample.Altitude2Ft(), sys),
	}
}

// TrendsView is the trend screen: raw rates, their classification and the
// forecast. Rates that are still warming up are null.
type TrendsView struct {
	RateOfAscent       *int            `json:"rate_of_ascent"`
	TemperatureTrend   *int            `json:"temperature_trend"`
	PressureTrendShort *int            `json:"pressure_trend_short"`
	PressureTrendLong  *int            `json:"pressure_trend_long"`
	TemperatureChange  forecast.Change `json:"temperature_change"`
	PressureChange     forecast.Change `json:"pressure_change"`
	Forecast           string          `json:"forecast"`
	Destination        *Destination    `json:"destination,omitempty"`
}

// Destination is the estimated time to reach an altitude at the current
// rate of ascent.
type Destination struct {
	AltitudeFeet int    `json:"altitude_feet"`
	Reachable    bool   `json:"reachable"`
	Minutes      int    `json:"minutes,omitempty"`
	Display      string `json:"display"`
}

func rate(v int) *int {
	if v == sampling.InvalidRate {
		return nil
	}
	return &v
}

func newTrendsView(t sampling.Trends) TrendsView {
	return TrendsView{
		RateOfAscent:       rate(t.RateOfAscent),
		TemperatureTrend:   rate(t.TemperatureTrend),
		PressureTrendShort: rate(t.PressureTrendShort),
		PressureTrendLong:  rate(t.PressureTrendLong),
		TemperatureChange:  forecast.ClassifyTemperature(t.TemperatureTrend),
		PressureChange:     forecast.ClassifyPressure(t.PressureTrendShort),
		Forecast:           forecast.Forecast(t.PressureTrendShort, t.PressureTrendLong),
	}
}

func newDestination(destFeet, currentFeet, ratePerMinute int) *Destination {
	minutes, ok := forecast.TimeToDestination(destFeet, currentFeet, ratePerMinute)
	return &Destination{
		AltitudeFeet: destFeet,
		Reachable:    ok,
		Minutes:      minutes,
		Display:      forecast.DurationString(minutes, ok),
	}
}

// Event is a WebSocket and MQTT message.
type Event struct {
	Type     string        `json:"type"`
	Reading  *ReadingView  `json:"reading,omitempty"`
	Snapshot *SnapshotView `json:"snapshot,omitempty"`
}

// Event types
const (
	EventReading  = "reading"
	EventSnapshot = "snapshot"
)
