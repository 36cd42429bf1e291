package sampling

import "github.com/nicktill/hikelog/pkg/sample"

// InvalidRate is returned by the trend queries while the lookback window
// still reaches samples that have not been written.
const InvalidRate = 0x7FFFFFFF

// Trends is every trend query at once.
type Trends struct {
	RateOfAscent       int `json:"rate_of_ascent"`       // ft/min
	TemperatureTrend   int `json:"temperature_trend"`    // half degrees F per hour
	PressureTrendShort int `json:"pressure_trend_short"` // hundredths of a mb per hour
	PressureTrendLong  int `json:"pressure_trend_long"`  // hundredths of a mb per hour
}

// Trends evaluates all trend queries under one read lock.
func (e *Engine) Trends() (Trends, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var (
		t   Trends
		err error
	)
	if t.RateOfAscent, err = e.rateOfAscent(); err != nil {
		return Trends{}, err
	}
	if t.TemperatureTrend, err = e.temperatureTrend(); err != nil {
		return Trends{}, err
	}
	if t.PressureTrendShort, err = e.pressureTrendShort(); err != nil {
		return Trends{}, err
	}
	if t.PressureTrendLong, err = e.pressureTrendLong(); err != nil {
		return Trends{}, err
	}
	return t, nil
}

// RateOfAscent returns feet per minute over the ascent window of the base
// timescale, rounded to the nearest foot.
func (e *Engine) RateOfAscent() (int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rateOfAscent()
}

// TemperatureTrend returns half degrees F per hour over the temperature
// window of the base timescale.
func (e *Engine) TemperatureTrend() (int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.temperatureTrend()
}

// PressureTrendShort returns hundredths of a millibar per hour over the
// pressure window of the base timescale.
func (e *Engine) PressureTrendShort() (int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pressureTrendShort()
}

// PressureTrendLong returns hundredths of a millibar per hour over the long
// pressure window, which spans window*cadence minutes.
func (e *Engine) PressureTrendLong() (int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pressureTrendLong()
}

func (e *Engine) rateOfAscent() (int, error) {
	window := e.cfg.Trends.AscentWindow
	past, ok, err := e.pastSample(0, window)
	if !ok || err != nil {
		return InvalidRate, err
	}
	// hundredths of a foot
	current := int(e.last.AltitudeFeet * 100)
	rate := (current - 200*past.Altitude2Ft()) / window
	return (rate + 50) / 100, nil
}

func (e *Engine) temperatureTrend() (int, error) {
	window := e.cfg.Trends.TemperatureWindow
	past, ok, err := e.pastSample(0, window)
	if !ok || err != nil {
		return InvalidRate, err
	}
	return 60 * (e.last.TemperatureHalfF - past.TemperatureHalfF()) / window, nil
}

func (e *Engine) pressureTrendShort() (int, error) {
	window := e.cfg.Trends.PressureWindow
	past, ok, err := e.pastSample(0, window)
	if !ok || err != nil {
		return InvalidRate, err
	}
	return 60 * (e.last.PressureCentiMb - 50*past.PressureHalfMb()) / window, nil
}

func (e *Engine) pressureTrendLong() (int, error) {
	ts := e.cfg.Trends.PressureLongTimescale
	window := e.cfg.Trends.PressureLongWindow
	past, ok, err := e.pastSample(ts, window)
	if !ok || err != nil {
		return InvalidRate, err
	}
	minutes := window * e.cfg.Timescales[ts].Cadence
	return 60 * (e.last.PressureCentiMb - 50*past.PressureHalfMb()) / minutes, nil
}

// pastSample returns the sample window places behind the most recent write
// of timescale ts. ok is false when there is no current reading or the past
// sample has never been written.
func (e *Engine) pastSample(ts, window int) (past sample.Sample, ok bool, err error) {
	if !e.hasReading {
		return sample.Sample{}, false, nil
	}
	next, err := e.nextIndex(ts)
	if err != nil {
		return sample.Sample{}, false, err
	}
	c := e.cfg.Capacity
	idx := ((next-1-window)%c + c) % c
	past, err = e.sampleAt(ts, idx)
	if err != nil {
		return sample.Sample{}, false, err
	}
	return past, !past.IsEmpty(), nil
}
