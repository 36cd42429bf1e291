// Package baro derives altitude from barometric pressure and turns raw
// sensor readings into quantized samples.
package baro

import (
	"math"
	"sync"

	"github.com/nicktill/hikelog/pkg/sample"
)

const (
	// DefaultSeaLevelPressure is the standard atmosphere, in Pa (hundredths of a millibar).
	DefaultSeaLevelPressure = 101325.0

	feetPerMeter  = 3.2808399
	metersPerFoot = 0.3048
)

// Altitude returns the altitude in meters for a pressure, given the
// reference sea-level pressure. Both pressures share a unit.
func Altitude(pressure, seaLevel float64) float64 {
	return 44330 * (1 - math.Pow(pressure/seaLevel, 0.190295))
}

// SeaLevelPressure returns the sea-level pressure that makes station
// pressure read as trueAltitude meters.
func SeaLevelPressure(station, trueAltitude float64) float64 {
	return station / math.Pow(1-trueAltitude/44330, 5.255)
}

// Reading is the result of converting one raw sensor reading.
type Reading struct {
	Sample sample.Sample `json:"sample"`

	// Unclamped values for immediate display.
	TemperatureRaw   int     `json:"temperature_raw"`    // tenths of a degree C
	TemperatureHalfF int     `json:"temperature_half_f"` // half degrees F
	PressureCentiMb  int     `json:"pressure_centi_mb"`  // hundredths of a millibar
	AltitudeFeet     float64 `json:"altitude_feet"`
}

// Calibrator holds the reference sea-level pressure used for altitude.
type Calibrator struct {
	mu                  sync.RWMutex
	seaLevel            float64
	calibrationAltitude int // feet
}

// NewCalibrator returns a Calibrator referenced to the standard atmosphere.
func NewCalibrator() *Calibrator {
	return &Calibrator{seaLevel: DefaultSeaLevelPressure}
}

// SeaLevel returns the current reference sea-level pressure in Pa.
func (c *Calibrator) SeaLevel() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.seaLevel
}

// SetSeaLevel sets the reference sea-level pressure directly.
func (c *Calibrator) SetSeaLevel(p float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seaLevel = p
}

// CalibrationAltitude returns the altitude in feet last given to Calibrate.
func (c *Calibrator) CalibrationAltitude() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.calibrationAltitude
}

// Calibrate adjusts the reference so that stationPressure (Pa) reads as
// trueAltitudeFeet. It returns the new sea-level pressure.
func (c *Calibrator) Calibrate(stationPressure float64, trueAltitudeFeet int) float64 {
	p0 := SeaLevelPressure(stationPressure, metersPerFoot*float64(trueAltitudeFeet))

	c.mu.Lock()
	defer c.mu.Unlock()
	c.seaLevel = p0
	c.calibrationAltitude = trueAltitudeFeet
	return p0
}

// Reset restores the standard atmosphere and forgets the calibration altitude.
func (c *Calibrator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seaLevel = DefaultSeaLevelPressure
	c.calibrationAltitude = 0
}

// AltitudeFeet returns the altitude in feet for a pressure in Pa.
func (c *Calibrator) AltitudeFeet(pressure float64) float64 {
	return feetPerMeter * Altitude(pressure, c.SeaLevel())
}

// SeaLevelReading returns station pressure corrected to sea level using the
// last calibration altitude.
func (c *Calibrator) SeaLevelReading(stationPressure float64) float64 {
	return SeaLevelPressure(stationPressure, metersPerFoot*float64(c.CalibrationAltitude()))
}

// Convert quantizes a raw reading. tempRaw is tenths of a degree C,
// pressureRaw is hundredths of a millibar. Out-of-range values saturate;
// implausible altitudes are passed through unchecked.
func (c *Calibrator) Convert(tempRaw, pressureRaw int) Reading {
	tenthsF := tempRaw*9/5 + 320
	altitude := c.AltitudeFeet(float64(pressureRaw))

	return Reading{
		Sample: sample.Sample{
			Temperature: sample.QuantizeTemperature(tenthsF),
			Pressure:    sample.QuantizePressure(pressureRaw),
			Altitude:    sample.QuantizeAltitude(int(altitude + 0.5)),
		},
		TemperatureRaw:   tempRaw,
		TemperatureHalfF: roundDiv(tenthsF, 5),
		PressureCentiMb:  pressureRaw,
		AltitudeFeet:     altitude,
	}
}

// roundDiv divides rounding half away from zero.
func roundDiv(n, d int) int {
	if n < 0 {
		return (n - d/2) / d
	}
	return (n + d/2) / d
}
