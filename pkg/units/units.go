// Package units converts decoded sample values to display strings and
// converts user input back to the internal units.
//
// Decoded values are in the units of the sample decoders: half degrees F,
// half millibars and units of 2 ft.
package units

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nicktill/hikelog/pkg/sample"
)

// System selects display units.
type System int

const (
	Imperial System = iota
	Metric
)

func (s System) String() string {
	if s == Metric {
		return "metric"
	}
	return "imperial"
}

// ParseSystem accepts "imperial" or "metric".
func ParseSystem(s string) (System, error) {
	switch strings.ToLower(s) {
	case "imperial", "":
		return Imperial, nil
	case "metric":
		return Metric, nil
	}
	return Imperial, fmt.Errorf("units: unknown system %q", s)
}

// Kind is the quantity a value measures.
type Kind int

const (
	Temperature Kind = iota
	Pressure
	Altitude
)

// Placeholder is shown in place of an unavailable value.
const Placeholder = "---"

// InHgHundredths converts half millibars to hundredths of an inch of
// mercury, truncating.
func InHgHundredths(halfMb int) int {
	return halfMb * 2953 / 2000
}

// Value decodes a field of s in the units ValueString expects.
func Value(kind Kind, s sample.Sample) int {
	switch kind {
	case Temperature:
		return s.TemperatureHalfF()
	case Pressure:
		return s.PressureHalfMb()
	default:
		return s.Altitude2Ft()
	}
}

// ValueString formats a decoded value. Values at or above
// sample.InvalidValue format as the empty string.
func ValueString(kind Kind, v int, sys System) string {
	if v >= sample.InvalidValue {
		return ""
	}
	switch kind {
	case Temperature:
		if sys == Metric {
			return strconv.FormatFloat((float64(v)/2-32)*5/9, 'f', 1, 64)
		}
		return strconv.FormatFloat(float64(v)/2, 'f', 1, 64)
	case Pressure:
		if sys == Metric {
			return strconv.FormatFloat(float64(v)/2, 'f', 1, 64)
		}
		return strconv.FormatFloat(float64(InHgHundredths(v))/100, 'f', 2, 64)
	default:
		if sys == Metric {
			return strconv.Itoa(int(float64(v*2) * 0.3048))
		}
		return strconv.Itoa(v * 2)
	}
}

// UnitString returns the unit label for kind, or the empty string for an
// invalid value.
func UnitString(kind Kind, v int, sys System) string {
	if v >= sample.InvalidValue {
		return ""
	}
	switch kind {
	case Temperature:
		if sys == Metric {
			return "C"
		}
		return "F"
	case Pressure:
		if sys == Metric {
			return "mb"
		}
		return "in"
	default:
		if sys == Metric {
			return "m"
		}
		return "ft"
	}
}

// ValueAndUnits joins ValueString and UnitString, or returns Placeholder
// for an invalid value.
func ValueAndUnits(kind Kind, v int, sys System) string {
	if v >= sample.InvalidValue {
		return Placeholder
	}
	return ValueString(kind, v, sys) + UnitString(kind, v, sys)
}

// FeetFromMeters converts entered meters to feet.
func FeetFromMeters(m int) int {
	return int(3.28 * (0.5 + float64(m)))
}

// AltitudeFeetFromInput converts an entered altitude to feet.
func AltitudeFeetFromInput(v int, sys System) int {
	if sys == Metric {
		return FeetFromMeters(v)
	}
	return v
}

// HalfFFromInput converts an entered temperature in whole degrees of sys
// to half degrees F.
func HalfFFromInput(v int, sys System) int {
	if sys == Metric {
		return (v*2*9+2)/5 + 2*32
	}
	return v * 2
}

// HalfMbFromInput converts an entered pressure to half millibars. Imperial
// input is in whole inches of mercury, metric in millibars.
func HalfMbFromInput(v int, sys System) int {
	if sys == Metric {
		return v * 2
	}
	return int(float64(v) * 2 * 33.86389)
}
