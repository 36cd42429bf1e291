// Package forecast classifies pressure and temperature trends and turns
// them into a short weather forecast.
package forecast

import (
	"fmt"

	"github.com/nicktill/hikelog/pkg/sampling"
)

// Change is the direction and speed of a trend, fastest rise first.
type Change int

const (
	Soaring Change = iota
	RisingQuickly
	Rising
	RisingSlowly
	Steady
	FallingSlowly
	Falling
	FallingQuickly
	Plummeting
)

var changeNames = [...]string{
	"Soaring",
	"Rising Fast",
	"Rising",
	"Rising Slow",
	"Steady",
	"Falling Slow",
	"Falling",
	"Falling Fast",
	"Plummeting",
}

func (c Change) String() string {
	if c < Soaring || c > Plummeting {
		return fmt.Sprintf("Change(%d)", int(c))
	}
	return changeNames[c]
}

// MarshalText renders the change by name.
func (c Change) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ClassifyPressure buckets a pressure trend in hundredths of a millibar per
// hour. An unavailable trend counts as steady.
func ClassifyPressure(mbX100PerHour int) Change {
	switch r := mbX100PerHour; {
	case r == sampling.InvalidRate:
		return Steady
	case r > 200:
		return Soaring
	case r > 120:
		return RisingQuickly
	case r > 53:
		return Rising
	case r > 0:
		return RisingSlowly
	case r == 0:
		return Steady
	case r > -54:
		return FallingSlowly
	case r > -121:
		return Falling
	case r > -201:
		return FallingQuickly
	default:
		return Plummeting
	}
}

// ClassifyTemperature buckets a temperature trend in half degrees F per
// hour. An unavailable trend counts as steady.
func ClassifyTemperature(halfFPerHour int) Change {
	switch r := halfFPerHour; {
	case r == sampling.InvalidRate:
		return Steady
	case r > 14:
		return Soaring
	case r > 8:
		return RisingQuickly
	case r > 2:
		return Rising
	case r > 0:
		return RisingSlowly
	case r == 0:
		return Steady
	case r > -3:
		return FallingSlowly
	case r > -9:
		return Falling
	case r > -15:
		return FallingQuickly
	default:
		return Plummeting
	}
}

// Unavailable is the forecast while either pressure trend is still warming up.
const Unavailable = "Unavailable"

// Forecast predicts the weather from the short (one hour) and long
// pressure trends, both in hundredths of a millibar per hour.
func Forecast(short, long int) string {
	if short == sampling.InvalidRate || long == sampling.InvalidRate {
		return Unavailable
	}
	c1, c5 := ClassifyPressure(short), ClassifyPressure(long)

	switch {
	// a sudden drop, even a small one, means a nearby disturbance
	case (c1 == FallingQuickly || c1 == Plummeting) && c5 < Falling:
		return "Brief Shower"
	case c1 == FallingSlowly && c5 == FallingSlowly:
		return "Unchanged"
	case (c1 == FallingSlowly || c1 == Falling) && (c5 == FallingSlowly || c5 == Falling):
		return "Poor Weather"
	case c1 >= FallingQuickly && c5 >= Falling:
		return "Appr. Storm"
	case (c1 == RisingSlowly || c1 == Rising) && (c5 == RisingSlowly || c5 == Rising):
		return "Good Weather"
	case (c1 == RisingQuickly || c1 == Soaring) && c5 >= Rising:
		return "Clearing"
	}

	switch c1 {
	case Plummeting:
		return "Very Stormy"
	case FallingQuickly:
		return "Stormy"
	case Falling, FallingSlowly:
		return "Rain"
	case Steady:
		return "Unchanged"
	case RisingSlowly, Rising:
		return "Fair"
	default:
		return "Clear, Dry"
	}
}

// maxDestinationMinutes is the longest time to destination that displays as hh:mm.
const maxDestinationMinutes = 24*99 + 59

// TimeToDestination returns the minutes needed to reach destFeet from
// currentFeet at ratePerMinute, rounded. ok is false when the rate is
// unavailable or zero, or when the destination lies behind or too far ahead.
func TimeToDestination(destFeet, currentFeet, ratePerMinute int) (minutes int, ok bool) {
	if ratePerMinute == sampling.InvalidRate || ratePerMinute == 0 {
		return 0, false
	}
	minutes = (destFeet - currentFeet + ratePerMinute/2) / ratePerMinute
	if minutes < 0 || minutes > maxDestinationMinutes {
		return 0, false
	}
	return minutes, true
}

// DurationString formats minutes as "hh:mm", or dashes when !ok.
func DurationString(minutes int, ok bool) string {
	if !ok {
		return "-----"
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
