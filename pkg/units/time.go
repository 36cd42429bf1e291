package units

import (
	"fmt"
	"time"

	"github.com/nicktill/hikelog/pkg/clock"
	"github.com/nicktill/hikelog/pkg/sample"
)

var monthNames = [...]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

func hour12(hour int) (int, string) {
	h := hour % 12
	if h == 0 {
		h = 12
	}
	if hour < 12 {
		return h, "A"
	}
	return h, "P"
}

// DateString formats a day of the year as "Jan 05".
func DateString(day, month int) string {
	if month < 1 || month > 12 {
		month = 12
	}
	return fmt.Sprintf("%s %02d", monthNames[month-1], day)
}

// ShortTimeString formats a time of day as "09:15A".
func ShortTimeString(hour, minute int) string {
	h, ampm := hour12(hour)
	return fmt.Sprintf("%02d:%02d%s", h, minute, ampm)
}

// TimeString formats a time of day as "09:15:30A".
func TimeString(hour, minute, second int) string {
	h, ampm := hour12(hour)
	return fmt.Sprintf("%02d:%02d:%02d%s", h, minute, second, ampm)
}

// SnapshotString formats a snapshot timestamp as "Jan 05 2026 09:15A".
func SnapshotString(ts sample.Timestamp) string {
	year, month, day, hour, minute := ts.Unpack()
	return fmt.Sprintf("%s %d %s", DateString(day, month), 2000+year, ShortTimeString(hour, minute))
}

// SnapshotValueString formats the sample of a snapshot as altitude,
// temperature and pressure, the last without units.
func SnapshotValueString(s sample.Sample, sys System) string {
	return ValueAndUnits(Altitude, s.Altitude2Ft(), sys) + " " +
		ValueAndUnits(Temperature, s.TemperatureHalfF(), sys) + " " +
		ValueString(Pressure, s.PressureHalfMb(), sys)
}

// PastTimeString formats the time minutesAgo before now as "Jan 05 09:15A".
func PastTimeString(now clock.Time, minutesAgo int) string {
	t := now.Std(time.UTC).Add(-time.Duration(minutesAgo) * time.Minute)
	return DateString(t.Day(), int(t.Month())) + " " + ShortTimeString(t.Hour(), t.Minute())
}
