package units

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nicktill/hikelog/pkg/clock"
	"github.com/nicktill/hikelog/pkg/sample"
)

func TestInHgTruncates(t *testing.T) {
	// 1013 mb is 29.9148 in
	require.Equal(t, 2991, InHgHundredths(2026))
	require.Equal(t, "29.91", ValueString(Pressure, 2026, Imperial))
}

func TestValueStrings(t *testing.T) {
	require.Equal(t, "72.5", ValueString(Temperature, 145, Imperial))
	require.Equal(t, "22.5", ValueString(Temperature, 145, Metric))
	require.Equal(t, "1013.5", ValueString(Pressure, 2027, Metric))
	require.Equal(t, "1000", ValueString(Altitude, 500, Imperial))
	require.Equal(t, "304", ValueString(Altitude, 500, Metric))
	require.Equal(t, "-20", ValueString(Altitude, -10, Imperial))

	require.Equal(t, "72.5F", ValueAndUnits(Temperature, 145, Imperial))
	require.Equal(t, "29.91in", ValueAndUnits(Pressure, 2026, Imperial))
	require.Equal(t, "304m", ValueAndUnits(Altitude, 500, Metric))
}

func TestInvalidValues(t *testing.T) {
	for _, v := range []int{sample.InvalidValue, sample.InvalidSample} {
		require.Empty(t, ValueString(Pressure, v, Imperial))
		require.Empty(t, UnitString(Pressure, v, Imperial))
		require.Equal(t, Placeholder, ValueAndUnits(Temperature, v, Metric))
	}
}

func TestInputConversions(t *testing.T) {
	require.Equal(t, 329, FeetFromMeters(100))
	require.Equal(t, 329, AltitudeFeetFromInput(100, Metric))
	require.Equal(t, 100, AltitudeFeetFromInput(100, Imperial))

	require.Equal(t, 136, HalfFFromInput(20, Metric))
	require.Equal(t, 136, HalfFFromInput(68, Imperial))

	require.Equal(t, 2031, HalfMbFromInput(30, Imperial))
	require.Equal(t, 2026, HalfMbFromInput(1013, Metric))
}

func TestValueDecodesSample(t *testing.T) {
	s := sample.Sample{Temperature: 156, Pressure: 1626, Altitude: 692}
	require.Equal(t, 136, Value(Temperature, s))
	require.Equal(t, 2026, Value(Pressure, s))
	require.Equal(t, 0, Value(Altitude, s))
	require.Equal(t, "0ft 68.0F 29.91", SnapshotValueString(s, Imperial))
}

func TestTimeStrings(t *testing.T) {
	require.Equal(t, "12:05A", ShortTimeString(0, 5))
	require.Equal(t, "12:30P", ShortTimeString(12, 30))
	require.Equal(t, "01:00:09P", TimeString(13, 0, 9))
	require.Equal(t, "Oct 19", DateString(19, 10))

	ts := sample.PackTimestamp(26, 1, 5, 9, 15)
	require.Equal(t, "Jan 05 2026 09:15A", SnapshotString(ts))

	now := clock.Time{Year: 26, Month: 3, Day: 1, Hour: 0, Minute: 10}
	require.Equal(t, "Feb 28 11:50P", PastTimeString(now, 20))
}

func TestParseSystem(t *testing.T) {
	sys, err := ParseSystem("Metric")
	require.NoError(t, err)
	require.Equal(t, Metric, sys)
	require.Equal(t, "metric", sys.String())

	_, err = ParseSystem("nautical")
	require.Error(t, err)
}
