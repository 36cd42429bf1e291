package sample

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackUnpack(t *testing.T) {
	s := Sample{Temperature: 0xAB, Pressure: 0x5A5, Altitude: 0x1234}
	got := Unpack(s.Pack())
	require.Equal(t, s, got)

	// field boundaries
	require.Equal(t, uint32(0xFF), Sample{Temperature: 0xFF}.Pack())
	require.Equal(t, uint32(0x7FF)<<8, Sample{Pressure: 0x7FF}.Pack())
	require.Equal(t, uint32(0x1FFF)<<19, Sample{Altitude: 0x1FFF}.Pack())
}

func TestMarshalBinary(t *testing.T) {
	s := Sample{Temperature: 1, Pressure: 2, Altitude: 3}
	b, err := s.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, Size)
	require.Equal(t, []byte{0x01, 0x02, 0x18, 0x00}, b)

	var out Sample
	require.NoError(t, out.UnmarshalBinary(b))
	require.Equal(t, s, out)

	require.Error(t, out.UnmarshalBinary([]byte{1, 2}))
}

func TestIsEmpty(t *testing.T) {
	require.True(t, Sample{}.IsEmpty())
	require.False(t, Sample{Altitude: 1}.IsEmpty())
}

func TestTemperatureSaturation(t *testing.T) {
	// everything below -10 F lands on code 0
	for _, tenthsF := range []int{-101, -500, -100000} {
		require.Equal(t, uint16(0), QuantizeTemperature(tenthsF), "tenthsF=%d", tenthsF)
	}
	// everything above 117.5 F lands on the max code
	for _, tenthsF := range []int{1176, 1300, 100000} {
		require.Equal(t, uint16(255), QuantizeTemperature(tenthsF), "tenthsF=%d", tenthsF)
	}

	// decoding the clamped codes gives back the clamped values exactly
	require.Equal(t, -20, Sample{Temperature: QuantizeTemperature(-500)}.TemperatureHalfF())
	require.Equal(t, 235, Sample{Temperature: QuantizeTemperature(5000)}.TemperatureHalfF())
}

func TestPressureAndAltitudeSaturation(t *testing.T) {
	require.Equal(t, uint16(0), QuantizePressure(0))
	require.Equal(t, uint16(2047), QuantizePressure(200000))
	require.Equal(t, 400, Sample{Pressure: 0}.PressureHalfMb())
	require.Equal(t, 400+2047, Sample{Pressure: 2047}.PressureHalfMb())

	require.Equal(t, uint16(0), QuantizeAltitude(-5000))
	require.Equal(t, uint16(8191), QuantizeAltitude(30000))
	require.Equal(t, -692, Sample{Altitude: 0}.Altitude2Ft())
}

func TestQuantizeRoundsHalfUp(t *testing.T) {
	// 72.7 F -> (727+100+2)/5 = 165 -> 145 half degrees = 72.5 F
	code := QuantizeTemperature(727)
	require.Equal(t, uint16(165), code)
	require.Equal(t, 145, Sample{Temperature: code}.TemperatureHalfF())

	// 1013.25 mb -> 1013.5 mb
	p := QuantizePressure(101325)
	require.Equal(t, 2027, Sample{Pressure: p}.PressureHalfMb())

	// 0 ft -> 692 code -> 0
	require.Equal(t, 0, Sample{Altitude: QuantizeAltitude(0)}.Altitude2Ft())
}

func TestTimestampPacking(t *testing.T) {
	ts := PackTimestamp(26, 10, 19, 14, 37)
	y, mo, d, h, mi := ts.Unpack()
	require.Equal(t, []int{26, 10, 19, 14, 37}, []int{y, mo, d, h, mi})

	later := PackTimestamp(26, 10, 19, 14, 38)
	require.Greater(t, uint32(later), uint32(ts))
	nextYear := PackTimestamp(27, 1, 1, 0, 0)
	require.Greater(t, uint32(nextYear), uint32(later))
}

func TestSnapshotBinary(t *testing.T) {
	snap := Snapshot{Time: PackTimestamp(26, 1, 2, 3, 4), Sample: Sample{Temperature: 9, Pressure: 8, Altitude: 7}}
	b, err := snap.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, SnapshotSize)

	var out Snapshot
	require.NoError(t, out.UnmarshalBinary(b))
	require.Equal(t, snap, out)
	require.False(t, out.IsEmpty())
	require.True(t, Snapshot{}.IsEmpty())
}
