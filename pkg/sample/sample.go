package sample

import (
	"encoding/binary"
	"fmt"
)

// Temperature is stored in tenths of a degree F, 0.5 F per step.
// Range: -10.0 to 117.5 F.
const (
	TemperatureMin   = -100
	TemperatureScale = 5
	TemperatureBits  = 8
)

// Pressure is stored in hundredths of a millibar, 0.5 mb per step.
// Range: 200 to 1223.5 mb.
const (
	PressureMin   = 20000
	PressureScale = 50
	PressureBits  = 11
)

// Altitude is stored in feet, 2 ft per step.
// Range: -1384 to 14998 ft.
const (
	AltitudeMin   = -1384
	AltitudeScale = 2
	AltitudeBits  = 13
)

const (
	temperatureMax = 1<<TemperatureBits - 1
	pressureMax    = 1<<PressureBits - 1
	altitudeMax    = 1<<AltitudeBits - 1
)

// Display values at or above InvalidValue are not readings.
const (
	InvalidValue  = 0x7FFE
	InvalidSample = 0x7FFF
)

// Size is the packed width of a Sample in bytes.
const Size = 4

// Sample is one quantized reading. Codes saturate at both ends of their
// range; a Sample with every field zero has never been written.
type Sample struct {
	Temperature uint16 `json:"temperature"`
	Pressure    uint16 `json:"pressure"`
	Altitude    uint16 `json:"altitude"`
}

// IsEmpty reports whether s is the unfilled sentinel.
func (s Sample) IsEmpty() bool {
	return s.Temperature == 0 && s.Pressure == 0 && s.Altitude == 0
}

// Pack encodes s into a 32-bit word: temperature in bits 0-7, pressure in
// bits 8-18, altitude in bits 19-31.
func (s Sample) Pack() uint32 {
	return uint32(s.Temperature&temperatureMax) |
		uint32(s.Pressure&pressureMax)<<TemperatureBits |
		uint32(s.Altitude&altitudeMax)<<(TemperatureBits+PressureBits)
}

// Unpack decodes a word produced by Pack.
func Unpack(w uint32) Sample {
	return Sample{
		Temperature: uint16(w & temperatureMax),
		Pressure:    uint16(w >> TemperatureBits & pressureMax),
		Altitude:    uint16(w >> (TemperatureBits + PressureBits) & altitudeMax),
	}
}

// AppendBinary appends the little-endian packed form of s to b.
func (s Sample) AppendBinary(b []byte) ([]byte, error) {
	return binary.LittleEndian.AppendUint32(b, s.Pack()), nil
}

// MarshalBinary returns the 4-byte packed form of s.
func (s Sample) MarshalBinary() ([]byte, error) {
	return s.AppendBinary(make([]byte, 0, Size))
}

// UnmarshalBinary decodes a 4-byte packed sample.
func (s *Sample) UnmarshalBinary(b []byte) error {
	if len(b) < Size {
		return fmt.Errorf("sample: need %d bytes, got %d", Size, len(b))
	}
	*s = Unpack(binary.LittleEndian.Uint32(b))
	return nil
}

// TemperatureHalfF decodes the temperature code to half degrees F.
func (s Sample) TemperatureHalfF() int {
	return (int(s.Temperature)*TemperatureScale + TemperatureMin) / TemperatureScale
}

// PressureHalfMb decodes the pressure code to half millibars.
func (s Sample) PressureHalfMb() int {
	return (int(s.Pressure)*PressureScale + PressureMin) / PressureScale
}

// Altitude2Ft decodes the altitude code to units of 2 ft.
func (s Sample) Altitude2Ft() int {
	return (int(s.Altitude)*AltitudeScale + AltitudeMin) / AltitudeScale
}

// QuantizeTemperature maps tenths of a degree F to a temperature code.
func QuantizeTemperature(tenthsF int) uint16 {
	if tenthsF < TemperatureMin {
		tenthsF = TemperatureMin
	}
	v := (tenthsF - TemperatureMin + TemperatureScale>>1) / TemperatureScale
	if v > temperatureMax {
		v = temperatureMax
	}
	return uint16(v)
}

// QuantizePressure maps hundredths of a millibar to a pressure code.
func QuantizePressure(centiMb int) uint16 {
	if centiMb < PressureMin {
		centiMb = PressureMin
	}
	v := (centiMb - PressureMin + PressureScale>>1) / PressureScale
	if v > pressureMax {
		v = pressureMax
	}
	return uint16(v)
}

// QuantizeAltitude maps feet to an altitude code.
func QuantizeAltitude(feet int) uint16 {
	if feet < AltitudeMin {
		feet = AltitudeMin
	}
	v := (feet - AltitudeMin + AltitudeScale>>1) / AltitudeScale
	if v > altitudeMax {
		v = altitudeMax
	}
	return uint16(v)
}
