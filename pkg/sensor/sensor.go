// Package sensor reads the barometric pressure sensor.
//
// Readers return temperature in tenths of a degree C and pressure in
// hundredths of a millibar (Pa). A failed bus transaction is reported as an
// error wrapping ErrBus; a reading of zero is never used to signal failure.
package sensor

import "errors"

// ErrBus is wrapped by every error caused by the sensor bus.
var ErrBus = errors.New("sensor: bus error")

// Reader is a temperature and pressure sensor.
type Reader interface {
	ReadRawTemperature() (int, error)
	ReadRawPressure() (int, error)
}

// Read takes one temperature and pressure reading from r.
func Read(r Reader) (tempRaw, pressureRaw int, err error) {
	tempRaw, err = r.ReadRawTemperature()
	if err != nil {
		return 0, 0, err
	}
	pressureRaw, err = r.ReadRawPressure()
	if err != nil {
		return 0, 0, err
	}
	return tempRaw, pressureRaw, nil
}
