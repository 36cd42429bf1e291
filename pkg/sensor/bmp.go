package sensor

import (
	"fmt"
	"math"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"
)

// BMP reads a Bosch BMP180, BMP280 or BME280 over I2C.
type BMP struct {
	mu  sync.Mutex
	bus i2c.BusCloser
	dev *bmxx80.Dev
}

// OpenBMP opens the named I2C bus ("" for the first one) and probes the
// sensor at addr, normally 0x76 or 0x77.
func OpenBMP(busName string, addr uint16) (*BMP, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("%w: open I2C bus %q: %v", ErrBus, busName, err)
	}

	dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("%w: probe sensor at %#x: %v", ErrBus, addr, err)
	}
	return &BMP{bus: bus, dev: dev}, nil
}

func (b *BMP) sense() (physic.Env, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var e physic.Env
	if err := b.dev.Sense(&e); err != nil {
		return physic.Env{}, fmt.Errorf("%w: sense: %v", ErrBus, err)
	}
	return e, nil
}

// ReadRawTemperature returns the temperature in tenths of a degree C.
func (b *BMP) ReadRawTemperature() (int, error) {
	e, err := b.sense()
	if err != nil {
		return 0, err
	}
	return TenthsCelsius(e.Temperature), nil
}

// ReadRawPressure returns the pressure in Pa.
func (b *BMP) ReadRawPressure() (int, error) {
	e, err := b.sense()
	if err != nil {
		return 0, err
	}
	return Pascals(e.Pressure), nil
}

// Close halts the sensor and releases the bus.
func (b *BMP) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	haltErr := b.dev.Halt()
	if err := b.bus.Close(); err != nil {
		return err
	}
	return haltErr
}

// TenthsCelsius rounds t to tenths of a degree C.
func TenthsCelsius(t physic.Temperature) int {
	return int(math.Round(t.Celsius() * 10))
}

// Pascals rounds p to whole Pa.
func Pascals(p physic.Pressure) int {
	return int(math.Round(float64(p) / float64(physic.Pascal)))
}
