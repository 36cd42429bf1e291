package sensor

import (
	"fmt"
	"sync"
)

// Sim is a deterministic simulated sensor. Each reading moves by the
// configured drift, so a climbing hiker is a falling PressureDrift.
type Sim struct {
	mu               sync.Mutex
	temperature      int
	pressure         int
	temperatureDrift int
	pressureDrift    int
	failing          bool
	reads            int
}

// NewSim returns a sensor that starts at tempRaw (tenths of a degree C)
// and pressureRaw (Pa).
func NewSim(tempRaw, pressureRaw int) *Sim {
	return &Sim{temperature: tempRaw, pressure: pressureRaw}
}

// SetDrift sets how much each reading changes the next one.
func (s *Sim) SetDrift(temperature, pressure int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.temperatureDrift = temperature
	s.pressureDrift = pressure
}

// SetFailing makes every read fail with ErrBus until cleared.
func (s *Sim) SetFailing(failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = failing
}

// Reads returns the number of successful reads.
func (s *Sim) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func (s *Sim) ReadRawTemperature() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return 0, fmt.Errorf("%w: simulated fault", ErrBus)
	}
	v := s.temperature
	s.temperature += s.temperatureDrift
	s.reads++
	return v, nil
}

func (s *Sim) ReadRawPressure() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return 0, fmt.Errorf("%w: simulated fault", ErrBus)
	}
	v := s.pressure
	s.pressure += s.pressureDrift
	s.reads++
	return v, nil
}
