package transfer

import (
	"fmt"
	"io"
	"time"

	"github.com/jacobsa/go-serial/serial"
)

// DefaultBaudRate is the logger's serial speed.
const DefaultBaudRate = 38400

// SerialConfig selects a serial port.
type SerialConfig struct {
	Port     string        `yaml:"port"`
	BaudRate uint          `yaml:"baud_rate"`
	Timeout  time.Duration `yaml:"timeout"`
}

// OpenSerial opens an 8N1 serial port. With a timeout, reads return
// io.EOF after that much silence instead of blocking forever.
func OpenSerial(cfg SerialConfig) (io.ReadWriteCloser, error) {
	baud := cfg.BaudRate
	if baud == 0 {
		baud = DefaultBaudRate
	}
	opts := serial.OpenOptions{
		PortName:        cfg.Port,
		BaudRate:        baud,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	}
	if cfg.Timeout > 0 {
		opts.MinimumReadSize = 0
		opts.InterCharacterTimeout = uint(cfg.Timeout / time.Millisecond)
	}

	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, err)
	}
	return port, nil
}
