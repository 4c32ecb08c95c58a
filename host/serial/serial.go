// Package serial opens the UART the firmware writes its debug trace to.
package serial

import (
	"io"
	"os"
	"time"
)

// Port represents a serial port interface. It is also satisfied by a
// capture file, so recorded traces can be replayed through the monitor.
type Port interface {
	io.ReadWriteCloser

	// Flush discards any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	// Baud rate of the firmware debug UART
	Baud int

	// Read timeout (0 = blocking)
	ReadTimeout time.Duration
}

// DefaultConfig returns the configuration matching the firmware defaults
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100 * time.Millisecond,
	}
}

// capturePort replays a trace captured to a file
type capturePort struct {
	*os.File
}

func (c capturePort) Flush() error { return nil }

// OpenCapture opens a raw trace capture for reading
func OpenCapture(path string) (Port, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return capturePort{f}, nil
}
