// Package uart attaches MTP40-F devices to serial ports.
//
// A Port is a plain blocking byte stream; Stream turns it into the non-blocking
// mtp40f.Transport by reading the port on a background goroutine.
package uart

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// Port is a serial port.
//
// Implementations:
//   - NativePort, backed by github.com/tarm/serial
//   - in-memory ports in tests
type Port interface {
	io.ReadWriteCloser

	// Flush waits until written data has been handed to the device.
	Flush() error
}

// Default values. The MTP40-F talks 9600 baud, 8N1.
const (
	DefaultBaud        = 9600
	DefaultReadTimeout = 100 * time.Millisecond
)

// Config holds serial port configuration.
type Config struct {
	// Device path, e.g. "/dev/ttyUSB0" or "COM3".
	Device string
	// Baud rate.
	Baud int
	// ReadTimeout bounds a single read; 0 blocks until data arrives.
	ReadTimeout time.Duration
}

// DefaultConfig returns the configuration for an MTP40-F on device.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: DefaultReadTimeout,
	}
}

// NativePort wraps a tarm/serial port.
type NativePort struct {
	port *serial.Port
	cfg  *Config
}

var _ Port = (*NativePort)(nil)

// Open opens the serial port described by cfg.
func Open(cfg *Config) (*NativePort, error) {
	if cfg == nil {
		return nil, errors.New("uart: config is nil")
	}
	if cfg.Device == "" {
		return nil, errors.New("uart: device path is empty")
	}
	if cfg.Baud <= 0 {
		return nil, fmt.Errorf("uart: invalid baud rate %d", cfg.Baud)
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	})
	if err != nil {
		return nil, fmt.Errorf("uart: open %s: %w", cfg.Device, err)
	}

	return &NativePort{port: port, cfg: cfg}, nil
}

// Device returns the device path of the port.
func (p *NativePort) Device() string {
	return p.cfg.Device
}

func (p *NativePort) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

func (p *NativePort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

func (p *NativePort) Close() error {
	if p.port == nil {
		return nil
	}

	return p.port.Close()
}

// Flush is a no-op. tarm/serial writes go straight to the file descriptor, and its own
// Flush discards unread input as well as unsent output.
func (p *NativePort) Flush() error {
	return nil
}
