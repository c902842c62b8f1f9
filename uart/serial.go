//go:build !tinygo

package uart

import (
	"fmt"
	"time"

	"go.bug.st/serial"

	"github.com/ardnew/stkbridge/pkg"
	"github.com/ardnew/stkbridge/stk500"
)

// DefaultReadTimeout bounds each blocking read on a host serial port so the
// receive goroutine can observe cancellation.
const DefaultReadTimeout = 100 * time.Millisecond

// Config describes a host serial port. The line rate is always
// [stk500.BaudRate], 8 data bits, no parity, one stop bit.
type Config struct {
	// Device is the port name, e.g. "/dev/ttyUSB0" or "COM3".
	Device string

	// ReadTimeout is the per-read timeout (default DefaultReadTimeout).
	ReadTimeout time.Duration
}

// Open opens and configures the serial device named by cfg.
func Open(cfg Config) (Port, error) {
	if cfg.Device == "" {
		return nil, fmt.Errorf("serial device: %w", pkg.ErrInvalidParameter)
	}

	mode := &serial.Mode{
		BaudRate: stk500.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Device, err)
	}

	timeout := cfg.ReadTimeout
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", cfg.Device, err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, fmt.Errorf("reset input buffer on %s: %w", cfg.Device, err)
	}

	pkg.LogInfo(pkg.ComponentUART, "serial port opened",
		"device", cfg.Device,
		"baud", stk500.BaudRate)
	return port, nil
}

// Ports returns the names of the serial ports present on the host.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}
