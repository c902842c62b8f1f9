//go:build tinygo

package uart

import (
	"machine"

	"github.com/ardnew/stkbridge/stk500"
)

// machinePort adapts a TinyGo machine.UART to Port. Reads are non-blocking
// and return 0 bytes when the receive ring is empty.
type machinePort struct {
	u *machine.UART
}

// OpenMachine configures u at [stk500.BaudRate] and returns it as a Port.
func OpenMachine(u *machine.UART, tx, rx machine.Pin) (Port, error) {
	if err := u.Configure(machine.UARTConfig{
		BaudRate: stk500.BaudRate,
		TX:       tx,
		RX:       rx,
	}); err != nil {
		return nil, err
	}
	return &machinePort{u: u}, nil
}

func (p *machinePort) Read(b []byte) (int, error) {
	return p.u.Read(b)
}

func (p *machinePort) Write(b []byte) (int, error) {
	return p.u.Write(b)
}

// Close is a no-op; on-chip UARTs live for the program's lifetime.
func (p *machinePort) Close() error {
	return nil
}
