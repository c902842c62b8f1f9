// Package uart drives the serial link to the target device.
//
// The bridge core is written against an interrupt model: a transmit-empty
// handler that loads the next byte whenever the transmit register is free,
// and a receive handler that is called once per arriving byte. [Driver]
// provides that model on top of any byte-stream [Port] by running one
// goroutine per interrupt source. Handler calls are never concurrent with
// each other from the driver's side; the handler still guards its own state
// against the main loop.
//
// Ports:
//
//   - [Open] opens a host serial device with go.bug.st/serial at
//     [stk500.BaudRate], 8N1.
//   - [Loopback] returns an in-memory port pair for tests and simulation.
//   - On TinyGo targets, [OpenMachine] wraps a machine.UART.
package uart
