package uart

import (
	"context"
	"io"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/ardnew/stkbridge/pkg"
)

// Port is a byte-stream serial port.
//
// Read may return 0 bytes with a nil error when a read timeout expires.
type Port interface {
	io.ReadWriteCloser
}

// Handler services UART interrupts.
type Handler interface {
	// TxEmpty is called whenever the transmit register is free while the
	// transmit-empty interrupt is enabled. It returns the byte to load, or
	// ok=false when nothing is pending, which disables the interrupt.
	TxEmpty() (b byte, ok bool)

	// RxComplete is called once for every byte received from the wire.
	RxComplete(b byte)
}

// Interrupts controls the transmit-empty interrupt.
type Interrupts interface {
	EnableTxEmpty()
	DisableTxEmpty()
}

// txChunk bounds how many bytes the transmit goroutine collects from the
// handler before writing them to the port.
const txChunk = 64

// rxChunk is the receive read size.
const rxChunk = 64

// Driver emulates the UART transmit-empty and receive interrupts over a Port.
type Driver struct {
	port    Port
	handler Handler

	txEnabled atomic.Bool
	txKick    chan struct{}

	// isr serializes handler calls between the two goroutines, matching
	// hardware where one interrupt runs at a time.
	isr sync.Mutex

	txBuf [txChunk]byte
	rxBuf [rxChunk]byte

	running atomic.Bool
}

// NewDriver creates a driver that feeds h from port.
func NewDriver(port Port, h Handler) *Driver {
	return &Driver{
		port:    port,
		handler: h,
		txKick:  make(chan struct{}, 1),
	}
}

// SetHandler replaces the interrupt handler. It must be called before Run.
func (d *Driver) SetHandler(h Handler) {
	d.handler = h
}

// EnableTxEmpty enables the transmit-empty interrupt. The transmit
// goroutine starts calling [Handler.TxEmpty] until it reports no more data
// or [Driver.DisableTxEmpty] is called.
func (d *Driver) EnableTxEmpty() {
	d.txEnabled.Store(true)
	select {
	case d.txKick <- struct{}{}:
	default:
	}
}

// DisableTxEmpty disables the transmit-empty interrupt.
func (d *Driver) DisableTxEmpty() {
	d.txEnabled.Store(false)
}

// TxEnabled reports whether the transmit-empty interrupt is enabled.
func (d *Driver) TxEnabled() bool {
	return d.txEnabled.Load()
}

// Run services both interrupt sources until ctx is done or the port fails.
// It closes the port before returning so a blocked read is released.
func (d *Driver) Run(ctx context.Context) error {
	if d.handler == nil {
		return pkg.ErrNotConfigured
	}
	if !d.running.CompareAndSwap(false, true) {
		return pkg.ErrAlreadyRunning
	}
	defer d.running.Store(false)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		errCh <- d.rxLoop(runCtx)
	}()
	go func() {
		defer wg.Done()
		errCh <- d.txLoop(runCtx)
	}()

	pkg.LogDebug(pkg.ComponentUART, "uart driver started")

	err := <-errCh
	cancel()
	d.port.Close()
	wg.Wait()

	pkg.LogDebug(pkg.ComponentUART, "uart driver stopped", "error", err)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// rxLoop delivers every received byte to the handler.
func (d *Driver) rxLoop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := d.port.Read(d.rxBuf[:])
		if n > 0 {
			d.isr.Lock()
			for _, b := range d.rxBuf[:n] {
				d.handler.RxComplete(b)
			}
			d.isr.Unlock()
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			pkg.LogError(pkg.ComponentUART, "read failed", "error", err)
			return err
		}
		if n == 0 {
			runtime.Gosched()
		}
	}
}

// txLoop drains the handler while the transmit-empty interrupt is enabled.
func (d *Driver) txLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.txKick:
		}

		for d.txEnabled.Load() {
			n := 0
			d.isr.Lock()
			for n < len(d.txBuf) && d.txEnabled.Load() {
				b, ok := d.handler.TxEmpty()
				if !ok {
					d.txEnabled.Store(false)
					break
				}
				d.txBuf[n] = b
				n++
			}
			d.isr.Unlock()

			if n == 0 {
				continue
			}

			if err := d.write(d.txBuf[:n]); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				pkg.LogError(pkg.ComponentUART, "write failed", "error", err)
				return err
			}
		}
	}
}

// write writes all of p to the port.
func (d *Driver) write(p []byte) error {
	for len(p) > 0 {
		n, err := d.port.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		p = p[n:]
	}
	return nil
}
