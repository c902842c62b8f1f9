package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ardnew/stkbridge/pkg"
	"github.com/ardnew/stkbridge/stk500"
	"github.com/ardnew/stkbridge/uart"
)

// txIdle marks the transmit cursor as disarmed.
const txIdle = 0xFFFF

// USB is the bulk interface the bridge serves.
type USB interface {
	// ReadTransfer reads one complete OUT transfer into buf. A transfer
	// larger than buf is drained and reported with [pkg.ErrOverrun].
	ReadTransfer(ctx context.Context, buf []byte) (int, error)

	// WriteTransfer sends data as one IN transfer.
	WriteTransfer(ctx context.Context, data []byte) (int, error)
}

// Bridge relays one STK500v2 command at a time between USB and a UART.
// It implements [uart.Handler].
type Bridge struct {
	usb USB
	irq uart.Interrupts
	cfg Config

	// mutex is held by every handler for its whole body, the way interrupts
	// are masked around the shared buffer on a microcontroller.
	mutex    sync.Mutex
	buf      [stk500.MaxFrameSize]byte
	txp      uint16
	bufp     uint16
	state    State
	overflow bool
	stats    Stats

	ready chan struct{} // response complete or overflowed
	abort chan struct{} // epoch abandoned from outside Run

	running atomic.Bool
}

// New creates a bridge moving commands from usb to the UART controlled by irq.
func New(usb USB, irq uart.Interrupts, opts ...Option) *Bridge {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	b := &Bridge{
		usb:   usb,
		irq:   irq,
		cfg:   cfg,
		txp:   txIdle,
		ready: make(chan struct{}, 1),
		abort: make(chan struct{}, 1),
	}
	stk500.PutHeader(b.buf[:], stk500.DefaultSequence, 0)
	return b
}

// Config returns the bridge configuration.
func (b *Bridge) Config() Config {
	return b.cfg
}

// BodyBuffer returns the body region of the frame buffer. A command body is
// read into it before [Bridge.ReceiveCommand] is called. It must only be
// written while the bridge is Idle.
func (b *Bridge) BodyBuffer() []byte {
	return b.buf[stk500.HeaderSize : stk500.HeaderSize+stk500.MaxBodySize]
}

// State returns the current epoch state.
func (b *Bridge) State() State {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.state
}

// Stats returns a snapshot of the bridge counters.
func (b *Bridge) Stats() Stats {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.stats
}

// ReceiveCommand frames the n body bytes already in [Bridge.BodyBuffer] and
// arms the UART transmitter.
func (b *Bridge) ReceiveCommand(n int) error {
	b.mutex.Lock()
	if b.state != StateIdle {
		b.mutex.Unlock()
		return pkg.ErrBusy
	}
	if n < 0 || n > stk500.MaxBodySize {
		b.stats.Rejected++
		b.mutex.Unlock()
		return fmt.Errorf("body of %d bytes: %w", n, pkg.ErrFrameTooLarge)
	}

	stk500.PutHeader(b.buf[:], stk500.DefaultSequence, n)
	total := stk500.HeaderSize + n
	b.buf[total] = stk500.Checksum(b.buf[:total])

	b.bufp = 0
	b.txp = uint16(total)
	b.overflow = false
	b.state = StateTxArmed
	b.stats.BytesOut += uint64(total + stk500.ChecksumSize)
	if pkg.DebugEnabled() {
		pkg.LogDebug(pkg.ComponentBridge, "command armed",
			"length", n,
			"frame", pkg.Hex(b.buf[:total+stk500.ChecksumSize]))
	}
	b.mutex.Unlock()

	b.irq.EnableTxEmpty()
	return nil
}

// TxEmpty returns the next frame byte for the UART. The checksum byte is the
// last one; sending it disarms the transmitter and starts response
// collection at the head of the buffer.
func (b *Bridge) TxEmpty() (byte, bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.state != StateTxArmed {
		return 0, false
	}
	if b.bufp != b.txp {
		c := b.buf[b.bufp]
		b.bufp++
		return c, true
	}

	c := b.buf[b.bufp]
	b.txp = txIdle
	b.bufp = 0
	b.state = StateRxAccum
	b.irq.DisableTxEmpty()
	return c, true
}

// RxComplete stores one byte of the target's response. Bytes arriving
// outside response collection are counted and dropped.
func (b *Bridge) RxComplete(c byte) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.state != StateRxAccum || b.overflow {
		b.stats.StrayBytes++
		return
	}
	if int(b.bufp) >= len(b.buf) {
		b.overflowLocked()
		return
	}

	b.buf[b.bufp] = c
	b.bufp++

	// wait for the length field
	if b.bufp < stk500.OffsetSize+2 {
		return
	}
	want := stk500.FrameSize(stk500.BodySize(b.buf[:]))
	switch {
	case want > len(b.buf):
		b.overflowLocked()
	case int(b.bufp) == want:
		b.state = StateFlush
		b.signal(b.ready)
	}
}

func (b *Bridge) overflowLocked() {
	b.overflow = true
	b.stats.Overflows++
	b.signal(b.ready)
}

// Response returns the body and checksum of a complete response. The slice
// aliases the frame buffer and is valid until [Bridge.CompleteResponse].
func (b *Bridge) Response() ([]byte, bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.state != StateFlush || b.txp != txIdle {
		return nil, false
	}
	if int(b.bufp) != stk500.FrameSize(stk500.BodySize(b.buf[:])) {
		return nil, false
	}
	return b.buf[stk500.HeaderSize:b.bufp], true
}

// CompleteResponse ends the epoch after the response reached the host.
func (b *Bridge) CompleteResponse() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.state != StateFlush {
		return
	}
	b.stats.Epochs++
	b.stats.BytesIn += uint64(b.bufp)
	b.bufp = 0
	b.state = StateIdle
}

// Abort abandons an in-flight epoch. It is safe to call at any time and
// does nothing while Idle. The USB disconnect callback calls it.
func (b *Bridge) Abort() {
	if b.reset() == StateIdle {
		return
	}
	b.mutex.Lock()
	b.stats.Aborts++
	b.mutex.Unlock()
	b.signal(b.abort)
	pkg.LogWarn(pkg.ComponentBridge, "epoch aborted")
}

// reset returns the bridge to Idle with both cursors cleared and reports
// the state it left.
func (b *Bridge) reset() State {
	b.irq.DisableTxEmpty()

	b.mutex.Lock()
	defer b.mutex.Unlock()
	prev := b.state
	b.state = StateIdle
	b.txp = txIdle
	b.bufp = 0
	b.overflow = false
	return prev
}

func (b *Bridge) signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (b *Bridge) drain() {
	for _, ch := range []chan struct{}{b.ready, b.abort} {
		select {
		case <-ch:
		default:
		}
	}
}

// Run serves epochs until ctx is done or the USB side fails. Epochs that
// are rejected, time out, overflow or are aborted are logged and the
// bridge goes back to waiting for the next command.
func (b *Bridge) Run(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return pkg.ErrAlreadyRunning
	}
	defer b.running.Store(false)

	pkg.LogInfo(pkg.ComponentBridge, "bridge running",
		"responseTimeout", b.cfg.ResponseTimeout)

	for {
		err := b.serve(ctx)
		if ctx.Err() != nil {
			b.reset()
			pkg.LogInfo(pkg.ComponentBridge, "bridge stopped")
			return nil
		}
		if err == nil {
			continue
		}
		if !recoverable(err) {
			b.reset()
			pkg.LogError(pkg.ComponentBridge, "bridge failed", "error", err)
			return err
		}
		pkg.LogWarn(pkg.ComponentBridge, "epoch abandoned", "error", err)
	}
}

// recoverable reports whether Run continues after err.
func recoverable(err error) bool {
	for _, target := range []error{
		pkg.ErrFrameTooLarge,
		pkg.ErrResponseOverflow,
		pkg.ErrTimeout,
		pkg.ErrAborted,
		pkg.ErrNotConfigured,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// serve runs one epoch.
func (b *Bridge) serve(ctx context.Context) error {
	b.drain()

	n, err := b.usb.ReadTransfer(ctx, b.BodyBuffer())
	if errors.Is(err, pkg.ErrOverrun) {
		b.mutex.Lock()
		b.stats.Rejected++
		b.mutex.Unlock()
		return fmt.Errorf("body exceeds %d bytes: %w", stk500.MaxBodySize, pkg.ErrFrameTooLarge)
	}
	if err != nil {
		return err
	}

	if err := b.ReceiveCommand(n); err != nil {
		return err
	}

	resp, err := b.awaitResponse(ctx)
	if err != nil {
		return err
	}

	if _, err := b.usb.WriteTransfer(ctx, resp); err != nil {
		b.reset()
		return err
	}
	pkg.LogDebug(pkg.ComponentBridge, "response delivered", "length", len(resp))
	b.CompleteResponse()
	return nil
}

// awaitResponse blocks until the armed epoch has a complete response.
func (b *Bridge) awaitResponse(ctx context.Context) ([]byte, error) {
	var timeout <-chan time.Time
	if b.cfg.ResponseTimeout > 0 {
		t := time.NewTimer(b.cfg.ResponseTimeout)
		defer t.Stop()
		timeout = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-b.abort:
			return nil, pkg.ErrAborted

		case <-timeout:
			b.reset()
			b.mutex.Lock()
			b.stats.Timeouts++
			b.mutex.Unlock()
			return nil, fmt.Errorf("no response after %v: %w", b.cfg.ResponseTimeout, pkg.ErrTimeout)

		case <-b.ready:
			b.mutex.Lock()
			overflow := b.overflow
			b.mutex.Unlock()
			if overflow {
				b.reset()
				return nil, pkg.ErrResponseOverflow
			}
			if resp, ok := b.Response(); ok {
				return resp, nil
			}
		}
	}
}

var _ uart.Handler = (*Bridge)(nil)
