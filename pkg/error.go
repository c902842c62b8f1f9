package pkg

import "errors"

// USB transport errors.
var (
	// ErrStall indicates an endpoint stall condition.
	ErrStall = errors.New("endpoint stalled")

	// ErrTimeout indicates a transfer or response timeout.
	ErrTimeout = errors.New("transfer timeout")

	// ErrCancelled indicates a cancelled transfer.
	ErrCancelled = errors.New("transfer cancelled")

	// ErrOverrun indicates more data arrived than the receive buffer holds.
	ErrOverrun = errors.New("data overrun")

	// ErrProtocol indicates a malformed packet on the transport.
	ErrProtocol = errors.New("protocol error")

	// ErrNoDevice indicates the device is not present.
	ErrNoDevice = errors.New("device not present")

	// ErrNotConfigured indicates the device is not configured.
	ErrNotConfigured = errors.New("device not configured")

	// ErrInvalidEndpoint indicates an invalid endpoint address.
	ErrInvalidEndpoint = errors.New("invalid endpoint")

	// ErrBufferTooSmall indicates the provided buffer is too small.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrAlreadyRunning indicates the stack is already running.
	ErrAlreadyRunning = errors.New("already running")

	// ErrNotRunning indicates the stack is not running.
	ErrNotRunning = errors.New("not running")

	// ErrInvalidParameter indicates an invalid parameter was provided.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// Bridge framing errors.
var (
	// ErrBusy indicates a command arrived while an epoch was still in flight.
	ErrBusy = errors.New("bridge busy")

	// ErrFrameTooLarge indicates a command body exceeds the frame capacity.
	ErrFrameTooLarge = errors.New("frame body too large")

	// ErrResponseOverflow indicates the UART response does not fit the frame buffer.
	ErrResponseOverflow = errors.New("response overflows frame buffer")

	// ErrChecksum indicates a frame checksum mismatch.
	ErrChecksum = errors.New("checksum mismatch")

	// ErrAborted indicates an in-flight epoch was abandoned.
	ErrAborted = errors.New("epoch aborted")
)
