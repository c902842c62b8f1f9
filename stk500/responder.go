package stk500

import (
	"context"
	"errors"
	"io"

	"github.com/ardnew/stkbridge/pkg"
)

// Handler returns the response body for a command body.
type Handler func(body []byte) []byte

// Responder plays the far end of the UART link: it reads command frames and
// answers each with a response frame carrying the same sequence number.
type Responder struct {
	rw      io.ReadWriter
	handler Handler
	rxBuf   [MaxFrameSize]byte
	txBuf   []byte
}

// NewResponder creates a responder on rw. A nil handler uses [DefaultHandler].
func NewResponder(rw io.ReadWriter, h Handler) *Responder {
	if h == nil {
		h = DefaultHandler
	}
	return &Responder{
		rw:      rw,
		handler: h,
		txBuf:   make([]byte, 0, MaxFrameSize),
	}
}

// Serve answers frames until ctx is done or the underlying reader fails.
// Close the port to unblock a pending read.
func (r *Responder) Serve(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.ServeOne(); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return err
		}
	}
}

// ServeOne reads a single frame and writes its response.
func (r *Responder) ServeOne() error {
	f, err := ReadFrame(r.rw, r.rxBuf[:])
	var body []byte
	switch {
	case err == nil:
		body = r.handler(f.Body)
		pkg.LogDebug(pkg.ComponentTarget, "command answered",
			"seq", f.Sequence,
			"command", pkg.Hex(f.Body),
			"response", pkg.Hex(body))
	case errors.Is(err, pkg.ErrChecksum):
		pkg.LogWarn(pkg.ComponentTarget, "command rejected", "error", err)
		f.Sequence = r.rxBuf[OffsetSequence]
		body = []byte{AnswerCksumError, StatusCksumError}
	default:
		return err
	}

	r.txBuf = AppendFrame(r.txBuf[:0], f.Sequence, body)
	_, err = r.rw.Write(r.txBuf)
	return err
}

// DefaultHandler answers like a minimal AVRISP mkII with no target attached:
// sign-on reports [SignOnName], signature reads return zero and every known
// command succeeds.
func DefaultHandler(body []byte) []byte {
	if len(body) == 0 {
		return []byte{StatusCmdFailed}
	}
	cmd := body[0]
	switch cmd {
	case CmdSignOn:
		out := []byte{cmd, StatusCmdOK, byte(len(SignOnName))}
		return append(out, SignOnName...)
	case CmdGetParameter:
		return []byte{cmd, StatusCmdOK, 0}
	case CmdReadSignatureISP:
		return []byte{cmd, StatusCmdOK, 0, StatusCmdOK}
	case CmdSetParameter, CmdLoadAddress, CmdEnterProgmodeISP,
		CmdLeaveProgmodeISP, CmdChipEraseISP, CmdProgramFlashISP:
		return []byte{cmd, StatusCmdOK}
	case CmdReadFlashISP:
		n := 0
		if len(body) >= 3 {
			n = int(body[1])<<8 | int(body[2])
		}
		if n > MaxBodySize-3 {
			n = MaxBodySize - 3
		}
		out := make([]byte, 0, n+3)
		out = append(out, cmd, StatusCmdOK)
		for i := 0; i < n; i++ {
			out = append(out, 0xFF)
		}
		return append(out, StatusCmdOK)
	default:
		return []byte{cmd, StatusCmdUnknown}
	}
}
