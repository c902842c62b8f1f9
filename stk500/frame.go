package stk500

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ardnew/stkbridge/pkg"
)

// Frame is a decoded STK500v2 message.
type Frame struct {
	Sequence byte
	Body     []byte
}

// Checksum returns the XOR of every byte in data.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum ^= b
	}
	return sum
}

// PutHeader writes a frame header for a body of n bytes into buf.
// buf must hold at least [HeaderSize] bytes.
func PutHeader(buf []byte, seq byte, n int) {
	buf[OffsetStart] = MessageStart
	buf[OffsetSequence] = seq
	binary.BigEndian.PutUint16(buf[OffsetSize:], uint16(n))
	buf[OffsetToken] = Token
}

// BodySize returns the body length declared by a frame header.
// buf must hold at least the first four header bytes.
func BodySize(buf []byte) int {
	return int(binary.BigEndian.Uint16(buf[OffsetSize:]))
}

// FrameSize returns the total on-wire length of a frame with an n-byte body.
func FrameSize(n int) int {
	return HeaderSize + n + ChecksumSize
}

// AppendFrame appends the complete frame for body to dst.
func AppendFrame(dst []byte, seq byte, body []byte) []byte {
	start := len(dst)
	var hdr [HeaderSize]byte
	PutHeader(hdr[:], seq, len(body))
	dst = append(dst, hdr[:]...)
	dst = append(dst, body...)
	return append(dst, Checksum(dst[start:]))
}

// ReadFrame reads one frame from r into buf and returns it. The returned
// body aliases buf. buf must hold [MaxFrameSize] bytes.
//
// Bytes before a start marker are skipped. A frame with a bad token, an
// oversized body or a bad checksum returns an error wrapping
// [pkg.ErrProtocol], [pkg.ErrFrameTooLarge] or [pkg.ErrChecksum].
func ReadFrame(r io.Reader, buf []byte) (Frame, error) {
	if len(buf) < MaxFrameSize {
		return Frame{}, pkg.ErrBufferTooSmall
	}

	for {
		if _, err := io.ReadFull(r, buf[:1]); err != nil {
			return Frame{}, err
		}
		if buf[0] == MessageStart {
			break
		}
	}

	if _, err := io.ReadFull(r, buf[1:HeaderSize]); err != nil {
		return Frame{}, err
	}
	if buf[OffsetToken] != Token {
		return Frame{}, fmt.Errorf("token 0x%02X: %w", buf[OffsetToken], pkg.ErrProtocol)
	}

	n := BodySize(buf)
	if n > MaxBodySize {
		return Frame{}, fmt.Errorf("body size %d: %w", n, pkg.ErrFrameTooLarge)
	}

	end := HeaderSize + n
	if _, err := io.ReadFull(r, buf[HeaderSize:end+ChecksumSize]); err != nil {
		return Frame{}, err
	}
	if sum := Checksum(buf[:end]); sum != buf[end] {
		return Frame{}, fmt.Errorf("got 0x%02X, want 0x%02X: %w", buf[end], sum, pkg.ErrChecksum)
	}

	return Frame{Sequence: buf[OffsetSequence], Body: buf[HeaderSize:end]}, nil
}

// VerifyResponse checks the payload the bridge returns over USB, which is the
// response body followed by its checksum byte. The header the target sent is
// reconstructed from seq and the body length. It returns the body on success.
func VerifyResponse(payload []byte, seq byte) ([]byte, error) {
	if len(payload) < ChecksumSize {
		return nil, fmt.Errorf("empty response: %w", pkg.ErrProtocol)
	}
	body := payload[:len(payload)-ChecksumSize]

	var hdr [HeaderSize]byte
	PutHeader(hdr[:], seq, len(body))
	sum := Checksum(hdr[:]) ^ Checksum(body)
	if got := payload[len(payload)-1]; got != sum {
		return nil, fmt.Errorf("got 0x%02X, want 0x%02X: %w", got, sum, pkg.ErrChecksum)
	}
	return body, nil
}
