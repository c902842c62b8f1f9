package fifo

import (
	"context"
	"encoding/binary"
	"io"
	"os"
	"time"

	"github.com/ardnew/stkbridge/pkg"
)

// msgData tags a data packet on an endpoint FIFO.
const msgData = 0x02

// Header size for messages.
const headerSize = 3 // type (1) + length (2)

// pollInterval bounds each blocking FIFO read so cancellation is noticed.
const pollInterval = 100 * time.Millisecond

// readFull reads exactly len(buf) bytes from f, honoring ctx and done.
func readFull(ctx context.Context, f *os.File, buf []byte, done <-chan struct{}) (int, error) {
	total := 0
	for total < len(buf) {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		case <-done:
			return total, pkg.ErrCancelled
		default:
		}

		f.SetReadDeadline(time.Now().Add(pollInterval))
		n, err := f.Read(buf[total:])
		if n > 0 {
			total += n
		}
		if err != nil {
			if os.IsTimeout(err) {
				continue
			}
			return total, err
		}
	}
	return total, nil
}

// readPacket reads one DATA message from f into buf.
func readPacket(ctx context.Context, f *os.File, buf []byte, done <-chan struct{}) (int, error) {
	var header [headerSize]byte
	n, err := readFull(ctx, f, header[:], done)
	if err != nil {
		return 0, err
	}
	if n < headerSize {
		return 0, io.ErrUnexpectedEOF
	}

	if header[0] != msgData {
		return 0, pkg.ErrProtocol
	}

	length := int(binary.LittleEndian.Uint16(header[1:3]))
	if length == 0 {
		return 0, nil // Zero-length packet
	}
	if length > len(buf) {
		// Consume the payload so the stream stays aligned.
		var discard [pkg.MaxPacketSize]byte
		if length <= len(discard) {
			readFull(ctx, f, discard[:length], done)
		}
		return 0, pkg.ErrBufferTooSmall
	}

	return readFull(ctx, f, buf[:length], done)
}

// writePacket writes data to f as one DATA message.
func writePacket(ctx context.Context, f *os.File, data []byte, done <-chan struct{}) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return pkg.ErrCancelled
	default:
	}

	if len(data) > pkg.MaxPacketSize {
		return pkg.ErrBufferTooSmall
	}

	var buf [headerSize + pkg.MaxPacketSize]byte
	buf[0] = msgData
	binary.LittleEndian.PutUint16(buf[1:3], uint16(len(data)))
	copy(buf[headerSize:], data)

	total := headerSize + len(data)
	written := 0
	for written < total {
		m, err := f.Write(buf[written:total])
		if m > 0 {
			written += m
		}
		if err != nil {
			return err
		}
	}
	return nil
}
