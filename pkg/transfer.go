package pkg

import "context"

// MaxPacketSize is the largest bulk packet any transport in this module
// produces (USB 2.0 high-speed bulk).
const MaxPacketSize = 512

// PacketReader reads one packet from an OUT (device side) or IN (host side)
// endpoint. A return of 0 with a nil error is a zero-length packet.
type PacketReader interface {
	ReadPacket(ctx context.Context, buf []byte) (int, error)
}

// PacketWriter writes one packet. Writing an empty slice sends a
// zero-length packet.
type PacketWriter interface {
	WritePacket(ctx context.Context, data []byte) (int, error)
}

// ReadTransfer reads packets from r into buf until a short or zero-length
// packet ends the transfer. It returns the number of bytes stored in buf.
//
// When the transfer carries more data than buf holds, the excess is drained
// and discarded so the next transfer starts on a packet boundary, and
// [ErrOverrun] is returned together with the number of bytes stored.
func ReadTransfer(ctx context.Context, r PacketReader, buf []byte, maxPacket int) (int, error) {
	if maxPacket <= 0 || maxPacket > MaxPacketSize {
		return 0, ErrInvalidParameter
	}

	var scratch [MaxPacketSize]byte
	n := 0
	overrun := false
	for {
		room := buf[n:]
		var m int
		var err error
		if len(room) >= maxPacket {
			m, err = r.ReadPacket(ctx, room[:maxPacket])
			if err != nil {
				return n, err
			}
			n += m
		} else {
			m, err = r.ReadPacket(ctx, scratch[:maxPacket])
			if err != nil {
				return n, err
			}
			c := copy(room, scratch[:m])
			n += c
			if c < m {
				overrun = true
			}
		}
		if m < maxPacket {
			break
		}
	}

	if overrun {
		return n, ErrOverrun
	}
	return n, nil
}

// WriteTransfer writes data to w as one transfer of packets no larger than
// maxPacket. A zero-length packet terminates transfers that are empty or an
// exact multiple of maxPacket. It returns the number of payload bytes written.
func WriteTransfer(ctx context.Context, w PacketWriter, data []byte, maxPacket int) (int, error) {
	if maxPacket <= 0 || maxPacket > MaxPacketSize {
		return 0, ErrInvalidParameter
	}

	n := 0
	for n < len(data) {
		end := n + maxPacket
		if end > len(data) {
			end = len(data)
		}
		m, err := w.WritePacket(ctx, data[n:end])
		n += m
		if err != nil {
			return n, err
		}
	}

	if len(data)%maxPacket == 0 {
		if _, err := w.WritePacket(ctx, nil); err != nil {
			return n, err
		}
	}
	return n, nil
}
