package device

import (
	"context"
	"fmt"

	"github.com/ardnew/stkbridge/device/hal"
	"github.com/ardnew/stkbridge/pkg"
)

// Bulk is a vendor-specific interface with one bulk IN and one bulk OUT
// endpoint. Transfers on it are framed by short packets: a transfer ends
// with a packet shorter than the endpoint size, or a zero-length packet.
type Bulk struct {
	hal hal.DeviceHAL
	in  *Endpoint
	out *Endpoint
}

// BulkOption configures a Bulk interface.
type BulkOption func(*Bulk)

// WithEndpoints overrides the IN and OUT endpoint addresses.
func WithEndpoints(in, out uint8) BulkOption {
	return func(b *Bulk) {
		b.in.Address = in | EndpointDirectionIn
		b.out.Address = out &^ EndpointDirectionIn
	}
}

// WithMaxPacket overrides the packet size of both endpoints.
func WithMaxPacket(size uint16) BulkOption {
	return func(b *Bulk) {
		b.in.MaxPacketSize = size
		b.out.MaxPacketSize = size
	}
}

// NewBulk creates a bulk IN/OUT pair on h.
func NewBulk(h hal.DeviceHAL, opts ...BulkOption) *Bulk {
	b := &Bulk{
		hal: h,
		in:  NewBulkEndpoint(DefaultInAddress, DefaultMaxPacket),
		out: NewBulkEndpoint(DefaultOutAddress, DefaultMaxPacket),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// In returns the IN endpoint.
func (b *Bulk) In() *Endpoint {
	return b.in
}

// Out returns the OUT endpoint.
func (b *Bulk) Out() *Endpoint {
	return b.out
}

// Endpoints returns the HAL configuration of both endpoints.
func (b *Bulk) Endpoints() []hal.EndpointConfig {
	return []hal.EndpointConfig{b.in.Config(), b.out.Config()}
}

// Validate checks the endpoint addresses and packet sizes.
func (b *Bulk) Validate() error {
	for _, ep := range []*Endpoint{b.in, b.out} {
		if ep.Number() == 0 {
			return fmt.Errorf("%s: %w", ep, pkg.ErrInvalidEndpoint)
		}
		if ep.MaxPacketSize == 0 || int(ep.MaxPacketSize) > pkg.MaxPacketSize {
			return fmt.Errorf("%s: %w", ep, pkg.ErrInvalidParameter)
		}
	}
	return nil
}

// ReadTransfer drains one complete OUT transfer into buf. It blocks until
// the host sends the terminating short packet or ctx is done. A transfer
// larger than buf is drained to its end and reported with [pkg.ErrOverrun].
func (b *Bulk) ReadTransfer(ctx context.Context, buf []byte) (int, error) {
	return pkg.ReadTransfer(ctx, outPipe{b}, buf, int(b.out.MaxPacketSize))
}

// WriteTransfer sends data as one IN transfer, ending it with a
// zero-length packet when its length is a multiple of the packet size.
func (b *Bulk) WriteTransfer(ctx context.Context, data []byte) (int, error) {
	return pkg.WriteTransfer(ctx, inPipe{b}, data, int(b.in.MaxPacketSize))
}

// Stall halts ep until ClearStall.
func (b *Bulk) Stall(ep *Endpoint) error {
	if err := b.hal.Stall(ep.Address); err != nil {
		return err
	}
	ep.SetStall(true)
	return nil
}

// ClearStall clears a halt on ep.
func (b *Bulk) ClearStall(ep *Endpoint) error {
	if err := b.hal.ClearStall(ep.Address); err != nil {
		return err
	}
	ep.SetStall(false)
	return nil
}

// outPipe reads packets from the OUT endpoint.
type outPipe struct{ b *Bulk }

func (p outPipe) ReadPacket(ctx context.Context, buf []byte) (int, error) {
	if p.b.out.IsStalled() {
		return 0, pkg.ErrStall
	}
	return p.b.hal.Read(ctx, p.b.out.Address, buf)
}

// inPipe writes packets to the IN endpoint.
type inPipe struct{ b *Bulk }

func (p inPipe) WritePacket(ctx context.Context, data []byte) (int, error) {
	if p.b.in.IsStalled() {
		return 0, pkg.ErrStall
	}
	return p.b.hal.Write(ctx, p.b.in.Address, data)
}
