package client

import (
	"context"
	"fmt"

	"github.com/google/gousb"

	"github.com/ardnew/stkbridge/device"
	"github.com/ardnew/stkbridge/pkg"
)

// USBTransport reaches the bridge's bulk endpoints through libusb.
type USBTransport struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	done func()
	in   *gousb.InEndpoint
	out  *gousb.OutEndpoint
}

// OpenUSB opens the first device matching vid and pid and claims its
// vendor interface. Zero IDs select the bridge defaults.
func OpenUSB(vid, pid gousb.ID) (t *USBTransport, err error) {
	if vid == 0 {
		vid = device.VendorID
	}
	if pid == 0 {
		pid = device.ProductID
	}

	ctx := gousb.NewContext()
	defer func() {
		if err != nil {
			ctx.Close()
		}
	}()

	dev, err := ctx.OpenDeviceWithVIDPID(vid, pid)
	if err != nil {
		return nil, fmt.Errorf("open %s:%s: %w", vid, pid, err)
	}
	if dev == nil {
		return nil, fmt.Errorf("%s:%s: %w", vid, pid, pkg.ErrNoDevice)
	}
	dev.SetAutoDetach(true)

	intf, done, err := dev.DefaultInterface()
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("claim interface: %w", err)
	}

	in, err := intf.InEndpoint(device.DefaultInAddress & 0x0F)
	if err != nil {
		done()
		dev.Close()
		return nil, fmt.Errorf("IN endpoint: %w", err)
	}
	out, err := intf.OutEndpoint(device.DefaultOutAddress & 0x0F)
	if err != nil {
		done()
		dev.Close()
		return nil, fmt.Errorf("OUT endpoint: %w", err)
	}

	pkg.LogInfo(pkg.ComponentHost, "opened usb bridge",
		"device", fmt.Sprintf("%s:%s", vid, pid),
		"in", in.String(),
		"out", out.String())

	return &USBTransport{ctx: ctx, dev: dev, done: done, in: in, out: out}, nil
}

// MaxPacket returns the IN endpoint's packet size.
func (t *USBTransport) MaxPacket() int {
	return t.in.Desc.MaxPacketSize
}

// ReadPacket reads one packet from the IN endpoint.
func (t *USBTransport) ReadPacket(ctx context.Context, buf []byte) (int, error) {
	return t.in.ReadContext(ctx, buf)
}

// WritePacket writes one packet to the OUT endpoint.
func (t *USBTransport) WritePacket(ctx context.Context, data []byte) (int, error) {
	return t.out.WriteContext(ctx, data)
}

// Close releases the interface, the device and the libusb context.
func (t *USBTransport) Close() error {
	t.done()
	t.dev.Close()
	return t.ctx.Close()
}

var _ Transport = (*USBTransport)(nil)
