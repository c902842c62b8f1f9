package fifo

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/ardnew/stkbridge/device/hal"
	"github.com/ardnew/stkbridge/pkg"
)

func startDevice(t *testing.T) (*HAL, *Host) {
	t.Helper()
	bus := t.TempDir()

	dev := New(bus)
	if err := dev.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { dev.Stop() })

	err := dev.ConfigureEndpoints([]hal.EndpointConfig{
		{Address: 0x81, Attributes: hal.TransferTypeBulk, MaxPacketSize: 64},
		{Address: 0x02, Attributes: hal.TransferTypeBulk, MaxPacketSize: 64},
	})
	if err != nil {
		t.Fatalf("ConfigureEndpoints() error = %v", err)
	}
	if err := dev.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	dir, err := Discover(bus)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if dir != dev.DeviceDir() {
		t.Errorf("Discover() = %q, want %q", dir, dev.DeviceDir())
	}

	host, err := Dial(dir, 0x81, 0x02)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { host.Close() })
	return dev, host
}

func TestHAL_InitCreatesDeviceDir(t *testing.T) {
	bus := t.TempDir()
	dev := New(bus)
	if err := dev.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	dir := dev.DeviceDir()
	if len(dev.UUID()) != 32 {
		t.Errorf("UUID() = %q, want 32 hex digits", dev.UUID())
	}
	for _, name := range []string{fifoConnection, "ep1_in", "ep2_out", "ep15_in"} {
		fi, err := os.Stat(dir + "/" + name)
		if err != nil {
			t.Errorf("stat %s: %v", name, err)
			continue
		}
		if fi.Mode()&os.ModeNamedPipe == 0 {
			t.Errorf("%s is not a named pipe", name)
		}
	}

	if err := dev.Init(context.Background()); !errors.Is(err, pkg.ErrAlreadyRunning) {
		t.Errorf("second Init() error = %v, want ErrAlreadyRunning", err)
	}

	dev.Stop()
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("device dir still present after Stop: %v", err)
	}
}

func TestHAL_StartBeforeInit(t *testing.T) {
	dev := New(t.TempDir())
	if err := dev.Start(); !errors.Is(err, pkg.ErrNotConfigured) {
		t.Errorf("Start() error = %v, want ErrNotConfigured", err)
	}
}

func TestHostWaitConnected(t *testing.T) {
	dev, host := startDevice(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := host.WaitConnected(ctx); err != nil {
		t.Fatalf("WaitConnected() error = %v", err)
	}
	if !dev.IsConnected() {
		t.Error("IsConnected() = false after Start")
	}
	if err := dev.WaitConnect(ctx); err != nil {
		t.Errorf("WaitConnect() error = %v", err)
	}
}

func TestPacketRoundTrip(t *testing.T) {
	dev, host := startDevice(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	tests := []struct {
		name string
		data []byte
	}{
		{"zero-length", []byte{}},
		{"short", []byte{0x1B, 0x01}},
		{"full", bytes.Repeat([]byte{0xA5}, 64)},
	}

	for _, tt := range tests {
		t.Run(tt.name+" OUT", func(t *testing.T) {
			if _, err := host.WritePacket(ctx, tt.data); err != nil {
				t.Fatalf("WritePacket() error = %v", err)
			}
			buf := make([]byte, 64)
			n, err := dev.Read(ctx, 0x02, buf)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !bytes.Equal(buf[:n], tt.data) {
				t.Errorf("Read() = %x, want %x", buf[:n], tt.data)
			}
		})

		t.Run(tt.name+" IN", func(t *testing.T) {
			if _, err := dev.Write(ctx, 0x81, tt.data); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			buf := make([]byte, 64)
			n, err := host.ReadPacket(ctx, buf)
			if err != nil {
				t.Fatalf("ReadPacket() error = %v", err)
			}
			if !bytes.Equal(buf[:n], tt.data) {
				t.Errorf("ReadPacket() = %x, want %x", buf[:n], tt.data)
			}
		})
	}
}

func TestTransferRoundTrip(t *testing.T) {
	dev, host := startDevice(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	body := make([]byte, 200)
	for i := range body {
		body[i] = byte(i)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := pkg.WriteTransfer(ctx, host, body, 64)
		errCh <- err
	}()

	buf := make([]byte, 275)
	n, err := pkg.ReadTransfer(ctx, outEndpoint{dev, 0x02}, buf, 64)
	if err != nil {
		t.Fatalf("ReadTransfer() error = %v", err)
	}
	if !bytes.Equal(buf[:n], body) {
		t.Errorf("ReadTransfer() = %d bytes, want %d", n, len(body))
	}
	if err := <-errCh; err != nil {
		t.Errorf("WriteTransfer() error = %v", err)
	}
}

// outEndpoint adapts a HAL OUT endpoint to pkg.PacketReader.
type outEndpoint struct {
	h    *HAL
	addr uint8
}

func (e outEndpoint) ReadPacket(ctx context.Context, buf []byte) (int, error) {
	return e.h.Read(ctx, e.addr, buf)
}

func TestEndpointErrors(t *testing.T) {
	dev, _ := startDevice(t)
	ctx := context.Background()
	buf := make([]byte, 64)

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"read IN endpoint", func() error { _, err := dev.Read(ctx, 0x81, buf); return err }, pkg.ErrInvalidEndpoint},
		{"write OUT endpoint", func() error { _, err := dev.Write(ctx, 0x02, buf); return err }, pkg.ErrInvalidEndpoint},
		{"unconfigured", func() error { _, err := dev.Read(ctx, 0x03, buf); return err }, pkg.ErrNotConfigured},
		{"endpoint zero", func() error { _, err := dev.Read(ctx, 0x00, buf); return err }, pkg.ErrInvalidEndpoint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestStall(t *testing.T) {
	dev, _ := startDevice(t)
	ctx := context.Background()

	if err := dev.Stall(0x81); err != nil {
		t.Fatalf("Stall() error = %v", err)
	}
	if _, err := dev.Write(ctx, 0x81, []byte{1}); !errors.Is(err, pkg.ErrStall) {
		t.Errorf("Write() on stalled endpoint error = %v, want ErrStall", err)
	}
	if err := dev.ClearStall(0x81); err != nil {
		t.Fatalf("ClearStall() error = %v", err)
	}
	if _, err := dev.Write(ctx, 0x81, []byte{1}); err != nil {
		t.Errorf("Write() after ClearStall error = %v", err)
	}
}

func TestReadCancelled(t *testing.T) {
	dev, _ := startDevice(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := dev.Read(ctx, 0x02, make([]byte, 64))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Read() error = %v, want DeadlineExceeded", err)
	}
}

func TestDiscoverEmptyBus(t *testing.T) {
	if _, err := Discover(t.TempDir()); !errors.Is(err, pkg.ErrNoDevice) {
		t.Errorf("Discover() error = %v, want ErrNoDevice", err)
	}
}

func TestDialInvalidEndpoints(t *testing.T) {
	if _, err := Dial(t.TempDir(), 0x01, 0x02); !errors.Is(err, pkg.ErrInvalidEndpoint) {
		t.Errorf("Dial() error = %v, want ErrInvalidEndpoint", err)
	}
}
