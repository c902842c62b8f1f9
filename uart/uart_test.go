package uart

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ardnew/stkbridge/pkg"
)

// scriptHandler transmits a fixed payload once armed and records received bytes.
type scriptHandler struct {
	mu      sync.Mutex
	payload []byte
	pos     int
	rx      []byte
	rxCh    chan struct{}
}

func newScriptHandler(payload []byte) *scriptHandler {
	return &scriptHandler{payload: payload, rxCh: make(chan struct{}, 64)}
}

func (h *scriptHandler) TxEmpty() (byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pos >= len(h.payload) {
		return 0, false
	}
	b := h.payload[h.pos]
	h.pos++
	return b, true
}

func (h *scriptHandler) RxComplete(b byte) {
	h.mu.Lock()
	h.rx = append(h.rx, b)
	h.mu.Unlock()
	select {
	case h.rxCh <- struct{}{}:
	default:
	}
}

func (h *scriptHandler) received() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]byte(nil), h.rx...)
}

func startDriver(t *testing.T, port Port, h Handler) (*Driver, func()) {
	t.Helper()
	d := NewDriver(port, h)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	return d, func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run() error = %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("Run() did not return after cancel")
		}
	}
}

func readN(t *testing.T, r io.Reader, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	done := make(chan error, 1)
	go func() {
		_, err := io.ReadFull(r, buf)
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("read %d bytes: %v", n, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out reading %d bytes", n)
	}
	return buf
}

func TestDriver_TransmitWhenEnabled(t *testing.T) {
	local, remote := Loopback()
	defer remote.Close()

	payload := make([]byte, 150) // spans several transmit chunks
	for i := range payload {
		payload[i] = byte(i)
	}
	h := newScriptHandler(payload)
	d, stop := startDriver(t, local, h)
	defer stop()

	d.EnableTxEmpty()
	got := readN(t, remote, len(payload))
	if !bytes.Equal(got, payload) {
		t.Errorf("transmitted %x, want %x", got, payload)
	}

	deadline := time.Now().Add(time.Second)
	for d.TxEnabled() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if d.TxEnabled() {
		t.Error("transmit interrupt still enabled after handler finished")
	}
}

func TestDriver_NoTransmitWhileDisabled(t *testing.T) {
	local, remote := Loopback()
	defer remote.Close()

	h := newScriptHandler([]byte{1, 2, 3})
	_, stop := startDriver(t, local, h)

	time.Sleep(20 * time.Millisecond)
	stop()

	// remote observes EOF with nothing sent
	buf := make([]byte, 1)
	if n, _ := remote.Read(buf); n != 0 {
		t.Errorf("read %d bytes from idle transmitter", n)
	}
}

func TestDriver_ReceiveEveryByte(t *testing.T) {
	local, remote := Loopback()
	defer remote.Close()

	h := newScriptHandler(nil)
	_, stop := startDriver(t, local, h)
	defer stop()

	want := []byte{0x1B, 0x01, 0x00, 0x02, 0x0E, 0x01, 0x00, 0x17}
	if _, err := remote.Write(want); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	deadline := time.After(2 * time.Second)
	for len(h.received()) < len(want) {
		select {
		case <-h.rxCh:
		case <-deadline:
			t.Fatalf("received %x, want %x", h.received(), want)
		}
	}
	if got := h.received(); !bytes.Equal(got, want) {
		t.Errorf("received %x, want %x", got, want)
	}
}

func TestDriver_RunTwice(t *testing.T) {
	local, remote := Loopback()
	defer remote.Close()

	d, stop := startDriver(t, local, newScriptHandler(nil))
	defer stop()

	time.Sleep(10 * time.Millisecond)
	if err := d.Run(context.Background()); !errors.Is(err, pkg.ErrAlreadyRunning) {
		t.Errorf("second Run() error = %v, want ErrAlreadyRunning", err)
	}
}

func TestDriver_NoHandler(t *testing.T) {
	local, _ := Loopback()
	d := NewDriver(local, nil)
	if err := d.Run(context.Background()); !errors.Is(err, pkg.ErrNotConfigured) {
		t.Errorf("Run() error = %v, want ErrNotConfigured", err)
	}
}

func TestDriver_PeerClosed(t *testing.T) {
	local, remote := Loopback()
	d := NewDriver(local, newScriptHandler(nil))

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()

	remote.Close()
	select {
	case err := <-done:
		if !errors.Is(err, io.EOF) {
			t.Errorf("Run() error = %v, want EOF", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after peer closed")
	}
}

func TestLoopback(t *testing.T) {
	a, b := Loopback()
	if _, err := a.Write([]byte("ping")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if got := readN(t, b, 4); string(got) != "ping" {
		t.Errorf("read %q, want %q", got, "ping")
	}

	b.Close()
	if _, err := a.Write([]byte{1}); !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("Write() after peer close error = %v, want ErrClosedPipe", err)
	}
	if _, err := a.Read(make([]byte, 1)); !errors.Is(err, io.EOF) {
		t.Errorf("Read() after peer close error = %v, want EOF", err)
	}
}
