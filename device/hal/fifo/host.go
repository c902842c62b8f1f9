package fifo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/ardnew/stkbridge/pkg"
)

// Host is the host end of one device's bulk IN/OUT pair on a FIFO bus.
// It implements [pkg.PacketReader] and [pkg.PacketWriter].
type Host struct {
	dir  string
	in   *os.File // host reads device IN data
	out  *os.File // host writes device OUT data
	conn *os.File // connection signal

	writeMutex sync.Mutex
	closeCh    chan struct{}
	closeOnce  sync.Once
}

// Discover returns the first device directory under busDir.
func Discover(busDir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(busDir, "device-*"))
	if err != nil {
		return "", err
	}
	sort.Strings(matches)
	for _, m := range matches {
		if fi, err := os.Stat(m); err == nil && fi.IsDir() {
			return m, nil
		}
	}
	return "", fmt.Errorf("%s: %w", busDir, pkg.ErrNoDevice)
}

// Dial opens the host end of the IN endpoint inAddr and the OUT endpoint
// outAddr in the device directory deviceDir.
func Dial(deviceDir string, inAddr, outAddr uint8) (*Host, error) {
	inNum, outNum := inAddr&0x0F, outAddr&0x0F
	if inAddr&0x80 == 0 || outAddr&0x80 != 0 ||
		inNum == 0 || inNum > MaxEndpoints || outNum == 0 || outNum > MaxEndpoints {
		return nil, pkg.ErrInvalidEndpoint
	}

	h := &Host{dir: deviceDir, closeCh: make(chan struct{})}
	var err error
	if h.conn, err = openFIFO(deviceDir, fifoConnection); err != nil {
		return nil, err
	}
	if h.in, err = openFIFO(deviceDir, inName(inNum)); err != nil {
		h.Close()
		return nil, err
	}
	if h.out, err = openFIFO(deviceDir, outName(outNum)); err != nil {
		h.Close()
		return nil, err
	}

	pkg.LogDebug(pkg.ComponentHost, "fifo host attached",
		"deviceDir", deviceDir,
		"in", fmt.Sprintf("0x%02X", inAddr),
		"out", fmt.Sprintf("0x%02X", outAddr))
	return h, nil
}

// WaitConnected blocks until the device signals that it is connected.
func (h *Host) WaitConnected(ctx context.Context) error {
	var sig [1]byte
	for {
		if _, err := readFull(ctx, h.conn, sig[:], h.closeCh); err != nil {
			return err
		}
		if sig[0] == sigConnect {
			return nil
		}
	}
}

// ReadPacket reads one packet from the device's IN endpoint.
func (h *Host) ReadPacket(ctx context.Context, buf []byte) (int, error) {
	return readPacket(ctx, h.in, buf, h.closeCh)
}

// WritePacket writes one packet to the device's OUT endpoint.
func (h *Host) WritePacket(ctx context.Context, data []byte) (int, error) {
	h.writeMutex.Lock()
	defer h.writeMutex.Unlock()
	if err := writePacket(ctx, h.out, data, h.closeCh); err != nil {
		return 0, err
	}
	return len(data), nil
}

// Dir returns the device directory this host is attached to.
func (h *Host) Dir() string {
	return h.dir
}

// Close releases the host end. The device directory is left in place.
func (h *Host) Close() error {
	h.closeOnce.Do(func() {
		close(h.closeCh)
	})
	for _, f := range []*os.File{h.conn, h.in, h.out} {
		if f != nil {
			f.Close()
		}
	}
	return nil
}

var (
	_ pkg.PacketReader = (*Host)(nil)
	_ pkg.PacketWriter = (*Host)(nil)
)
