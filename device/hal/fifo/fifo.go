package fifo

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/ardnew/stkbridge/device/hal"
	"github.com/ardnew/stkbridge/pkg"
)

// MaxEndpoints is the maximum number of data endpoints (1-15 IN and OUT).
const MaxEndpoints = 15

// Connection signal bytes (one-way signaling to host).
const (
	sigConnect    = 0x01 // Device connected
	sigDisconnect = 0x00 // Device disconnected
)

// fifoConnection is the connection signal FIFO name.
const fifoConnection = "connection"

// HAL implements hal.DeviceHAL using named pipes (FIFOs).
// Each device instance creates a unique subdirectory under the bus directory
// so several bridges can share one bus.
type HAL struct {
	// Bus directory (root directory shared with host)
	busDir string

	// Device subdirectory (busDir/device-{uuid}/)
	deviceDir string
	uuid      string

	connectionWrite *os.File // Device signals connection status

	// Data endpoint FIFOs (indexed by endpoint number 1-15)
	epInWrite [MaxEndpoints]*os.File // Device writes IN data
	epOutRead [MaxEndpoints]*os.File // Device reads OUT data

	// Per-endpoint write locks keep packets from interleaving
	epInMutex [MaxEndpoints]sync.Mutex

	// State
	connected uint32 // Atomic: 1 = connected, 0 = disconnected
	speed     hal.Speed

	// Configured endpoints, indexed like endpointSlot
	configured [MaxEndpoints * 2]bool
	stalled    [MaxEndpoints * 2]bool

	// Synchronization
	mutex     sync.RWMutex
	initDone  bool
	connectCh chan struct{}
	disconnCh chan struct{}
	closeCh   chan struct{}
	closeOnce sync.Once
}

// New creates a new FIFO-based device HAL.
// The busDir parameter specifies the root bus directory shared with the host.
// The device will create its own subdirectory (device-{uuid}/) inside busDir.
func New(busDir string) *HAL {
	return &HAL{
		busDir:    busDir,
		speed:     hal.SpeedFull,
		connectCh: make(chan struct{}, 1),
		disconnCh: make(chan struct{}, 1),
		closeCh:   make(chan struct{}),
	}
}

// generateUUID generates a random UUID using crypto/rand.
func generateUUID() (string, error) {
	var uuid [16]byte
	if _, err := rand.Read(uuid[:]); err != nil {
		return "", err
	}
	// Set version 4 (random) bits
	uuid[6] = (uuid[6] & 0x0f) | 0x40
	uuid[8] = (uuid[8] & 0x3f) | 0x80
	return hex.EncodeToString(uuid[:]), nil
}

// endpointSlot maps an endpoint address to an index into the configured and
// stalled tables: OUT 1-15 at 0-14, IN 1-15 at 15-29.
func endpointSlot(address uint8) int {
	idx := int(address&0x0F) - 1
	if address&0x80 != 0 {
		idx += MaxEndpoints
	}
	return idx
}

// Init creates the device subdirectory and its FIFO files.
func (h *HAL) Init(ctx context.Context) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.initDone {
		return pkg.ErrAlreadyRunning
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	uuid, err := generateUUID()
	if err != nil {
		return fmt.Errorf("generate uuid: %w", err)
	}
	h.uuid = uuid
	h.deviceDir = filepath.Join(h.busDir, "device-"+uuid)

	if err := os.MkdirAll(h.deviceDir, 0o755); err != nil {
		return fmt.Errorf("create device dir: %w", err)
	}

	if err := createFIFO(h.deviceDir, fifoConnection); err != nil {
		h.cleanup()
		return err
	}
	for i := 1; i <= MaxEndpoints; i++ {
		if err := createFIFO(h.deviceDir, inName(uint8(i))); err != nil {
			h.cleanup()
			return err
		}
		if err := createFIFO(h.deviceDir, outName(uint8(i))); err != nil {
			h.cleanup()
			return err
		}
	}

	// Open everything read-write and non-blocking so opening never waits
	// for the host side to appear.
	h.connectionWrite, err = openFIFO(h.deviceDir, fifoConnection)
	if err != nil {
		h.cleanup()
		return err
	}
	for i := 1; i <= MaxEndpoints; i++ {
		idx := i - 1
		h.epInWrite[idx], err = openFIFO(h.deviceDir, inName(uint8(i)))
		if err != nil {
			h.cleanup()
			return err
		}
		h.epOutRead[idx], err = openFIFO(h.deviceDir, outName(uint8(i)))
		if err != nil {
			h.cleanup()
			return err
		}
	}

	h.initDone = true
	pkg.LogInfo(pkg.ComponentHAL, "fifo device HAL initialized",
		"busDir", h.busDir,
		"deviceDir", h.deviceDir,
		"uuid", h.uuid)

	return nil
}

// Start enables the HAL and signals connection to host.
func (h *HAL) Start() error {
	h.mutex.RLock()
	initDone := h.initDone
	conn := h.connectionWrite
	h.mutex.RUnlock()

	if !initDone {
		return pkg.ErrNotConfigured
	}

	if _, err := conn.Write([]byte{sigConnect}); err != nil {
		pkg.LogWarn(pkg.ComponentHAL, "failed to signal connection", "error", err)
	}

	atomic.StoreUint32(&h.connected, 1)

	select {
	case h.connectCh <- struct{}{}:
	default:
	}

	pkg.LogInfo(pkg.ComponentHAL, "fifo device HAL started")
	return nil
}

// Stop signals disconnection, closes every FIFO and removes the device
// directory.
func (h *HAL) Stop() error {
	h.mutex.RLock()
	if h.connectionWrite != nil {
		h.connectionWrite.Write([]byte{sigDisconnect})
	}
	h.mutex.RUnlock()

	atomic.StoreUint32(&h.connected, 0)

	select {
	case h.disconnCh <- struct{}{}:
	default:
	}

	h.closeOnce.Do(func() {
		close(h.closeCh)
	})

	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.cleanup()

	h.initDone = false
	pkg.LogInfo(pkg.ComponentHAL, "fifo device HAL stopped")
	return nil
}

// cleanup closes all FIFOs and removes the device directory.
func (h *HAL) cleanup() {
	if h.connectionWrite != nil {
		h.connectionWrite.Close()
		h.connectionWrite = nil
	}

	for i := 0; i < MaxEndpoints; i++ {
		if h.epInWrite[i] != nil {
			h.epInWrite[i].Close()
			h.epInWrite[i] = nil
		}
		if h.epOutRead[i] != nil {
			h.epOutRead[i].Close()
			h.epOutRead[i] = nil
		}
	}

	if h.deviceDir != "" {
		os.RemoveAll(h.deviceDir)
	}
}

// ConfigureEndpoints marks the given data endpoints active. The FIFOs are
// already open from Init; unconfigured endpoints reject Read and Write.
func (h *HAL) ConfigureEndpoints(endpoints []hal.EndpointConfig) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.configured = [MaxEndpoints * 2]bool{}
	h.stalled = [MaxEndpoints * 2]bool{}

	count := 0
	for _, ep := range endpoints {
		num := ep.Number()
		if num == 0 || num > MaxEndpoints {
			continue
		}
		if int(ep.MaxPacketSize) > pkg.MaxPacketSize {
			return fmt.Errorf("endpoint 0x%02X max packet %d: %w",
				ep.Address, ep.MaxPacketSize, pkg.ErrInvalidParameter)
		}
		h.configured[endpointSlot(ep.Address)] = true
		count++
	}

	pkg.LogDebug(pkg.ComponentHAL, "endpoints configured", "count", count)
	return nil
}

// endpointFile returns the FIFO for a configured data endpoint.
func (h *HAL) endpointFile(address uint8, in bool) (*os.File, error) {
	num := address & 0x0F
	if num == 0 || num > MaxEndpoints || (address&0x80 != 0) != in {
		return nil, pkg.ErrInvalidEndpoint
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	slot := endpointSlot(address)
	if !h.configured[slot] {
		return nil, pkg.ErrNotConfigured
	}
	if h.stalled[slot] {
		return nil, pkg.ErrStall
	}

	var f *os.File
	if in {
		f = h.epInWrite[num-1]
	} else {
		f = h.epOutRead[num-1]
	}
	if f == nil {
		return nil, pkg.ErrNotConfigured
	}
	return f, nil
}

// Read reads one packet from an OUT endpoint.
func (h *HAL) Read(ctx context.Context, address uint8, buf []byte) (int, error) {
	f, err := h.endpointFile(address, false)
	if err != nil {
		return 0, err
	}
	return readPacket(ctx, f, buf, h.closeCh)
}

// Write writes one packet to an IN endpoint.
func (h *HAL) Write(ctx context.Context, address uint8, data []byte) (int, error) {
	f, err := h.endpointFile(address, true)
	if err != nil {
		return 0, err
	}

	mu := &h.epInMutex[(address&0x0F)-1]
	mu.Lock()
	defer mu.Unlock()

	if err := writePacket(ctx, f, data, h.closeCh); err != nil {
		return 0, err
	}
	return len(data), nil
}

// Stall stalls the specified endpoint until ClearStall.
func (h *HAL) Stall(address uint8) error {
	if num := address & 0x0F; num == 0 || num > MaxEndpoints {
		return pkg.ErrInvalidEndpoint
	}
	h.mutex.Lock()
	h.stalled[endpointSlot(address)] = true
	h.mutex.Unlock()
	pkg.LogDebug(pkg.ComponentHAL, "endpoint stalled", "address", address)
	return nil
}

// ClearStall clears a stall condition.
func (h *HAL) ClearStall(address uint8) error {
	if num := address & 0x0F; num == 0 || num > MaxEndpoints {
		return pkg.ErrInvalidEndpoint
	}
	h.mutex.Lock()
	h.stalled[endpointSlot(address)] = false
	h.mutex.Unlock()
	pkg.LogDebug(pkg.ComponentHAL, "endpoint stall cleared", "address", address)
	return nil
}

// IsConnected returns true if connected to a host.
func (h *HAL) IsConnected() bool {
	return atomic.LoadUint32(&h.connected) == 1
}

// GetSpeed returns the negotiated connection speed.
func (h *HAL) GetSpeed() hal.Speed {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.speed
}

// WaitConnect blocks until connected or context is cancelled.
func (h *HAL) WaitConnect(ctx context.Context) error {
	if h.IsConnected() {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.connectCh:
		return nil
	case <-h.closeCh:
		return pkg.ErrCancelled
	}
}

// WaitDisconnect blocks until disconnected or context is cancelled.
func (h *HAL) WaitDisconnect(ctx context.Context) error {
	if !h.IsConnected() {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.disconnCh:
		return nil
	case <-h.closeCh:
		return nil
	}
}

// DeviceDir returns the device subdirectory path.
func (h *HAL) DeviceDir() string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.deviceDir
}

// UUID returns the device's unique identifier.
func (h *HAL) UUID() string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.uuid
}

// inName and outName name an endpoint's FIFOs from the device's view.
func inName(num uint8) string  { return fmt.Sprintf("ep%d_in", num) }
func outName(num uint8) string { return fmt.Sprintf("ep%d_out", num) }

// createFIFO creates a named pipe in dir.
func createFIFO(dir, name string) error {
	path := filepath.Join(dir, name)

	// Remove existing file if any
	os.Remove(path)

	if err := unix.Mkfifo(path, 0o666); err != nil {
		return fmt.Errorf("mkfifo %s: %w", name, err)
	}
	return nil
}

// openFIFO opens a named pipe read-write and non-blocking. A non-blocking
// descriptor is registered with the runtime poller, so read deadlines work.
func openFIFO(dir, name string) (*os.File, error) {
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, nil
}

// Compile-time interface check
var _ hal.DeviceHAL = (*HAL)(nil)
