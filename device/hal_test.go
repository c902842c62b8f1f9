package device

import (
	"context"
	"sync"

	"github.com/ardnew/stkbridge/device/hal"
	"github.com/ardnew/stkbridge/pkg"
)

// mockHAL implements hal.DeviceHAL for testing. OUT packets are queued with
// pushOut; IN packets are recorded in written.
type mockHAL struct {
	mutex       sync.Mutex
	initCalled  bool
	startCalled bool
	stopCalled  bool
	connected   bool
	speed       hal.Speed
	endpoints   []hal.EndpointConfig
	configErr   error
	stalled     map[uint8]bool
	outQueue    chan []byte
	written     map[uint8][][]byte

	// Channels for connect/disconnect signaling
	connectChan    chan struct{}
	disconnectChan chan struct{}
}

func newMockHAL() *mockHAL {
	return &mockHAL{
		speed:          hal.SpeedFull,
		stalled:        make(map[uint8]bool),
		outQueue:       make(chan []byte, 64),
		written:        make(map[uint8][][]byte),
		connectChan:    make(chan struct{}, 1),
		disconnectChan: make(chan struct{}, 1),
	}
}

func (m *mockHAL) Init(ctx context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.initCalled = true
	return nil
}

func (m *mockHAL) Start() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.startCalled = true
	return nil
}

func (m *mockHAL) Stop() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.stopCalled = true
	return nil
}

func (m *mockHAL) ConfigureEndpoints(endpoints []hal.EndpointConfig) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.configErr != nil {
		return m.configErr
	}
	m.endpoints = endpoints
	return nil
}

func (m *mockHAL) Read(ctx context.Context, address uint8, buf []byte) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case p := <-m.outQueue:
		if len(p) > len(buf) {
			return 0, pkg.ErrBufferTooSmall
		}
		return copy(buf, p), nil
	}
}

func (m *mockHAL) Write(ctx context.Context, address uint8, data []byte) (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.written[address] = append(m.written[address], append([]byte{}, data...))
	return len(data), nil
}

func (m *mockHAL) Stall(address uint8) error {
	m.mutex.Lock()
	m.stalled[address] = true
	m.mutex.Unlock()
	return nil
}

func (m *mockHAL) ClearStall(address uint8) error {
	m.mutex.Lock()
	m.stalled[address] = false
	m.mutex.Unlock()
	return nil
}

func (m *mockHAL) IsConnected() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.connected
}

func (m *mockHAL) GetSpeed() hal.Speed {
	return m.speed
}

func (m *mockHAL) WaitConnect(ctx context.Context) error {
	if m.IsConnected() {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.connectChan:
		return nil
	}
}

func (m *mockHAL) WaitDisconnect(ctx context.Context) error {
	if !m.IsConnected() {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.disconnectChan:
		return nil
	}
}

func (m *mockHAL) connect() {
	m.mutex.Lock()
	m.connected = true
	m.mutex.Unlock()
	m.connectChan <- struct{}{}
}

func (m *mockHAL) disconnect() {
	m.mutex.Lock()
	m.connected = false
	m.mutex.Unlock()
	m.disconnectChan <- struct{}{}
}

func (m *mockHAL) pushOut(packets ...[]byte) {
	for _, p := range packets {
		m.outQueue <- p
	}
}

func (m *mockHAL) packets(address uint8) [][]byte {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([][]byte(nil), m.written[address]...)
}

var _ hal.DeviceHAL = (*mockHAL)(nil)
