package device

import (
	"context"
	"fmt"
	"sync"

	"github.com/ardnew/stkbridge/device/hal"
	"github.com/ardnew/stkbridge/pkg"
)

// Stack owns the USB controller lifecycle for one bulk interface. It
// starts the HAL, follows the connection state, configures the bulk
// endpoints on connect and reports each transition to the registered
// callbacks.
type Stack struct {
	hal  hal.DeviceHAL
	bulk *Bulk

	// State
	running    bool
	configured bool
	configCh   chan struct{} // closed while configured
	mutex      sync.RWMutex

	// Context for cancellation
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// Event callbacks
	onConnect              func()
	onDisconnect           func()
	onConfigurationChanged func(error)
}

// NewStack creates a new device stack serving b on h.
func NewStack(h hal.DeviceHAL, b *Bulk) *Stack {
	return &Stack{
		hal:      h,
		bulk:     b,
		configCh: make(chan struct{}),
	}
}

// Start initializes the HAL, attaches to the bus and begins following the
// connection state.
func (s *Stack) Start(ctx context.Context) error {
	if err := s.bulk.Validate(); err != nil {
		return err
	}

	s.mutex.Lock()
	if s.running {
		s.mutex.Unlock()
		return pkg.ErrAlreadyRunning
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mutex.Unlock()

	if err := s.hal.Init(s.ctx); err != nil {
		return err
	}

	if err := s.hal.Start(); err != nil {
		return err
	}

	s.mutex.Lock()
	s.running = true
	s.done = make(chan struct{})
	s.mutex.Unlock()

	pkg.LogDebug(pkg.ComponentUSB, "device stack started",
		"in", s.bulk.In().String(),
		"out", s.bulk.Out().String())

	go s.connectionLoop()

	return nil
}

// Stop detaches from the bus and stops the HAL.
func (s *Stack) Stop() error {
	s.mutex.Lock()
	if !s.running {
		s.mutex.Unlock()
		return nil
	}

	s.running = false
	if s.cancel != nil {
		s.cancel()
	}
	done := s.done
	s.mutex.Unlock()

	err := s.hal.Stop()
	<-done
	s.unconfigure()

	pkg.LogDebug(pkg.ComponentUSB, "device stack stopped")
	return err
}

// IsRunning returns true if the stack is running.
func (s *Stack) IsRunning() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.running
}

// IsConfigured returns true once the bulk endpoints are configured for the
// current connection.
func (s *Stack) IsConfigured() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.configured
}

// Bulk returns the bulk interface served by the stack.
func (s *Stack) Bulk() *Bulk {
	return s.bulk
}

// connectionLoop follows connect and disconnect events until the stack stops.
func (s *Stack) connectionLoop() {
	defer close(s.done)
	for {
		if err := s.hal.WaitConnect(s.ctx); err != nil {
			return
		}
		if s.ctx.Err() != nil {
			return
		}
		s.handleConnect()

		if err := s.hal.WaitDisconnect(s.ctx); err != nil {
			return
		}
		if s.ctx.Err() != nil {
			return
		}
		s.handleDisconnect()
	}
}

func (s *Stack) handleConnect() {
	s.mutex.RLock()
	onConnect := s.onConnect
	onConfig := s.onConfigurationChanged
	s.mutex.RUnlock()

	pkg.LogInfo(pkg.ComponentUSB, "connected", "speed", s.hal.GetSpeed().String())
	if onConnect != nil {
		onConnect()
	}

	err := s.configure()
	if err != nil {
		pkg.LogError(pkg.ComponentUSB, "endpoint configuration failed", "error", err)
	} else {
		pkg.LogInfo(pkg.ComponentUSB, "endpoints configured")
	}
	if onConfig != nil {
		onConfig(err)
	}
}

func (s *Stack) handleDisconnect() {
	s.unconfigure()

	s.mutex.RLock()
	onDisconnect := s.onDisconnect
	s.mutex.RUnlock()

	pkg.LogInfo(pkg.ComponentUSB, "disconnected")
	if onDisconnect != nil {
		onDisconnect()
	}
}

// configure activates the bulk endpoints and releases any waiter. Packet
// sizes above what the negotiated speed allows are refused.
func (s *Stack) configure() error {
	speed := s.hal.GetSpeed()
	for _, ep := range []*Endpoint{s.bulk.In(), s.bulk.Out()} {
		if limit := speed.BulkMaxPacket(); ep.MaxPacketSize > limit {
			return fmt.Errorf("%s at %s (limit %d): %w", ep, speed, limit, pkg.ErrInvalidParameter)
		}
	}
	if err := s.hal.ConfigureEndpoints(s.bulk.Endpoints()); err != nil {
		return err
	}
	for _, ep := range []*Endpoint{s.bulk.In(), s.bulk.Out()} {
		if err := s.bulk.ClearStall(ep); err != nil {
			return err
		}
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if !s.configured {
		s.configured = true
		close(s.configCh)
	}
	return nil
}

func (s *Stack) unconfigure() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.configured {
		s.configured = false
		s.configCh = make(chan struct{})
	}
}

// WaitConfigured blocks until the bulk endpoints are configured or ctx is
// done. It fails with [pkg.ErrNotRunning] before Start.
func (s *Stack) WaitConfigured(ctx context.Context) error {
	s.mutex.RLock()
	ch, running := s.configCh, s.running
	s.mutex.RUnlock()

	if !running {
		return pkg.ErrNotRunning
	}

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReadTransfer waits for configuration, then reads one OUT transfer.
func (s *Stack) ReadTransfer(ctx context.Context, buf []byte) (int, error) {
	if err := s.WaitConfigured(ctx); err != nil {
		return 0, err
	}
	return s.bulk.ReadTransfer(ctx, buf)
}

// WriteTransfer sends one IN transfer.
func (s *Stack) WriteTransfer(ctx context.Context, data []byte) (int, error) {
	if !s.IsConfigured() {
		return 0, pkg.ErrNotConfigured
	}
	return s.bulk.WriteTransfer(ctx, data)
}

// SetOnConnect sets the connect callback.
func (s *Stack) SetOnConnect(cb func()) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.onConnect = cb
}

// SetOnDisconnect sets the disconnect callback.
func (s *Stack) SetOnDisconnect(cb func()) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.onDisconnect = cb
}

// SetOnConfigurationChanged sets the callback run after each attempt to
// configure the bulk endpoints. It receives the configuration error, if any.
func (s *Stack) SetOnConfigurationChanged(cb func(error)) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.onConfigurationChanged = cb
}

// Speed returns the negotiated USB connection speed.
func (s *Stack) Speed() hal.Speed {
	return s.hal.GetSpeed()
}

// IsConnected returns true if the device is connected to a host.
func (s *Stack) IsConnected() bool {
	return s.hal.IsConnected()
}
