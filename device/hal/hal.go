package hal

import (
	"context"
)

// Speed is the bus speed the controller negotiated with the host.
type Speed uint8

// Bus speeds.
const (
	SpeedUnknown Speed = iota // Not connected
	SpeedLow                  // 1.5 Mbit/s, no bulk endpoints
	SpeedFull                 // 12 Mbit/s
	SpeedHigh                 // 480 Mbit/s
)

// String returns a human-readable speed name.
func (s Speed) String() string {
	switch s {
	case SpeedLow:
		return "Low Speed"
	case SpeedFull:
		return "Full Speed"
	case SpeedHigh:
		return "High Speed"
	default:
		return "Unknown"
	}
}

// BulkMaxPacket returns the largest bulk packet allowed at s, or 0 when the
// speed has no bulk transfers.
func (s Speed) BulkMaxPacket() uint16 {
	switch s {
	case SpeedFull:
		return 64
	case SpeedHigh:
		return 512
	default:
		return 0
	}
}

// Endpoint transfer types, the low two bits of bmAttributes.
const (
	TransferTypeControl     = 0x00
	TransferTypeIsochronous = 0x01
	TransferTypeBulk        = 0x02
	TransferTypeInterrupt   = 0x03
)

// EndpointConfig is what a controller needs to activate one data endpoint.
type EndpointConfig struct {
	Address       uint8  // Endpoint address including direction bit
	Attributes    uint8  // Transfer type
	MaxPacketSize uint16 // Largest packet on this endpoint
}

// Number returns the endpoint number (0-15).
func (e *EndpointConfig) Number() uint8 {
	return e.Address & 0x0F
}

// IsIn returns true for device-to-host endpoints.
func (e *EndpointConfig) IsIn() bool {
	return e.Address&0x80 != 0
}

// TransferType returns the transfer type bits of Attributes.
func (e *EndpointConfig) TransferType() uint8 {
	return e.Attributes & 0x03
}

// Lifecycle brings the controller up and down.
type Lifecycle interface {
	// Init prepares the controller. ctx bounds the preparation only.
	Init(ctx context.Context) error

	// Start attaches to the bus. The host may connect any time after.
	Start() error

	// Stop detaches from the bus and releases the controller.
	Stop() error
}

// Endpoints moves single packets on the data endpoints.
type Endpoints interface {
	// ConfigureEndpoints activates exactly the given endpoints. An empty
	// slice deactivates all of them.
	ConfigureEndpoints(endpoints []EndpointConfig) error

	// Read blocks for one packet on an OUT endpoint. A zero-length packet
	// reads 0 bytes.
	Read(ctx context.Context, address uint8, buf []byte) (int, error)

	// Write sends one packet on an IN endpoint. Empty data sends a
	// zero-length packet.
	Write(ctx context.Context, address uint8, data []byte) (int, error)

	// Stall halts an endpoint until ClearStall.
	Stall(address uint8) error

	// ClearStall resumes a halted endpoint.
	ClearStall(address uint8) error
}

// Connection reports the host attachment.
type Connection interface {
	IsConnected() bool
	GetSpeed() Speed

	// WaitConnect and WaitDisconnect block until the edge or ctx is done.
	WaitConnect(ctx context.Context) error
	WaitDisconnect(ctx context.Context) error
}

// DeviceHAL is the USB controller as the bridge sees it. Enumeration and
// control transfers stay with the controller firmware or platform stack
// behind it.
type DeviceHAL interface {
	Lifecycle
	Endpoints
	Connection
}
