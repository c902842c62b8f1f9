package device

// Vendor bulk interface defaults.
const (
	// DefaultInAddress is the bulk IN endpoint (device to host).
	DefaultInAddress = 0x81

	// DefaultOutAddress is the bulk OUT endpoint (host to device).
	DefaultOutAddress = 0x02

	// DefaultMaxPacket is the full-speed bulk packet size.
	DefaultMaxPacket = 64
)

// USB identity the host tools look for.
const (
	VendorID  = 0x03EB // Atmel
	ProductID = 0x206C // LUFA bulk vendor demo
)

// Endpoint transfer types (USB 2.0 Spec Table 9-13).
const (
	EndpointTypeControl     = 0x00 // Control transfer
	EndpointTypeIsochronous = 0x01 // Isochronous transfer
	EndpointTypeBulk        = 0x02 // Bulk transfer
	EndpointTypeInterrupt   = 0x03 // Interrupt transfer
)

// Endpoint directions.
const (
	EndpointDirectionOut = 0x00 // Host to device
	EndpointDirectionIn  = 0x80 // Device to host
)
