// Package hal defines the USB controller interface the bridge runs on.
//
// The bridge does not enumerate, answer control requests or own descriptor
// tables. Those belong to the controller firmware or platform USB stack that
// implements [DeviceHAL]. The bridge consumes only:
//
//   - Lifecycle: Init, Start, Stop
//   - Endpoint setup once the host selects a configuration
//   - Packet reads and writes on the bulk data endpoints
//   - Connection state and notifications
//
// # Implementing a HAL
//
//  1. Create a type that implements all [DeviceHAL] methods
//  2. Handle hardware-specific initialization in Init()
//  3. Implement Read/Write as single-packet operations; a zero-length
//     packet is a read of 0 bytes or a write of an empty slice
//  4. Track connection state and negotiated speed
//
// A named-pipe HAL for testing and simulation is available in
// [github.com/ardnew/stkbridge/device/hal/fifo].
package hal
