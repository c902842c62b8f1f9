// Package device implements the USB side of the bridge: one vendor-specific
// bulk IN/OUT interface on top of a [hal.DeviceHAL].
//
// It is platform-agnostic. Enumeration and descriptors belong to the
// controller behind the HAL; this package only moves bulk transfers and
// follows the connection lifecycle.
//
// # Architecture
//
//   - [Endpoint] describes a bulk endpoint and tracks its stall state
//   - [Bulk] pairs an IN and an OUT endpoint and moves whole transfers
//   - [Stack] starts the HAL, configures the endpoints on connect and
//     reports connect, disconnect and configuration events
//
// # Transfers
//
// A bulk transfer is a run of max-size packets ended by a short packet. A
// transfer whose length is a multiple of the packet size ends with a
// zero-length packet, so the receiver always sees the boundary.
//
// # Example
//
//	h := fifo.New("/tmp/stk-bus")
//	stack := device.NewStack(h, device.NewBulk(h))
//	stack.SetOnDisconnect(br.Abort)
//	stack.Start(ctx)
//
//	n, err := stack.ReadTransfer(ctx, buf)
//
// A FIFO-based HAL for testing is available in
// [github.com/ardnew/stkbridge/device/hal/fifo].
package device
