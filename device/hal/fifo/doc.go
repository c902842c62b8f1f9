// Package fifo implements a FIFO-based HAL for the bridge's USB side using
// named pipes.
//
// It stands in for a USB controller in tests and on development hosts, so
// the bridge and a host tool can exchange bulk transfers without hardware.
//
// # Architecture
//
// Each device instance creates a unique subdirectory under a shared bus directory:
//
//	/tmp/stk-bus/                    # Bus directory (shared with host)
//	└── device-{uuid}/               # Device subdirectory (unique per device)
//	    ├── connection               # Connection signaling (device → host)
//	    ├── ep1_in, ep1_out          # Endpoint 1 data FIFOs
//	    ├── ep2_in, ep2_out          # Endpoint 2 data FIFOs
//	    └── ...                      # (up to ep15_in/ep15_out)
//
// Every message on an endpoint FIFO is one USB packet:
//
//	[0x02] [len lo] [len hi] [data ...]
//
// A zero length marks a zero-length packet.
//
// # Connection Signals
//
// The device signals connection and disconnection via the connection FIFO:
//   - 0x01: Device connected and ready
//   - 0x00: Device disconnecting
//
// # Usage
//
//	hal := fifo.New("/tmp/stk-bus")
//	stack := device.NewStack(hal, device.NewBulk(hal))
//	stack.Start(ctx)
//
// The host end attaches with [Discover] and [Dial]:
//
//	dir, _ := fifo.Discover("/tmp/stk-bus")
//	host, _ := fifo.Dial(dir, 0x81, 0x02)
//	host.WaitConnected(ctx)
package fifo
