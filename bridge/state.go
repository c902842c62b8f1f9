package bridge

import "fmt"

// State is the phase of the current epoch.
type State uint8

// Epoch states.
const (
	StateIdle    State = iota // Waiting for a command from the host
	StateTxArmed              // Command frame is being sent to the target
	StateRxAccum              // Collecting the target's response
	StateFlush                // Response complete, waiting to go to the host
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateTxArmed:
		return "TxArmed"
	case StateRxAccum:
		return "RxAccum"
	case StateFlush:
		return "Flush"
	default:
		return fmt.Sprintf("Unknown State (%d)", s)
	}
}

// Stats counts bridge activity since creation.
type Stats struct {
	Epochs     uint64 // Responses delivered to the host
	Rejected   uint64 // Commands refused for size
	StrayBytes uint64 // UART bytes received outside RxAccum
	Overflows  uint64 // Responses larger than the frame buffer
	Timeouts   uint64 // Epochs abandoned for want of a response
	Aborts     uint64 // Epochs abandoned by disconnect or shutdown
	BytesOut   uint64 // Frame bytes sent to the target
	BytesIn    uint64 // Frame bytes received from the target
}
