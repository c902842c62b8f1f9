// Package bridge relays STK500v2 commands between a USB bulk interface and
// a UART.
//
// A [Bridge] owns one frame buffer shared by both directions. Each epoch
// runs through four states:
//
//	Idle → TxArmed → RxAccum → Flush → Idle
//
// [Bridge.Run] reads a command body from the OUT endpoint into the buffer,
// wraps it in a header and checksum and arms the UART transmitter. The UART
// driver drains the frame through [Bridge.TxEmpty] and feeds the target's
// reply back through [Bridge.RxComplete] into the same buffer. When the
// reply is complete, Run sends its body and checksum to the host over the IN
// endpoint and returns to Idle.
//
// The bridge never validates checksums; it only computes them. One command
// is in flight at a time and the host is not read while an epoch runs.
package bridge
