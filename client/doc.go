// Package client is the host side of the bridge. A [Client] sends one
// STK500v2 command body per OUT transfer and reads the response body and
// checksum back from the IN endpoint.
//
// Two transports are provided: [OpenUSB] talks to real hardware through
// libusb, and [OpenFIFO] attaches to a bridge running on a FIFO bus.
package client
