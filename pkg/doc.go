// Package pkg provides shared utilities for the STK500 bridge.
//
// This package contains functionality used by the device-side bridge, the
// UART driver and the host-side client:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel errors for transport and framing failures
//   - Component identifiers for log filtering
//   - Packet-level USB transfer helpers ([ReadTransfer], [WriteTransfer])
//
// # Logging
//
// The logging subsystem wraps [log/slog] with bridge-specific context:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentBridge, "epoch complete", "bytes", 12)
//
// # Errors
//
// Common errors are defined as sentinel values:
//
//	if errors.Is(err, pkg.ErrFrameTooLarge) {
//	    // Host sent more than one frame body
//	}
//
// # Transfers
//
// A USB bulk transfer is a sequence of packets no larger than the endpoint's
// maximum packet size, terminated by a short packet. A transfer whose length
// is an exact multiple of the packet size ends with a zero-length packet.
package pkg
