// Package stk500 implements the STK500v2 message framing carried by the
// bridge between the USB host and the UART target.
//
// Every message is framed as:
//
//	offset  size  field
//	0       1     MESSAGE_START (0x1B)
//	1       1     SEQUENCE_NUMBER
//	2       2     MESSAGE_SIZE, big-endian body length
//	4       1     TOKEN (0x0E)
//	5       n     MESSAGE_BODY
//	5+n     1     CHECKSUM, XOR of every preceding byte
//
// The bridge builds frames in place and never validates checksums; the
// helpers here serve the host client ([VerifyResponse]) and the target
// simulator ([ReadFrame], [Responder]).
package stk500
