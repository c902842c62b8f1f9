package stk500

// Frame layout.
const (
	MessageStart = 0x1B // Start marker at offset 0
	Token        = 0x0E // Token at offset 4

	HeaderSize   = 5   // Start, sequence, 16-bit size, token
	MaxBodySize  = 275 // Largest body the bridge frames
	ChecksumSize = 1

	// MaxFrameSize is the capacity of a bridge frame buffer.
	MaxFrameSize = HeaderSize + MaxBodySize + ChecksumSize

	// DefaultSequence is the fixed sequence byte the bridge writes.
	DefaultSequence = 1
)

// Header field offsets.
const (
	OffsetStart    = 0
	OffsetSequence = 1
	OffsetSize     = 2
	OffsetToken    = 4
	OffsetBody     = HeaderSize
)

// BaudRate is the fixed UART line rate.
const BaudRate = 115200

// Command identifiers (AVR068 section 3).
const (
	CmdSignOn           = 0x01
	CmdSetParameter     = 0x02
	CmdGetParameter     = 0x03
	CmdLoadAddress      = 0x06
	CmdEnterProgmodeISP = 0x10
	CmdLeaveProgmodeISP = 0x11
	CmdChipEraseISP     = 0x12
	CmdProgramFlashISP  = 0x13
	CmdReadFlashISP     = 0x14
	CmdReadSignatureISP = 0x1B
	CmdSPIMulti         = 0x1D
)

// AnswerCksumError is the answer identifier for a frame that failed its
// checksum.
const AnswerCksumError = 0xB0

// Status codes.
const (
	StatusCmdOK      = 0x00
	StatusCmdTOut    = 0x80
	StatusCmdFailed  = 0xC0
	StatusCksumError = 0xC1
	StatusCmdUnknown = 0xC9
)

// SignOnName is the programmer name returned for [CmdSignOn].
const SignOnName = "AVRISP_2"
