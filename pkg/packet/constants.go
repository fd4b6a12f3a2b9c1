package packet

import (
	"errors"
	"fmt"
)

// HF2 Packet Constants

// Report sizes
const (
	ReportSize  = 64 // Fixed USB HID report size
	HeaderSize  = 1  // Packet header is 1 byte
	MaxDataSize = 63 // Maximum payload in a single packet (ReportSize - HeaderSize)
)

// Header bits
const (
	KindMask uint8 = 0xC0 // Kind mask (top 2 bits)
	LenMask  uint8 = 0x3F // Payload length mask (low 6 bits)
)

// Kind identifies the packet kind carried in the top two bits of the header
type Kind uint8

const (
	KindCommandInner Kind = 0x00 // Command-stream fragment, more follow
	KindCommandFinal Kind = 0x40 // Final command-stream fragment
	KindStdout       Kind = 0x80 // Serial stdout chunk
	KindStderr       Kind = 0xC0 // Serial stderr chunk
)

// Errors
var (
	ErrMalformedHeader = errors.New("malformed packet header")
	ErrLengthOverflow  = errors.New("payload length exceeds packet capacity")

	// ErrShortReport is the malformed-header case where the declared
	// payload length exceeds what the report carries
	ErrShortReport = fmt.Errorf("%w: report shorter than declared payload", ErrMalformedHeader)
)

// String returns string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindCommandInner:
		return "CommandInner"
	case KindCommandFinal:
		return "CommandFinal"
	case KindStdout:
		return "Stdout"
	case KindStderr:
		return "Stderr"
	default:
		return "Unknown"
	}
}

// IsCommand returns true for command-stream kinds
func (k Kind) IsCommand() bool {
	return k == KindCommandInner || k == KindCommandFinal
}

// IsSerial returns true for serial diagnostic kinds
func (k Kind) IsSerial() bool {
	return k == KindStdout || k == KindStderr
}
