package command

import "errors"

// HF2 Command Layer Constants

// Fixed header sizes
const (
	CommandHeaderSize  = 4 // u16 command id + u16 tag
	ResponseHeaderSize = 4 // u16 tag + u8 status + u8 status info
)

// ID identifies a command
type ID uint16

// Command identifiers
//
// The table is closed: new identifiers may be added but existing layouts
// never change, so both encode and decode stay total over a known domain.
const (
	IDBinInfo             ID = 0x0001 // Query device mode and flash geometry
	IDInfo                ID = 0x0002 // Query free-form device info string
	IDResetIntoApp        ID = 0x0003 // Reset device into application
	IDResetIntoBootloader ID = 0x0004 // Reset device into bootloader
	IDStartFlash          ID = 0x0005 // Announce start of flashing sequence
	IDWriteFlashPage      ID = 0x0006 // Write one flash page
	IDChecksumPages       ID = 0x0007 // Checksum a range of flash pages
	IDReadWords           ID = 0x0008 // Read words from device memory
	IDWriteWords          ID = 0x0009 // Write words to device memory
	IDDmesg               ID = 0x0010 // Fetch device diagnostic log
)

// Status is the response status code
type Status uint8

const (
	StatusOK             Status = 0x00 // Command processed successfully
	StatusNotRecognized  Status = 0x01 // Command id not known to the device
	StatusExecutionError Status = 0x02 // Error during command execution
)

// BinInfo mode values
const (
	ModeBootloader  uint32 = 0x01
	ModeApplication uint32 = 0x02
)

// Errors
var (
	ErrUnknownCommand        = errors.New("unknown command id")
	ErrUnsupportedCommand    = errors.New("unsupported command id")
	ErrTruncatedMessage      = errors.New("message shorter than fixed header")
	ErrPayloadLengthMismatch = errors.New("payload length mismatch")
)

// String returns string representation of ID
func (id ID) String() string {
	switch id {
	case IDBinInfo:
		return "BinInfo"
	case IDInfo:
		return "Info"
	case IDResetIntoApp:
		return "ResetIntoApp"
	case IDResetIntoBootloader:
		return "ResetIntoBootloader"
	case IDStartFlash:
		return "StartFlash"
	case IDWriteFlashPage:
		return "WriteFlashPage"
	case IDChecksumPages:
		return "ChecksumPages"
	case IDReadWords:
		return "ReadWords"
	case IDWriteWords:
		return "WriteWords"
	case IDDmesg:
		return "Dmesg"
	default:
		return "Unknown"
	}
}

// String returns string representation of Status
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusNotRecognized:
		return "NotRecognized"
	case StatusExecutionError:
		return "ExecutionError"
	default:
		return "Unknown"
	}
}
