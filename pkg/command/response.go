package command

import (
	"encoding/binary"
	"fmt"
)

// Response represents a device-to-host response
//
// Wire format (little-endian): [u16 tag][u8 status][u8 status info][payload...]
//
// The payload layout is determined by the originating command's identifier;
// the response does not self-describe its shape.
type Response struct {
	Tag        uint16 // Echo of the originating command's tag
	Status     Status
	StatusInfo uint8  // Status-specific detail byte
	Data       []byte // Raw payload bytes
}

// OK returns a successful response for the given command
func OK(cmd *Command, payload []byte) *Response {
	return &Response{Tag: cmd.Tag, Status: StatusOK, Data: payload}
}

// NotRecognized returns a "command not implemented" response
func NotRecognized(tag uint16) *Response {
	return &Response{Tag: tag, Status: StatusNotRecognized}
}

// ExecutionError returns a failure response with a detail byte
func ExecutionError(tag uint16, info uint8) *Response {
	return &Response{Tag: tag, Status: StatusExecutionError, StatusInfo: info}
}

// EncodeResponse serializes the response to its wire format
func EncodeResponse(resp *Response) []byte {
	buf := make([]byte, ResponseHeaderSize+len(resp.Data))
	binary.LittleEndian.PutUint16(buf[0:2], resp.Tag)
	buf[2] = uint8(resp.Status)
	buf[3] = resp.StatusInfo
	copy(buf[ResponseHeaderSize:], resp.Data)
	return buf
}

// DecodeResponse parses a response from its wire format.
//
// forID selects the expected payload layout; it must be the identifier of
// the command this response answers. Payload shape is only validated for
// successful responses, error statuses carry no meaningful payload.
func DecodeResponse(data []byte, forID ID) (*Response, error) {
	if len(data) < ResponseHeaderSize {
		return nil, ErrTruncatedMessage
	}

	resp := &Response{
		Tag:        binary.LittleEndian.Uint16(data[0:2]),
		Status:     Status(data[2]),
		StatusInfo: data[3],
		Data:       data[ResponseHeaderSize:],
	}

	if resp.Status != StatusOK {
		return resp, nil
	}

	switch forID {
	case IDBinInfo:
		if len(resp.Data) != 20 {
			return nil, fmt.Errorf("%s response: %w", forID, ErrPayloadLengthMismatch)
		}
	case IDChecksumPages:
		if len(resp.Data)%2 != 0 {
			return nil, fmt.Errorf("%s response: %w", forID, ErrPayloadLengthMismatch)
		}
	case IDReadWords:
		if len(resp.Data)%4 != 0 {
			return nil, fmt.Errorf("%s response: %w", forID, ErrPayloadLengthMismatch)
		}
	case IDResetIntoApp, IDResetIntoBootloader, IDStartFlash, IDWriteFlashPage, IDWriteWords:
		if len(resp.Data) != 0 {
			return nil, fmt.Errorf("%s response: %w", forID, ErrPayloadLengthMismatch)
		}
	case IDInfo, IDDmesg:
		// Free-form text, any length
	default:
		return nil, fmt.Errorf("id 0x%04X: %w", uint16(forID), ErrUnsupportedCommand)
	}

	return resp, nil
}

// BinInfo is the decoded payload of a BinInfo response
type BinInfo struct {
	Mode           uint32 // ModeBootloader or ModeApplication
	FlashPageSize  uint32
	FlashNumPages  uint32
	MaxMessageSize uint32
	FamilyID       uint32
}

// BinInfo decodes the payload as a BinInfo result
func (r *Response) BinInfo() (*BinInfo, error) {
	if len(r.Data) != 20 {
		return nil, ErrPayloadLengthMismatch
	}
	return &BinInfo{
		Mode:           binary.LittleEndian.Uint32(r.Data[0:4]),
		FlashPageSize:  binary.LittleEndian.Uint32(r.Data[4:8]),
		FlashNumPages:  binary.LittleEndian.Uint32(r.Data[8:12]),
		MaxMessageSize: binary.LittleEndian.Uint32(r.Data[12:16]),
		FamilyID:       binary.LittleEndian.Uint32(r.Data[16:20]),
	}, nil
}

// EncodeBinInfo serializes a BinInfo result to response payload form
func EncodeBinInfo(info *BinInfo) []byte {
	buf := make([]byte, 0, 20)
	buf = binary.LittleEndian.AppendUint32(buf, info.Mode)
	buf = binary.LittleEndian.AppendUint32(buf, info.FlashPageSize)
	buf = binary.LittleEndian.AppendUint32(buf, info.FlashNumPages)
	buf = binary.LittleEndian.AppendUint32(buf, info.MaxMessageSize)
	buf = binary.LittleEndian.AppendUint32(buf, info.FamilyID)
	return buf
}

// Checksums decodes the payload as a list of page checksums
func (r *Response) Checksums() ([]uint16, error) {
	if len(r.Data)%2 != 0 {
		return nil, ErrPayloadLengthMismatch
	}
	sums := make([]uint16, len(r.Data)/2)
	for i := range sums {
		sums[i] = binary.LittleEndian.Uint16(r.Data[i*2 : i*2+2])
	}
	return sums, nil
}

// Words decodes the payload as a list of memory words
func (r *Response) Words() ([]uint32, error) {
	if len(r.Data)%4 != 0 {
		return nil, ErrPayloadLengthMismatch
	}
	words := make([]uint32, len(r.Data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(r.Data[i*4 : i*4+4])
	}
	return words, nil
}

// Text returns the payload as a string (Info and Dmesg responses)
func (r *Response) Text() string {
	return string(r.Data)
}

// String returns a string representation of the response
func (r *Response) String() string {
	return fmt.Sprintf("Response{Tag=%d, Status=%s, Len=%d}", r.Tag, r.Status, len(r.Data))
}
