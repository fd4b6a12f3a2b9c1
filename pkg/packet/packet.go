package packet

import "fmt"

// Packet represents a single HF2 transport packet
type Packet struct {
	Kind Kind   // Packet kind from the header
	Data []byte // Payload bytes (without header)
}

// New creates a new packet
func New(kind Kind, data []byte) *Packet {
	return &Packet{
		Kind: kind,
		Data: data,
	}
}

// EncodeHeader builds the header byte from kind and payload length
func EncodeHeader(kind Kind, length int) (uint8, error) {
	if length > MaxDataSize {
		return 0, ErrLengthOverflow
	}
	return uint8(kind) | (uint8(length) & LenMask), nil
}

// DecodeHeader parses the header byte into kind and payload length
func DecodeHeader(header uint8) (Kind, int) {
	return Kind(header & KindMask), int(header & LenMask)
}

// Parse parses a received report into a Packet
//
// The report must contain at least the header byte. The declared payload
// length must fit within the report body; a command-stream header declaring
// more payload than the report carries is malformed. Zero-length serial
// packets are valid no-ops and are returned as packets with empty payload.
func Parse(report []byte) (*Packet, error) {
	if len(report) < HeaderSize {
		return nil, ErrMalformedHeader
	}

	kind, length := DecodeHeader(report[0])

	// An inner fragment exists only to carry payload; zero length is
	// malformed. Zero-length Final (empty message) and serial (no-op)
	// packets are valid.
	if kind == KindCommandInner && length == 0 {
		return nil, ErrMalformedHeader
	}

	if length > len(report)-HeaderSize {
		return nil, ErrShortReport
	}

	return &Packet{
		Kind: kind,
		Data: report[HeaderSize : HeaderSize+length],
	}, nil
}

// Serialize converts the packet to a full-capacity report
//
// The report is always ReportSize bytes: HID interrupt transfers deliver
// whole reports, so trailing bytes beyond the declared length are padding
// the receiver must ignore.
func (p *Packet) Serialize() ([]byte, error) {
	header, err := EncodeHeader(p.Kind, len(p.Data))
	if err != nil {
		return nil, err
	}

	report := make([]byte, ReportSize)
	report[0] = header
	copy(report[HeaderSize:], p.Data)
	return report, nil
}

// String returns a string representation of the packet
func (p *Packet) String() string {
	return fmt.Sprintf("Packet{Kind=%s, Len=%d}", p.Kind, len(p.Data))
}
