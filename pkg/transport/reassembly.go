package transport

import (
	"github.com/umi-eng/hftwo/pkg/packet"
)

// Reassembler consumes incoming packets and produces complete logical
// messages.
//
// Only the command stream is ever fragmented: the reassembler accumulates
// CommandInner payloads until a CommandFinal packet completes the message.
// Serial packets each yield a complete message immediately and never
// disturb command-stream accumulation, so serial frames may interleave
// freely with command fragments.
type Reassembler struct {
	buf        []byte // Fixed-capacity accumulation buffer
	length     int
	inProgress bool
}

// NewReassembler creates a reassembler with the default maximum message size
func NewReassembler() *Reassembler {
	return NewReassemblerSize(DefaultMaxMessage)
}

// NewReassemblerSize creates a reassembler with a custom maximum message size
//
// The accumulation buffer is allocated once here and reused across
// messages; accumulation itself never grows it.
func NewReassemblerSize(maxMessage int) *Reassembler {
	return &Reassembler{
		buf: make([]byte, maxMessage),
	}
}

// Feed processes one received packet.
// Returns a complete Message if one is available, nil otherwise.
//
// On overflow the accumulated data is discarded, the reassembler resets to
// idle and ErrMessageTooLarge is returned. The error is recoverable: the
// next well-formed message is processed normally.
func (r *Reassembler) Feed(pkt *packet.Packet) (*Message, error) {
	// Serial packets bypass accumulation entirely. Zero-length serial
	// packets are valid keep-alive no-ops and yield nothing.
	if pkt.Kind.IsSerial() {
		if len(pkt.Data) == 0 {
			return nil, nil
		}
		data := make([]byte, len(pkt.Data))
		copy(data, pkt.Data)
		return &Message{Channel: ChannelOf(pkt.Kind), Data: data}, nil
	}

	if r.length+len(pkt.Data) > len(r.buf) {
		r.Reset()
		return nil, ErrMessageTooLarge
	}

	copy(r.buf[r.length:], pkt.Data)
	r.length += len(pkt.Data)
	r.inProgress = true

	if pkt.Kind == packet.KindCommandFinal {
		data := make([]byte, r.length)
		copy(data, r.buf[:r.length])
		r.Reset()
		return &Message{Channel: ChannelCommand, Data: data}, nil
	}

	// More fragments expected
	return nil, nil
}

// Reset discards any partial accumulation and returns to idle
func (r *Reassembler) Reset() {
	r.length = 0
	r.inProgress = false
}

// InProgress returns true if command-stream reassembly is in progress
func (r *Reassembler) InProgress() bool {
	return r.inProgress
}
