package transport

import (
	"errors"

	"github.com/umi-eng/hftwo/pkg/packet"
)

var (
	ErrMessageTooLarge = errors.New("message exceeds maximum reassembly size")
)

// Fragment splits a logical message into the ordered sequence of reports
// required to send it.
//
// Command-stream messages become a chain of CommandInner packets terminated
// by a single CommandFinal packet; an empty message still produces exactly
// one zero-length Final packet. Serial messages are different: each chunk
// is an independent, complete serial frame (serial output is never
// reassembled on the receiving side), so serial input is not bounded by
// maxMessage.
//
// Fragment is pure: it keeps no state between calls.
func Fragment(message []byte, kind packet.Kind, maxMessage int) ([][]byte, error) {
	if kind.IsCommand() && len(message) > maxMessage {
		return nil, ErrMessageTooLarge
	}

	// Empty command message: single zero-length Final packet
	if len(message) == 0 {
		if kind.IsSerial() {
			return nil, nil
		}
		pkt := packet.New(packet.KindCommandFinal, nil)
		report, err := pkt.Serialize()
		if err != nil {
			return nil, err
		}
		return [][]byte{report}, nil
	}

	var reports [][]byte

	for offset := 0; offset < len(message); {
		remaining := len(message) - offset
		chunk := packet.MaxDataSize
		if remaining < chunk {
			chunk = remaining
		}

		final := offset+chunk >= len(message)

		pktKind := kind
		if kind.IsCommand() {
			if final {
				pktKind = packet.KindCommandFinal
			} else {
				pktKind = packet.KindCommandInner
			}
		}

		pkt := packet.New(pktKind, message[offset:offset+chunk])
		report, err := pkt.Serialize()
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)

		offset += chunk
	}

	return reports, nil
}
