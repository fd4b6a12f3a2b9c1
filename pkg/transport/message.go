package transport

import (
	"fmt"

	"github.com/umi-eng/hftwo/pkg/packet"
)

// Channel identifies the logical stream a message belongs to
type Channel int

const (
	ChannelCommand Channel = iota // Command/response stream
	ChannelStdout                 // Serial stdout
	ChannelStderr                 // Serial stderr
)

// String returns string representation of Channel
func (c Channel) String() string {
	switch c {
	case ChannelCommand:
		return "Command"
	case ChannelStdout:
		return "Stdout"
	case ChannelStderr:
		return "Stderr"
	default:
		return "Unknown"
	}
}

// ChannelOf maps a packet kind to its logical channel
func ChannelOf(kind packet.Kind) Channel {
	switch kind {
	case packet.KindStdout:
		return ChannelStdout
	case packet.KindStderr:
		return ChannelStderr
	default:
		return ChannelCommand
	}
}

// Message is a complete reassembled logical message
type Message struct {
	Channel Channel // Logical stream
	Data    []byte  // Message payload
}

// IsSerial returns true for serial diagnostic messages
func (m *Message) IsSerial() bool {
	return m.Channel == ChannelStdout || m.Channel == ChannelStderr
}

// String returns a string representation of the message
func (m *Message) String() string {
	return fmt.Sprintf("Message{Channel=%s, Len=%d}", m.Channel, len(m.Data))
}
