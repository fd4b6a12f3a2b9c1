// Package serial routes reassembled diagnostic serial frames to output
// sinks, independent of the command/response flow.
package serial

import (
	"errors"
	"io"

	"github.com/umi-eng/hftwo/pkg/transport"
)

var (
	ErrNotSerial = errors.New("message is not a serial frame")
)

// Demux forwards serial frames to per-stream sinks.
//
// Frames are delivered in the order the reassembler yielded them, which is
// the order packets were received. A nil sink discards that stream.
type Demux struct {
	stdout io.Writer
	stderr io.Writer
}

// NewDemux creates a demux writing to the given sinks
func NewDemux(stdout, stderr io.Writer) *Demux {
	return &Demux{
		stdout: stdout,
		stderr: stderr,
	}
}

// Route forwards a serial message's payload to its sink.
// Returns ErrNotSerial for command-stream messages.
func (d *Demux) Route(msg *transport.Message) error {
	var sink io.Writer

	switch msg.Channel {
	case transport.ChannelStdout:
		sink = d.stdout
	case transport.ChannelStderr:
		sink = d.stderr
	default:
		return ErrNotSerial
	}

	if sink == nil {
		return nil
	}

	_, err := sink.Write(msg.Data)
	return err
}
