package channel

import (
	"context"

	"github.com/umi-eng/hftwo/pkg/packet"
)

// ConnectionStateListener receives notifications about connection state changes
type ConnectionStateListener interface {
	// OnConnectionEstablished is called when a new connection is established
	OnConnectionEstablished()

	// OnConnectionLost is called when a connection is lost
	OnConnectionLost()
}

// ReportChannel represents a pluggable report transport.
// Users implement this interface to provide USB HID, TCP bridging, or any
// custom transport that delivers whole fixed-size reports.
type ReportChannel interface {
	// ReadReport reads the next report from the transport
	// Should block until a report is available or context is cancelled
	// Returns exactly packet.ReportSize bytes; no partial-report semantics
	ReadReport(ctx context.Context) ([]byte, error)

	// WriteReport writes one report to the transport
	// Must be thread-safe; report must be exactly packet.ReportSize bytes
	WriteReport(ctx context.Context, report []byte) error

	// Close closes the transport
	// Should cleanup all resources and unblock any pending reads/writes
	Close() error

	// Statistics returns transport-level statistics
	// Optional - can return zero values if not tracked
	Statistics() TransportStats

	// SetConnectionStateListener sets a listener for connection state changes
	// Optional - transports without connection state can ignore this
	SetConnectionStateListener(listener ConnectionStateListener)
}

// ReportHandler consumes reports delivered by a channel's read loop
type ReportHandler interface {
	// OnReport is called once per received report, in arrival order
	OnReport(report []byte)
}

// TransportStats provides transport-level statistics
type TransportStats struct {
	BytesSent     uint64 // Total bytes sent
	BytesReceived uint64 // Total bytes received
	WriteErrors   uint64 // Number of write errors
	ReadErrors    uint64 // Number of read errors
	Connects      uint64 // Number of connections (for connection-oriented transports)
	Disconnects   uint64 // Number of disconnections
}

// ChannelState represents the state of a channel
type ChannelState int

const (
	ChannelStateOpen ChannelState = iota
	ChannelStateClosed
)

// String returns string representation of ChannelState
func (s ChannelState) String() string {
	switch s {
	case ChannelStateOpen:
		return "Open"
	case ChannelStateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// ReportSize re-exports the protocol report size for transport implementers
const ReportSize = packet.ReportSize
