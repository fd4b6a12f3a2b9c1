package channel

import (
	"context"
	"errors"
	"sync"
)

// PipeChannel is an in-memory ReportChannel.
//
// NewPipe returns two ends wired back to back: reports written on one end
// are read on the other, in order. Used for loopback testing of a host and
// a device engine in the same process.
type PipeChannel struct {
	readChan  chan []byte
	writeChan chan []byte
	closeChan chan struct{}
	closed    bool
	mu        sync.RWMutex
	stats     TransportStats
}

// NewPipe creates a connected pair of pipe channels
func NewPipe() (*PipeChannel, *PipeChannel) {
	aToB := make(chan []byte, 64)
	bToA := make(chan []byte, 64)
	closeChan := make(chan struct{})

	a := &PipeChannel{readChan: bToA, writeChan: aToB, closeChan: closeChan}
	b := &PipeChannel{readChan: aToB, writeChan: bToA, closeChan: closeChan}
	return a, b
}

// ReadReport implements ReportChannel.ReadReport
func (p *PipeChannel) ReadReport(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.closeChan:
		return nil, errors.New("channel closed")
	case report := <-p.readChan:
		p.mu.Lock()
		p.stats.BytesReceived += uint64(len(report))
		p.mu.Unlock()
		return report, nil
	}
}

// WriteReport implements ReportChannel.WriteReport
func (p *PipeChannel) WriteReport(ctx context.Context, report []byte) error {
	if len(report) != ReportSize {
		return ErrBadReportSize
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return errors.New("channel closed")
	}
	p.mu.RUnlock()

	// Copy so the caller may reuse its buffer
	buf := make([]byte, len(report))
	copy(buf, report)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.closeChan:
		return errors.New("channel closed")
	case p.writeChan <- buf:
		p.mu.Lock()
		p.stats.BytesSent += uint64(len(report))
		p.mu.Unlock()
		return nil
	}
}

// Close implements ReportChannel.Close
//
// Closing either end closes both.
func (p *PipeChannel) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true
	select {
	case <-p.closeChan:
		// Other end already closed the shared channel
	default:
		close(p.closeChan)
	}
	return nil
}

// Statistics implements ReportChannel.Statistics
func (p *PipeChannel) Statistics() TransportStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stats
}

// SetConnectionStateListener implements ReportChannel.SetConnectionStateListener
func (p *PipeChannel) SetConnectionStateListener(listener ConnectionStateListener) {}
