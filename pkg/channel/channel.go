package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/umi-eng/hftwo/pkg/internal/logger"
)

var (
	ErrChannelClosed = errors.New("channel is closed")
	ErrChannelOpen   = errors.New("channel is already open")
	ErrBadReportSize = errors.New("report is not the fixed report size")
)

// Channel pumps reports between a ReportChannel and a handler.
//
// It owns the read loop and serializes all writes through a single write
// loop, so fragments of one message are never interleaved with another
// writer's fragments on the wire.
type Channel struct {
	id      string
	report  ReportChannel
	handler ReportHandler
	stats   *Statistics
	logger  logger.Logger

	// State
	state   ChannelState
	stateMu sync.RWMutex

	// Concurrency
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Write queue for serializing writes
	writeQueue chan *writeRequest
}

// writeRequest represents a write request
type writeRequest struct {
	report []byte
	resp   chan error
}

// New creates a new channel delivering received reports to handler
func New(id string, report ReportChannel, handler ReportHandler, log logger.Logger) *Channel {
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Channel{
		id:         id,
		report:     report,
		handler:    handler,
		stats:      NewStatistics(),
		logger:     log,
		state:      ChannelStateClosed,
		ctx:        ctx,
		cancel:     cancel,
		writeQueue: make(chan *writeRequest, 100),
	}
}

// ID returns the channel ID
func (c *Channel) ID() string {
	return c.id
}

// Open opens the channel and starts processing
func (c *Channel) Open() error {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	if c.state == ChannelStateOpen {
		return ErrChannelOpen
	}

	c.state = ChannelStateOpen
	c.logger.Info("Channel %s opening", c.id)

	// Start read loop
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.readLoop()
	}()

	// Start write loop
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.writeLoop()
	}()

	c.logger.Info("Channel %s opened", c.id)
	return nil
}

// Close closes the channel
func (c *Channel) Close() error {
	c.stateMu.Lock()
	if c.state == ChannelStateClosed {
		c.stateMu.Unlock()
		return nil
	}
	c.state = ChannelStateClosed
	c.stateMu.Unlock()

	c.logger.Info("Channel %s closing", c.id)

	// Cancel context to stop goroutines
	c.cancel()

	// Close underlying transport
	if err := c.report.Close(); err != nil {
		c.logger.Error("Error closing report transport: %v", err)
	}

	// Wait for goroutines to finish
	c.wg.Wait()

	c.logger.Info("Channel %s closed", c.id)
	return nil
}

// readLoop continuously reads reports from the transport
func (c *Channel) readLoop() {
	c.logger.Debug("Channel %s read loop started", c.id)
	defer c.logger.Debug("Channel %s read loop stopped", c.id)

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		report, err := c.report.ReadReport(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				// Context cancelled, normal shutdown
				return
			}
			c.logger.Error("Channel %s read error: %v", c.id, err)
			c.stats.BadReport()
			continue
		}

		c.stats.ReportRx()
		c.handler.OnReport(report)
	}
}

// writeLoop processes write requests
func (c *Channel) writeLoop() {
	c.logger.Debug("Channel %s write loop started", c.id)
	defer c.logger.Debug("Channel %s write loop stopped", c.id)

	for {
		select {
		case <-c.ctx.Done():
			// Drain remaining requests with error
			for {
				select {
				case req := <-c.writeQueue:
					req.resp <- ErrChannelClosed
				default:
					return
				}
			}

		case req := <-c.writeQueue:
			err := c.report.WriteReport(c.ctx, req.report)
			if err != nil {
				c.logger.Error("Channel %s write error: %v", c.id, err)
			} else {
				c.stats.ReportTx()
			}
			req.resp <- err
		}
	}
}

// WriteReport queues one report for transmission and waits for the result
func (c *Channel) WriteReport(report []byte) error {
	if len(report) != ReportSize {
		return ErrBadReportSize
	}

	c.stateMu.RLock()
	if c.state != ChannelStateOpen {
		c.stateMu.RUnlock()
		return ErrChannelClosed
	}
	c.stateMu.RUnlock()

	req := &writeRequest{
		report: report,
		resp:   make(chan error, 1),
	}

	select {
	case c.writeQueue <- req:
		// Close can win the race after the request is queued but
		// before writeLoop dequeues it, so the wait must observe
		// shutdown too
		select {
		case err := <-req.resp:
			return err
		case <-c.ctx.Done():
			return ErrChannelClosed
		}
	case <-c.ctx.Done():
		return ErrChannelClosed
	}
}

// WriteReports writes a sequence of reports in order
func (c *Channel) WriteReports(reports [][]byte) error {
	for _, report := range reports {
		if err := c.WriteReport(report); err != nil {
			return err
		}
	}
	return nil
}

// GetStatistics returns channel statistics
func (c *Channel) GetStatistics() *Statistics {
	return c.stats
}

// GetTransportStatistics returns underlying transport statistics
func (c *Channel) GetTransportStatistics() TransportStats {
	return c.report.Statistics()
}

// State returns the current channel state
func (c *Channel) State() ChannelState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// String returns string representation of channel
func (c *Channel) String() string {
	return fmt.Sprintf("Channel{ID=%s, State=%s}", c.id, c.State())
}
