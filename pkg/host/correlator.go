package host

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/umi-eng/hftwo/pkg/command"
	"github.com/umi-eng/hftwo/pkg/internal/logger"
	"github.com/umi-eng/hftwo/pkg/transport"
)

var (
	ErrAlreadyAwaiting = errors.New("a request is already outstanding")
	ErrTimeout         = errors.New("response timeout")
	ErrCancelled       = errors.New("request cancelled")
	ErrNoOutstanding   = errors.New("no outstanding request")
)

// ResultFunc receives the outcome of an outstanding request.
// Exactly one of resp or err is non-nil, and it is invoked exactly once.
type ResultFunc func(resp *command.Response, err error)

// correlatorState is the correlator state machine state
type correlatorState int

const (
	stateIdle correlatorState = iota
	stateAwaiting
)

// Correlator matches incoming responses to the outstanding command by tag
// and enforces the single-outstanding-request discipline.
//
// It is a synchronous state machine: Send, OnMessage and PollTimeout are
// plain transforms invoked by the surrounding driver. It performs no I/O,
// spawns no goroutines and is not safe for concurrent use; a multi-threaded
// host must serialize access to it.
type Correlator struct {
	state   correlatorState
	nextTag uint16

	// Outstanding request record
	tag       uint16
	forID     command.ID
	issueTime time.Time
	complete  ResultFunc

	timeout time.Duration
	logger  logger.Logger
}

// NewCorrelator creates a correlator with the given response timeout
func NewCorrelator(timeout time.Duration, log logger.Logger) *Correlator {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Correlator{
		nextTag: 1,
		timeout: timeout,
		logger:  log,
	}
}

// Send records an outstanding request for a new command and returns the
// command with its assigned tag.
//
// Fails with ErrAlreadyAwaiting while a previous request is outstanding:
// the protocol is non-pipelined, the device processes one command to
// completion before the next may be sent.
func (c *Correlator) Send(id command.ID, args command.Args, now time.Time, complete ResultFunc) (*command.Command, error) {
	if c.state == stateAwaiting {
		return nil, ErrAlreadyAwaiting
	}

	tag := c.nextTag
	c.nextTag++
	if c.nextTag == 0 {
		// Tag 0 is never assigned so a wrapped counter cannot collide
		// with the zero value of an uninitialized field
		c.nextTag = 1
	}

	c.state = stateAwaiting
	c.tag = tag
	c.forID = id
	c.issueTime = now
	c.complete = complete

	return &command.Command{ID: id, Tag: tag, Args: args}, nil
}

// OnMessage processes a reassembled command-stream message as a response.
//
// A response whose tag matches the outstanding request resolves it. A
// response with any other tag is stale or foreign; it is discarded without
// disturbing the outstanding request, no matter what its payload looks
// like. A matching response that cannot be decoded fails the outstanding
// request with the decode error; so does a message too short to carry a
// tag, since there is nothing else it could belong to.
func (c *Correlator) OnMessage(msg *transport.Message) error {
	if c.state != stateAwaiting {
		c.logger.Warn("Correlator: dropped response, no outstanding request")
		return ErrNoOutstanding
	}

	if len(msg.Data) < 2 {
		c.resolve(nil, fmt.Errorf("decoding response for %s: %w", c.forID, command.ErrTruncatedMessage))
		return nil
	}

	// Correlate before validating shape: shape is defined by the
	// outstanding command's id, which says nothing about a foreign
	// response
	if tag := binary.LittleEndian.Uint16(msg.Data[0:2]); tag != c.tag {
		c.logger.Warn("Correlator: unexpected tag %d, outstanding is %d", tag, c.tag)
		return nil
	}

	resp, err := command.DecodeResponse(msg.Data, c.forID)
	if err != nil {
		c.resolve(nil, fmt.Errorf("decoding response for %s: %w", c.forID, err))
		return nil
	}

	c.resolve(resp, nil)
	return nil
}

// PollTimeout fails the outstanding request if it has exceeded the
// configured timeout. Returns true if a timeout fired.
//
// The freed slot accepts a new command immediately; a late response to the
// timed-out request will carry a tag that no longer matches and be
// discarded.
func (c *Correlator) PollTimeout(now time.Time) bool {
	if c.state != stateAwaiting {
		return false
	}
	if now.Sub(c.issueTime) < c.timeout {
		return false
	}

	c.logger.Warn("Correlator: request tag %d timed out", c.tag)
	c.resolve(nil, ErrTimeout)
	return true
}

// Cancel abandons the outstanding request, if any. Returns true if a
// request was cancelled.
func (c *Correlator) Cancel() bool {
	if c.state != stateAwaiting {
		return false
	}

	c.resolve(nil, ErrCancelled)
	return true
}

// Awaiting returns true while a request is outstanding
func (c *Correlator) Awaiting() bool {
	return c.state == stateAwaiting
}

// resolve completes the outstanding request and returns to idle
func (c *Correlator) resolve(resp *command.Response, err error) {
	complete := c.complete

	c.state = stateIdle
	c.complete = nil

	if complete != nil {
		complete(resp, err)
	}
}
