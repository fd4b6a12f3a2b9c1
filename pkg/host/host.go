package host

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/umi-eng/hftwo/pkg/channel"
	"github.com/umi-eng/hftwo/pkg/command"
	"github.com/umi-eng/hftwo/pkg/internal/logger"
	"github.com/umi-eng/hftwo/pkg/packet"
	"github.com/umi-eng/hftwo/pkg/serial"
	"github.com/umi-eng/hftwo/pkg/transport"
)

// Config configures a host engine
type Config struct {
	// Identity
	ID string

	// Timeouts
	ResponseTimeout time.Duration
	PollInterval    time.Duration

	// Protocol
	MaxMessageSize int

	// Serial sinks; nil discards that stream
	Stdout io.Writer
	Stderr io.Writer
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() Config {
	return Config{
		ID:              "hf2-host",
		ResponseTimeout: 2 * time.Second,
		PollInterval:    50 * time.Millisecond,
		MaxMessageSize:  transport.DefaultMaxMessage,
	}
}

// Host is the host-role engine.
//
// It composes channel, reassembler, correlator and serial demux: commands
// go out through the fragmenter, incoming reports are reassembled and
// routed either to the correlator (responses) or to the serial demux
// (diagnostic output).
type Host struct {
	config Config
	logger logger.Logger

	channel     *channel.Channel
	reassembler *transport.Reassembler
	correlator  *Correlator
	demux       *serial.Demux

	// engineMu serializes all correlator and reassembler access: the
	// channel read loop, Issue callers and the timeout ticker all come
	// through here
	engineMu sync.Mutex

	// Concurrency
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a host engine over the given report transport
func New(config Config, report channel.ReportChannel, log logger.Logger) (*Host, error) {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if config.ResponseTimeout == 0 {
		config.ResponseTimeout = DefaultConfig().ResponseTimeout
	}
	if config.PollInterval == 0 {
		config.PollInterval = DefaultConfig().PollInterval
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = transport.DefaultMaxMessage
	}

	ctx, cancel := context.WithCancel(context.Background())

	h := &Host{
		config:      config,
		logger:      log,
		reassembler: transport.NewReassemblerSize(config.MaxMessageSize),
		correlator:  NewCorrelator(config.ResponseTimeout, log),
		demux:       serial.NewDemux(config.Stdout, config.Stderr),
		ctx:         ctx,
		cancel:      cancel,
	}

	h.channel = channel.New(config.ID, report, h, log)
	if err := h.channel.Open(); err != nil {
		cancel()
		return nil, err
	}

	// Drive correlator timeouts
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.timeoutLoop()
	}()

	h.logger.Info("Host %s created", config.ID)
	return h, nil
}

// Close shuts down the host. Any outstanding request is cancelled.
func (h *Host) Close() error {
	h.logger.Info("Host %s shutting down", h.config.ID)

	h.engineMu.Lock()
	h.correlator.Cancel()
	h.engineMu.Unlock()

	h.cancel()
	err := h.channel.Close()
	h.wg.Wait()

	h.logger.Info("Host %s shutdown complete", h.config.ID)
	return err
}

// timeoutLoop periodically checks the outstanding request for timeout
func (h *Host) timeoutLoop() {
	ticker := time.NewTicker(h.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.engineMu.Lock()
			h.correlator.PollTimeout(time.Now())
			h.engineMu.Unlock()
		}
	}
}

// OnReport handles one received report (implements channel.ReportHandler)
func (h *Host) OnReport(report []byte) {
	pkt, err := packet.Parse(report)
	if err != nil {
		// Malformed packet: drop it and continue, the channel recovers
		h.logger.Error("Host %s: bad report: %v", h.config.ID, err)
		h.channel.GetStatistics().BadReport()
		return
	}

	h.engineMu.Lock()
	msg, err := h.reassembler.Feed(pkt)
	h.engineMu.Unlock()

	if err != nil {
		h.logger.Error("Host %s: reassembly error: %v", h.config.ID, err)
		h.channel.GetStatistics().MessageError()
		return
	}
	if msg == nil {
		// Not complete yet
		return
	}

	h.channel.GetStatistics().MessageRx()

	if msg.IsSerial() {
		if err := h.demux.Route(msg); err != nil {
			h.logger.Error("Host %s: serial sink error: %v", h.config.ID, err)
		}
		return
	}

	h.engineMu.Lock()
	h.correlator.OnMessage(msg)
	h.engineMu.Unlock()
}

// Issue sends a command and returns a handle to the in-flight request.
//
// Fails with ErrAlreadyAwaiting while another request is outstanding; the
// caller must wait for it to resolve, time out, or be cancelled.
func (h *Host) Issue(id command.ID, args command.Args) (*PendingResponse, error) {
	pending := newPending()

	h.engineMu.Lock()
	cmd, err := h.correlator.Send(id, args, time.Now(), pending.complete)
	h.engineMu.Unlock()
	if err != nil {
		return nil, err
	}

	reports, err := h.encodeCommand(cmd)
	if err != nil {
		h.abort(err)
		return nil, err
	}

	h.channel.GetStatistics().MessageTx()
	if err := h.channel.WriteReports(reports); err != nil {
		err = fmt.Errorf("sending %s: %w", cmd.ID, err)
		h.abort(err)
		return nil, err
	}

	h.logger.Debug("Host %s: sent %s", h.config.ID, cmd)
	return pending, nil
}

// encodeCommand encodes and fragments a command into reports
func (h *Host) encodeCommand(cmd *command.Command) ([][]byte, error) {
	data, err := command.Encode(cmd)
	if err != nil {
		return nil, err
	}
	return transport.Fragment(data, packet.KindCommandFinal, h.config.MaxMessageSize)
}

// abort fails the outstanding request after a local send error
func (h *Host) abort(err error) {
	h.engineMu.Lock()
	defer h.engineMu.Unlock()
	if h.correlator.Awaiting() {
		h.correlator.resolve(nil, err)
	}
}

// Execute sends a command and waits for its response
func (h *Host) Execute(ctx context.Context, id command.ID, args command.Args) (*command.Response, error) {
	pending, err := h.Issue(id, args)
	if err != nil {
		return nil, err
	}
	return pending.Await(ctx)
}

// Cancel abandons the outstanding request, if any.
// A late response to the cancelled request will be discarded.
func (h *Host) Cancel() bool {
	h.engineMu.Lock()
	defer h.engineMu.Unlock()
	return h.correlator.Cancel()
}

// Awaiting returns true while a request is outstanding
func (h *Host) Awaiting() bool {
	h.engineMu.Lock()
	defer h.engineMu.Unlock()
	return h.correlator.Awaiting()
}

// GetStatistics returns channel statistics
func (h *Host) GetStatistics() *channel.Statistics {
	return h.channel.GetStatistics()
}

// String returns string representation
func (h *Host) String() string {
	return fmt.Sprintf("Host{ID=%s}", h.config.ID)
}
