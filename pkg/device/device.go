// Package device implements the device-role engine: it receives commands,
// dispatches them to a Handler and sends the responses back, and exposes
// serial writers for diagnostic output.
package device

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/umi-eng/hftwo/pkg/channel"
	"github.com/umi-eng/hftwo/pkg/command"
	"github.com/umi-eng/hftwo/pkg/internal/logger"
	"github.com/umi-eng/hftwo/pkg/packet"
	"github.com/umi-eng/hftwo/pkg/transport"
)

// Handler processes one decoded command and produces its response.
//
// Handle is invoked from the channel read loop, one command at a time; the
// protocol is non-pipelined so a handler never runs concurrently with
// itself. The returned response's Tag is overwritten with the command's
// tag before sending.
type Handler interface {
	Handle(cmd *command.Command) *command.Response
}

// HandlerFunc adapts a function to the Handler interface
type HandlerFunc func(cmd *command.Command) *command.Response

// Handle implements Handler
func (f HandlerFunc) Handle(cmd *command.Command) *command.Response {
	return f(cmd)
}

// Config configures a device engine
type Config struct {
	// Identity
	ID string

	// Protocol
	MaxMessageSize int
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() Config {
	return Config{
		ID:             "hf2-device",
		MaxMessageSize: transport.DefaultMaxMessage,
	}
}

// Device is the device-role engine.
//
// Incoming reports are reassembled into command messages, decoded,
// dispatched to the Handler, and the response is fragmented and written
// back on the same channel. Stdout and Stderr writers push serial frames
// interleaved with the command stream.
type Device struct {
	config  Config
	logger  logger.Logger
	handler Handler

	channel     *channel.Channel
	reassembler *transport.Reassembler

	// engineMu serializes reassembly and dispatch against Close
	engineMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a device engine over the given report transport
func New(config Config, report channel.ReportChannel, handler Handler, log logger.Logger) (*Device, error) {
	if handler == nil {
		return nil, errors.New("device handler is required")
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = transport.DefaultMaxMessage
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Device{
		config:      config,
		logger:      log,
		handler:     handler,
		reassembler: transport.NewReassemblerSize(config.MaxMessageSize),
		ctx:         ctx,
		cancel:      cancel,
	}

	d.channel = channel.New(config.ID, report, d, log)
	if err := d.channel.Open(); err != nil {
		cancel()
		return nil, err
	}

	d.logger.Info("Device %s created", config.ID)
	return d, nil
}

// Close shuts down the device
func (d *Device) Close() error {
	d.logger.Info("Device %s shutting down", d.config.ID)
	d.cancel()
	return d.channel.Close()
}

// OnReport handles one received report (implements channel.ReportHandler)
func (d *Device) OnReport(report []byte) {
	pkt, err := packet.Parse(report)
	if err != nil {
		d.logger.Error("Device %s: bad report: %v", d.config.ID, err)
		d.channel.GetStatistics().BadReport()
		return
	}

	d.engineMu.Lock()
	defer d.engineMu.Unlock()

	msg, err := d.reassembler.Feed(pkt)
	if err != nil {
		d.logger.Error("Device %s: reassembly error: %v", d.config.ID, err)
		d.channel.GetStatistics().MessageError()
		return
	}
	if msg == nil {
		return
	}

	d.channel.GetStatistics().MessageRx()

	if msg.IsSerial() {
		// A device does not consume serial output; drop it
		d.logger.Warn("Device %s: dropped unexpected serial message", d.config.ID)
		return
	}

	d.dispatch(msg)
}

// dispatch decodes one command message, runs the handler and sends the
// response
func (d *Device) dispatch(msg *transport.Message) {
	cmd, err := command.Decode(msg.Data)

	var resp *command.Response
	switch {
	case err == nil:
		resp = d.handler.Handle(cmd)
		if resp == nil {
			resp = command.ExecutionError(cmd.Tag, 0)
		}
		resp.Tag = cmd.Tag

	case errors.Is(err, command.ErrUnsupportedCommand):
		// Identifier not in the table, but id and tag decoded fine:
		// answer rather than leave the host to time out
		d.logger.Warn("Device %s: unrecognized command 0x%04X", d.config.ID, uint16(cmd.ID))
		resp = command.NotRecognized(cmd.Tag)

	case len(msg.Data) >= command.CommandHeaderSize:
		// Known id with malformed arguments; the tag is still readable
		d.logger.Error("Device %s: malformed command: %v", d.config.ID, err)
		resp = command.ExecutionError(binary.LittleEndian.Uint16(msg.Data[2:4]), 0)

	default:
		// Too short to even carry a tag, nothing to correlate a reply to
		d.logger.Error("Device %s: dropped malformed command: %v", d.config.ID, err)
		d.channel.GetStatistics().MessageError()
		return
	}

	if err := d.send(command.EncodeResponse(resp), packet.KindCommandFinal); err != nil {
		d.logger.Error("Device %s: failed to send response: %v", d.config.ID, err)
	}
}

// send fragments and writes one outgoing message
func (d *Device) send(data []byte, kind packet.Kind) error {
	reports, err := transport.Fragment(data, kind, d.config.MaxMessageSize)
	if err != nil {
		return err
	}
	d.channel.GetStatistics().MessageTx()
	return d.channel.WriteReports(reports)
}

// Stdout returns a writer whose writes are sent as stdout serial frames
func (d *Device) Stdout() io.Writer {
	return &serialWriter{device: d, kind: packet.KindStdout}
}

// Stderr returns a writer whose writes are sent as stderr serial frames
func (d *Device) Stderr() io.Writer {
	return &serialWriter{device: d, kind: packet.KindStderr}
}

// GetStatistics returns channel statistics
func (d *Device) GetStatistics() *channel.Statistics {
	return d.channel.GetStatistics()
}

// String returns string representation
func (d *Device) String() string {
	return fmt.Sprintf("Device{ID=%s}", d.config.ID)
}

// serialWriter sends each Write as a run of independent serial frames
type serialWriter struct {
	device *Device
	kind   packet.Kind
}

// Write implements io.Writer. Serial output is not bounded by the command
// message size limit; a large write simply becomes more frames.
func (w *serialWriter) Write(p []byte) (int, error) {
	if err := w.device.send(p, w.kind); err != nil {
		return 0, err
	}
	return len(p), nil
}
