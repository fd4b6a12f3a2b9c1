package device

import (
	"bytes"
	"context"
	"encoding/binary"
	"strings"
	"testing"
	"time"

	"github.com/umi-eng/hftwo/pkg/channel"
	"github.com/umi-eng/hftwo/pkg/command"
	"github.com/umi-eng/hftwo/pkg/host"
	"github.com/umi-eng/hftwo/pkg/packet"
	"github.com/umi-eng/hftwo/pkg/transport"
)

// newLoopback wires a host and a device back to back over an in-memory
// pipe
func newLoopback(t *testing.T, hostConfig host.Config, handler Handler) (*host.Host, *Device) {
	t.Helper()

	hostEnd, deviceEnd := channel.NewPipe()

	d, err := New(DefaultConfig(), deviceEnd, handler, nil)
	if err != nil {
		t.Fatalf("Failed to create device: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	h, err := host.New(hostConfig, hostEnd, nil)
	if err != nil {
		t.Fatalf("Failed to create host: %v", err)
	}
	t.Cleanup(func() { h.Close() })

	return h, d
}

func TestDevice_EndToEndFlashSequence(t *testing.T) {
	sim := NewSimulator(DefaultSimulatorConfig())
	h, _ := newLoopback(t, host.DefaultConfig(), sim)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Query geometry
	info, err := h.BinInfo(ctx)
	if err != nil {
		t.Fatalf("BinInfo error: %v", err)
	}
	if info.Mode != command.ModeBootloader {
		t.Fatalf("Expected bootloader mode, got 0x%02X", info.Mode)
	}
	if info.FlashPageSize != 256 {
		t.Fatalf("Expected page size 256, got %d", info.FlashPageSize)
	}

	// Flash two pages
	if err := h.StartFlash(ctx); err != nil {
		t.Fatalf("StartFlash error: %v", err)
	}

	page0 := bytes.Repeat([]byte{0x11}, int(info.FlashPageSize))
	page1 := bytes.Repeat([]byte{0x22}, int(info.FlashPageSize))
	if err := h.WriteFlashPage(ctx, 0, page0); err != nil {
		t.Fatalf("WriteFlashPage 0 error: %v", err)
	}
	if err := h.WriteFlashPage(ctx, info.FlashPageSize, page1); err != nil {
		t.Fatalf("WriteFlashPage 1 error: %v", err)
	}

	if !bytes.Equal(sim.FlashPage(0), page0) {
		t.Error("Page 0 content mismatch")
	}
	if !bytes.Equal(sim.FlashPage(info.FlashPageSize), page1) {
		t.Error("Page 1 content mismatch")
	}

	// Verify via checksums
	sums, err := h.ChecksumPages(ctx, 0, 2)
	if err != nil {
		t.Fatalf("ChecksumPages error: %v", err)
	}
	if len(sums) != 2 {
		t.Fatalf("Expected 2 checksums, got %d", len(sums))
	}
	if sums[0] != command.PageChecksum(page0) || sums[1] != command.PageChecksum(page1) {
		t.Error("Checksum mismatch")
	}

	// Read back the first words of page 1
	words, err := h.ReadWords(ctx, info.FlashPageSize, 2)
	if err != nil {
		t.Fatalf("ReadWords error: %v", err)
	}
	if words[0] != 0x22222222 || words[1] != 0x22222222 {
		t.Errorf("ReadWords mismatch: %08X %08X", words[0], words[1])
	}

	// Patch a word and read it back
	if err := h.WriteWords(ctx, 0, []uint32{0xDEADBEEF}); err != nil {
		t.Fatalf("WriteWords error: %v", err)
	}
	words, err = h.ReadWords(ctx, 0, 1)
	if err != nil {
		t.Fatalf("ReadWords error: %v", err)
	}
	if words[0] != 0xDEADBEEF {
		t.Errorf("Expected 0xDEADBEEF, got 0x%08X", words[0])
	}

	// Diagnostic log
	dmesg, err := h.Dmesg(ctx)
	if err != nil {
		t.Fatalf("Dmesg error: %v", err)
	}
	if !strings.Contains(dmesg, "simulator start") {
		t.Errorf("Dmesg mismatch: %q", dmesg)
	}

	// Boot the application
	if err := h.ResetIntoApp(ctx); err != nil {
		t.Fatalf("ResetIntoApp error: %v", err)
	}
	if sim.Mode() != command.ModeApplication {
		t.Error("Simulator did not switch to application mode")
	}
}

func TestDevice_WriteBeforeStartFlashFails(t *testing.T) {
	sim := NewSimulator(DefaultSimulatorConfig())
	h, _ := newLoopback(t, host.DefaultConfig(), sim)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	page := bytes.Repeat([]byte{0x33}, 256)
	if err := h.WriteFlashPage(ctx, 0, page); err == nil {
		t.Fatal("Expected error writing before StartFlash")
	}
}

func TestDevice_InfoString(t *testing.T) {
	config := DefaultSimulatorConfig()
	config.InfoString = "test bootloader v9"
	h, _ := newLoopback(t, host.DefaultConfig(), NewSimulator(config))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	info, err := h.Info(ctx)
	if err != nil {
		t.Fatalf("Info error: %v", err)
	}
	if info != "test bootloader v9" {
		t.Errorf("Info mismatch: %q", info)
	}
}

func TestDevice_NilHandlerResponse(t *testing.T) {
	h, _ := newLoopback(t, host.DefaultConfig(), HandlerFunc(func(cmd *command.Command) *command.Response {
		return nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// A handler returning nil still yields a correlated error response
	if err := h.StartFlash(ctx); err == nil {
		t.Fatal("Expected error from nil handler response")
	}
}

// rawExchange sends pre-encoded command bytes to a device and returns the
// decoded response, bypassing the host engine entirely
func rawExchange(t *testing.T, handler Handler, data []byte, forID command.ID) *command.Response {
	t.Helper()

	hostEnd, deviceEnd := channel.NewPipe()
	d, err := New(DefaultConfig(), deviceEnd, handler, nil)
	if err != nil {
		t.Fatalf("Failed to create device: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	reports, err := transport.Fragment(data, packet.KindCommandFinal, transport.DefaultMaxMessage)
	if err != nil {
		t.Fatalf("Fragment error: %v", err)
	}
	for _, r := range reports {
		if err := hostEnd.WriteReport(ctx, r); err != nil {
			t.Fatalf("WriteReport error: %v", err)
		}
	}

	reasm := transport.NewReassembler()
	for {
		report, err := hostEnd.ReadReport(ctx)
		if err != nil {
			t.Fatalf("ReadReport error: %v", err)
		}
		pkt, err := packet.Parse(report)
		if err != nil {
			t.Fatalf("Parse error: %v", err)
		}
		msg, err := reasm.Feed(pkt)
		if err != nil {
			t.Fatalf("Feed error: %v", err)
		}
		if msg == nil {
			continue
		}
		resp, err := command.DecodeResponse(msg.Data, forID)
		if err != nil {
			t.Fatalf("DecodeResponse error: %v", err)
		}
		return resp
	}
}

func TestDevice_UnknownCommandNotRecognized(t *testing.T) {
	// Identifier 0x0040 is outside the command table
	data := make([]byte, 4)
	binary.LittleEndian.PutUint16(data[0:2], 0x0040)
	binary.LittleEndian.PutUint16(data[2:4], 9)

	resp := rawExchange(t, NewSimulator(DefaultSimulatorConfig()), data, command.IDInfo)
	if resp.Status != command.StatusNotRecognized {
		t.Errorf("Expected NotRecognized, got %s", resp.Status)
	}
	if resp.Tag != 9 {
		t.Errorf("Expected echoed tag 9, got %d", resp.Tag)
	}
}

func TestDevice_MalformedArgumentsExecutionError(t *testing.T) {
	// ChecksumPages with a short argument block; the tag is still readable
	data := make([]byte, 5)
	binary.LittleEndian.PutUint16(data[0:2], uint16(command.IDChecksumPages))
	binary.LittleEndian.PutUint16(data[2:4], 13)
	data[4] = 0xAA

	resp := rawExchange(t, NewSimulator(DefaultSimulatorConfig()), data, command.IDChecksumPages)
	if resp.Status != command.StatusExecutionError {
		t.Errorf("Expected ExecutionError, got %s", resp.Status)
	}
	if resp.Tag != 13 {
		t.Errorf("Expected echoed tag 13, got %d", resp.Tag)
	}
}

func TestDevice_SerialWriters(t *testing.T) {
	hostEnd, deviceEnd := channel.NewPipe()
	d, err := New(DefaultConfig(), deviceEnd, NewSimulator(DefaultSimulatorConfig()), nil)
	if err != nil {
		t.Fatalf("Failed to create device: %v", err)
	}
	defer d.Close()

	if _, err := d.Stdout().Write([]byte("hello from device\n")); err != nil {
		t.Fatalf("Stdout write error: %v", err)
	}
	if _, err := d.Stderr().Write([]byte("oops\n")); err != nil {
		t.Fatalf("Stderr write error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	report, err := hostEnd.ReadReport(ctx)
	if err != nil {
		t.Fatalf("ReadReport error: %v", err)
	}
	pkt, err := packet.Parse(report)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if pkt.Kind != packet.KindStdout {
		t.Errorf("Expected stdout frame, got %s", pkt.Kind)
	}
	if string(pkt.Data) != "hello from device\n" {
		t.Errorf("Stdout payload mismatch: %q", pkt.Data)
	}

	report, err = hostEnd.ReadReport(ctx)
	if err != nil {
		t.Fatalf("ReadReport error: %v", err)
	}
	pkt, err = packet.Parse(report)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if pkt.Kind != packet.KindStderr {
		t.Errorf("Expected stderr frame, got %s", pkt.Kind)
	}
	if string(pkt.Data) != "oops\n" {
		t.Errorf("Stderr payload mismatch: %q", pkt.Data)
	}
}

func TestDevice_SerialInterleavedWithCommandStream(t *testing.T) {
	var handlerDevice *Device
	handler := HandlerFunc(func(cmd *command.Command) *command.Response {
		// Emit diagnostic output while the request is in flight
		handlerDevice.Stdout().Write([]byte("working\n"))
		return command.OK(cmd, []byte("done"))
	})

	hostEnd, deviceEnd := channel.NewPipe()
	d, err := New(DefaultConfig(), deviceEnd, handler, nil)
	if err != nil {
		t.Fatalf("Failed to create device: %v", err)
	}
	defer d.Close()
	handlerDevice = d

	var stdout bytes.Buffer
	stdoutDone := make(chan struct{})
	config := host.DefaultConfig()
	config.Stdout = writerFunc(func(p []byte) (int, error) {
		n, err := stdout.Write(p)
		close(stdoutDone)
		return n, err
	})

	h, err := host.New(config, hostEnd, nil)
	if err != nil {
		t.Fatalf("Failed to create host: %v", err)
	}
	defer h.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	info, err := h.Info(ctx)
	if err != nil {
		t.Fatalf("Info error: %v", err)
	}
	if info != "done" {
		t.Errorf("Info mismatch: %q", info)
	}

	select {
	case <-stdoutDone:
	case <-ctx.Done():
		t.Fatal("Timed out waiting for serial output")
	}
	if got := stdout.String(); got != "working\n" {
		t.Errorf("Stdout mismatch: %q", got)
	}
}

// writerFunc adapts a function to io.Writer
type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
