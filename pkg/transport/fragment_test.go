package transport

import (
	"bytes"
	"testing"

	"github.com/umi-eng/hftwo/pkg/packet"
)

func TestFragment_SingleFragment(t *testing.T) {
	message := []byte{0x01, 0x02, 0x03, 0x04, 0x05}

	reports, err := Fragment(message, packet.KindCommandFinal, DefaultMaxMessage)
	if err != nil {
		t.Fatalf("Fragment error: %v", err)
	}

	if len(reports) != 1 {
		t.Fatalf("Expected 1 report, got %d", len(reports))
	}

	pkt, err := packet.Parse(reports[0])
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if pkt.Kind != packet.KindCommandFinal {
		t.Errorf("Expected kind CommandFinal, got %s", pkt.Kind)
	}
	if !bytes.Equal(pkt.Data, message) {
		t.Errorf("Data mismatch")
	}
}

func TestFragment_ThreePackets(t *testing.T) {
	// 130-byte message splits as 63 + 63 + 4 with a 64-byte report size
	message := make([]byte, 130)
	for i := range message {
		message[i] = byte(i)
	}

	reports, err := Fragment(message, packet.KindCommandFinal, 256)
	if err != nil {
		t.Fatalf("Fragment error: %v", err)
	}

	if len(reports) != 3 {
		t.Fatalf("Expected 3 reports, got %d", len(reports))
	}

	expected := []struct {
		kind packet.Kind
		size int
	}{
		{packet.KindCommandInner, 63},
		{packet.KindCommandInner, 63},
		{packet.KindCommandFinal, 4},
	}

	for i, e := range expected {
		pkt, err := packet.Parse(reports[i])
		if err != nil {
			t.Fatalf("Report %d: parse error: %v", i, err)
		}
		if pkt.Kind != e.kind {
			t.Errorf("Report %d: expected kind %s, got %s", i, e.kind, pkt.Kind)
		}
		if len(pkt.Data) != e.size {
			t.Errorf("Report %d: expected %d payload bytes, got %d", i, e.size, len(pkt.Data))
		}
	}
}

func TestFragment_EmptyMessage(t *testing.T) {
	reports, err := Fragment(nil, packet.KindCommandFinal, DefaultMaxMessage)
	if err != nil {
		t.Fatalf("Fragment error: %v", err)
	}

	// An empty command message still produces one zero-length Final packet
	if len(reports) != 1 {
		t.Fatalf("Expected 1 report, got %d", len(reports))
	}

	pkt, err := packet.Parse(reports[0])
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if pkt.Kind != packet.KindCommandFinal || len(pkt.Data) != 0 {
		t.Errorf("Expected empty Final packet, got %s", pkt)
	}
}

func TestFragment_SerialChunksAreIndependent(t *testing.T) {
	// 100 bytes of serial output become two independent stdout frames
	message := make([]byte, 100)
	reports, err := Fragment(message, packet.KindStdout, DefaultMaxMessage)
	if err != nil {
		t.Fatalf("Fragment error: %v", err)
	}

	if len(reports) != 2 {
		t.Fatalf("Expected 2 reports, got %d", len(reports))
	}

	for i, report := range reports {
		pkt, err := packet.Parse(report)
		if err != nil {
			t.Fatalf("Report %d: parse error: %v", i, err)
		}
		if pkt.Kind != packet.KindStdout {
			t.Errorf("Report %d: expected kind Stdout, got %s", i, pkt.Kind)
		}
	}
}

func TestFragment_TooLarge(t *testing.T) {
	message := make([]byte, 257)
	if _, err := Fragment(message, packet.KindCommandFinal, 256); err != ErrMessageTooLarge {
		t.Errorf("Expected ErrMessageTooLarge, got %v", err)
	}

	// Serial output is not bounded: long output becomes many frames
	if _, err := Fragment(message, packet.KindStderr, 256); err != nil {
		t.Errorf("Serial fragmenting should not be bounded: %v", err)
	}
}
