package transport

import (
	"bytes"
	"testing"

	"github.com/umi-eng/hftwo/pkg/packet"
)

func feedReports(t *testing.T, r *Reassembler, reports [][]byte) *Message {
	t.Helper()

	var result *Message
	for i, report := range reports {
		pkt, err := packet.Parse(report)
		if err != nil {
			t.Fatalf("Report %d: parse error: %v", i, err)
		}
		msg, err := r.Feed(pkt)
		if err != nil {
			t.Fatalf("Report %d: feed error: %v", i, err)
		}
		if msg != nil {
			result = msg
		}
	}
	return result
}

func TestReassembler_RoundTrip(t *testing.T) {
	sizes := []int{1, 62, 63, 64, 130, 255, 256}

	for _, size := range sizes {
		message := make([]byte, size)
		for i := range message {
			message[i] = byte(i % 251)
		}

		reports, err := Fragment(message, packet.KindCommandFinal, 256)
		if err != nil {
			t.Fatalf("Size %d: fragment error: %v", size, err)
		}

		r := NewReassemblerSize(256)
		msg := feedReports(t, r, reports)
		if msg == nil {
			t.Fatalf("Size %d: no message yielded", size)
		}
		if msg.Channel != ChannelCommand {
			t.Errorf("Size %d: expected Command channel, got %s", size, msg.Channel)
		}
		if !bytes.Equal(msg.Data, message) {
			t.Errorf("Size %d: reassembled data mismatch", size)
		}
	}
}

func TestReassembler_SingleFinalStaysIdle(t *testing.T) {
	r := NewReassembler()

	msg, err := r.Feed(packet.New(packet.KindCommandFinal, []byte{0x01, 0x02}))
	if err != nil {
		t.Fatalf("Feed error: %v", err)
	}
	if msg == nil {
		t.Fatal("Expected complete message")
	}
	if r.InProgress() {
		t.Error("Reassembler should be idle after a final fragment")
	}
}

func TestReassembler_SerialYieldsImmediately(t *testing.T) {
	r := NewReassembler()

	data := []byte{0xAA, 0xBB, 0xCC}
	msg, err := r.Feed(packet.New(packet.KindStderr, data))
	if err != nil {
		t.Fatalf("Feed error: %v", err)
	}
	if msg == nil {
		t.Fatal("Serial packet should yield a message immediately")
	}
	if msg.Channel != ChannelStderr {
		t.Errorf("Expected Stderr channel, got %s", msg.Channel)
	}
	if !bytes.Equal(msg.Data, data) {
		t.Errorf("Data mismatch")
	}
}

func TestReassembler_ZeroLengthSerialIgnored(t *testing.T) {
	r := NewReassembler()

	msg, err := r.Feed(packet.New(packet.KindStdout, nil))
	if err != nil {
		t.Fatalf("Feed error: %v", err)
	}
	if msg != nil {
		t.Error("Zero-length serial packet should yield nothing")
	}
}

func TestReassembler_SerialInterleaving(t *testing.T) {
	r := NewReassembler()

	// Start command-stream accumulation
	if _, err := r.Feed(packet.New(packet.KindCommandInner, []byte{0x01, 0x02})); err != nil {
		t.Fatalf("Inner feed error: %v", err)
	}
	if !r.InProgress() {
		t.Fatal("Should be accumulating")
	}

	// A stdout packet arrives mid-reassembly
	serial := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	msg, err := r.Feed(packet.New(packet.KindStdout, serial))
	if err != nil {
		t.Fatalf("Serial feed error: %v", err)
	}
	if msg == nil || !bytes.Equal(msg.Data, serial) {
		t.Fatal("Serial packet should yield its payload immediately")
	}

	// Command-stream accumulation is unaffected
	if !r.InProgress() {
		t.Error("Serial packet disturbed command-stream accumulation")
	}

	msg, err = r.Feed(packet.New(packet.KindCommandFinal, []byte{0x03}))
	if err != nil {
		t.Fatalf("Final feed error: %v", err)
	}
	if msg == nil {
		t.Fatal("Expected complete command message")
	}
	if !bytes.Equal(msg.Data, []byte{0x01, 0x02, 0x03}) {
		t.Errorf("Expected uninterleaved command bytes, got %v", msg.Data)
	}
}

func TestReassembler_Overflow(t *testing.T) {
	r := NewReassemblerSize(100)

	chunk := make([]byte, 63)

	if _, err := r.Feed(packet.New(packet.KindCommandInner, chunk)); err != nil {
		t.Fatalf("First chunk error: %v", err)
	}

	// Second chunk exceeds the 100-byte bound
	if _, err := r.Feed(packet.New(packet.KindCommandInner, chunk)); err != ErrMessageTooLarge {
		t.Fatalf("Expected ErrMessageTooLarge, got %v", err)
	}

	if r.InProgress() {
		t.Error("Reassembler should reset after overflow")
	}

	// The next well-formed message is processed normally
	msg, err := r.Feed(packet.New(packet.KindCommandFinal, []byte{0x42}))
	if err != nil {
		t.Fatalf("Post-overflow feed error: %v", err)
	}
	if msg == nil || !bytes.Equal(msg.Data, []byte{0x42}) {
		t.Error("Reassembler did not recover after overflow")
	}
}
