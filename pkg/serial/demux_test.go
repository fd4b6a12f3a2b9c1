package serial

import (
	"bytes"
	"testing"

	"github.com/umi-eng/hftwo/pkg/transport"
)

func TestDemux_RoutesByChannel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	d := NewDemux(&stdout, &stderr)

	if err := d.Route(&transport.Message{Channel: transport.ChannelStdout, Data: []byte("out")}); err != nil {
		t.Fatalf("Route error: %v", err)
	}
	if err := d.Route(&transport.Message{Channel: transport.ChannelStderr, Data: []byte("err")}); err != nil {
		t.Fatalf("Route error: %v", err)
	}

	if stdout.String() != "out" {
		t.Errorf("Stdout mismatch: %q", stdout.String())
	}
	if stderr.String() != "err" {
		t.Errorf("Stderr mismatch: %q", stderr.String())
	}
}

func TestDemux_OrderPreserved(t *testing.T) {
	var stdout bytes.Buffer
	d := NewDemux(&stdout, nil)

	chunks := []string{"first ", "second ", "third"}
	for _, c := range chunks {
		if err := d.Route(&transport.Message{Channel: transport.ChannelStdout, Data: []byte(c)}); err != nil {
			t.Fatalf("Route error: %v", err)
		}
	}

	if stdout.String() != "first second third" {
		t.Errorf("Order not preserved: %q", stdout.String())
	}
}

func TestDemux_RejectsCommandMessages(t *testing.T) {
	d := NewDemux(nil, nil)

	if err := d.Route(&transport.Message{Channel: transport.ChannelCommand}); err != ErrNotSerial {
		t.Errorf("Expected ErrNotSerial, got %v", err)
	}
}

func TestDemux_NilSinkDiscards(t *testing.T) {
	d := NewDemux(nil, nil)

	if err := d.Route(&transport.Message{Channel: transport.ChannelStderr, Data: []byte("lost")}); err != nil {
		t.Errorf("Nil sink should discard silently: %v", err)
	}
}
