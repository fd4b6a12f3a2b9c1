package packet

import (
	"bytes"
	"errors"
	"testing"
)

// Reports taken from the HF2 protocol documentation
var specReports = [][]byte{
	{0x83, 0x01, 0x02, 0x03, 0xAB, 0xFF, 0xFF, 0xFF},
	{0x85, 0x04, 0x05, 0x06, 0x07, 0x08},
	{0x80, 0xDE, 0x42, 0x42, 0x42, 0x42, 0xFF, 0xFF},
	{
		0xD0, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F, 0x10, 0x11, 0x12,
		0x13, 0x14, 0x15, 0x16, 0x17, 0xFF, 0xFF, 0xFF,
	},
}

func TestDecodeHeader_Kinds(t *testing.T) {
	cases := []struct {
		header uint8
		kind   Kind
	}{
		{0x00, KindCommandInner},
		{0x40, KindCommandFinal},
		{0x80, KindStdout},
		{0xC0, KindStderr},
	}

	for _, c := range cases {
		kind, length := DecodeHeader(c.header)
		if kind != c.kind {
			t.Errorf("Header 0x%02X: expected kind %s, got %s", c.header, c.kind, kind)
		}
		if length != 0 {
			t.Errorf("Header 0x%02X: expected length 0, got %d", c.header, length)
		}
	}
}

func TestParse_SpecReports(t *testing.T) {
	cases := []struct {
		report []byte
		kind   Kind
		data   []byte
	}{
		{specReports[0], KindStdout, []byte{0x01, 0x02, 0x03}},
		{specReports[1], KindStdout, []byte{0x04, 0x05, 0x06, 0x07, 0x08}},
		{specReports[2], KindStdout, []byte{}},
		{specReports[3], KindStderr, []byte{
			0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F, 0x10, 0x11, 0x12,
			0x13, 0x14, 0x15, 0x16, 0x17, 0xFF,
		}},
	}

	for i, c := range cases {
		pkt, err := Parse(c.report)
		if err != nil {
			t.Fatalf("Report %d: parse error: %v", i, err)
		}
		if pkt.Kind != c.kind {
			t.Errorf("Report %d: expected kind %s, got %s", i, c.kind, pkt.Kind)
		}
		if !bytes.Equal(pkt.Data, c.data) {
			t.Errorf("Report %d: data mismatch: expected %v, got %v", i, c.data, pkt.Data)
		}
	}
}

func TestEncodeHeader_Overflow(t *testing.T) {
	if _, err := EncodeHeader(KindCommandFinal, MaxDataSize); err != nil {
		t.Errorf("Length %d should be valid: %v", MaxDataSize, err)
	}

	if _, err := EncodeHeader(KindCommandFinal, MaxDataSize+1); err != ErrLengthOverflow {
		t.Errorf("Expected ErrLengthOverflow, got %v", err)
	}
}

func TestParse_ShortReport(t *testing.T) {
	// Header declares 5 payload bytes but only 2 are present
	_, err := Parse([]byte{0x45, 0x01, 0x02})
	if err != ErrShortReport {
		t.Errorf("Expected ErrShortReport, got %v", err)
	}
	// A short report is one of the malformed-header cases
	if !errors.Is(err, ErrMalformedHeader) {
		t.Errorf("ErrShortReport should match ErrMalformedHeader, got %v", err)
	}

	if _, err := Parse(nil); err != ErrMalformedHeader {
		t.Errorf("Expected ErrMalformedHeader for empty report, got %v", err)
	}
}

func TestParse_ZeroLengthInner(t *testing.T) {
	// An inner fragment carrying no payload is malformed; a zero-length
	// Final and zero-length serial packets are fine
	if _, err := Parse([]byte{0x00, 0xFF, 0xFF}); err != ErrMalformedHeader {
		t.Errorf("Expected ErrMalformedHeader for empty inner fragment, got %v", err)
	}

	pkt, err := Parse([]byte{0x40})
	if err != nil {
		t.Fatalf("Zero-length Final should parse: %v", err)
	}
	if len(pkt.Data) != 0 {
		t.Errorf("Expected empty payload, got %d bytes", len(pkt.Data))
	}
}

func TestSerialize_RoundTrip(t *testing.T) {
	data := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	pkt := New(KindCommandFinal, data)

	report, err := pkt.Serialize()
	if err != nil {
		t.Fatalf("Serialize error: %v", err)
	}

	if len(report) != ReportSize {
		t.Fatalf("Expected %d byte report, got %d", ReportSize, len(report))
	}

	parsed, err := Parse(report)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if parsed.Kind != KindCommandFinal {
		t.Errorf("Expected kind %s, got %s", KindCommandFinal, parsed.Kind)
	}
	if !bytes.Equal(parsed.Data, data) {
		t.Errorf("Data mismatch: expected %v, got %v", data, parsed.Data)
	}
}

func TestSerialize_Overflow(t *testing.T) {
	pkt := New(KindStdout, make([]byte, MaxDataSize+1))
	if _, err := pkt.Serialize(); err != ErrLengthOverflow {
		t.Errorf("Expected ErrLengthOverflow, got %v", err)
	}
}
