package command

import "testing"

func TestPageChecksum_KnownValue(t *testing.T) {
	// CRC-16/CCITT-FALSE check value
	if got := PageChecksum([]byte("123456789")); got != 0x29B1 {
		t.Errorf("Expected 0x29B1, got 0x%04X", got)
	}
}

func TestPageChecksum_Empty(t *testing.T) {
	if got := PageChecksum(nil); got != 0xFFFF {
		t.Errorf("Expected initial value 0xFFFF for empty page, got 0x%04X", got)
	}
}
