package hf2

import (
	"context"
	"testing"
	"time"

	"github.com/umi-eng/hftwo/pkg/command"
	"github.com/umi-eng/hftwo/pkg/device"
)

func TestLoopback(t *testing.T) {
	sim := device.NewSimulator(device.DefaultSimulatorConfig())

	h, d, err := NewLoopback(DefaultHostConfig(), DefaultDeviceConfig(), sim, nil)
	if err != nil {
		t.Fatalf("Failed to create loopback: %v", err)
	}
	defer h.Close()
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	info, err := h.BinInfo(ctx)
	if err != nil {
		t.Fatalf("BinInfo error: %v", err)
	}
	if info.Mode != command.ModeBootloader {
		t.Errorf("Expected bootloader mode, got 0x%02X", info.Mode)
	}
	if info.FamilyID != 0x68ED2B88 {
		t.Errorf("Family id mismatch: 0x%08X", info.FamilyID)
	}
}

func TestLoopback_HandlerFunc(t *testing.T) {
	handler := device.HandlerFunc(func(cmd *command.Command) *command.Response {
		return command.OK(cmd, []byte("custom handler"))
	})

	h, d, err := NewLoopback(DefaultHostConfig(), DefaultDeviceConfig(), handler, nil)
	if err != nil {
		t.Fatalf("Failed to create loopback: %v", err)
	}
	defer h.Close()
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got, err := h.Info(ctx)
	if err != nil {
		t.Fatalf("Info error: %v", err)
	}
	if got != "custom handler" {
		t.Errorf("Info mismatch: %q", got)
	}
}
