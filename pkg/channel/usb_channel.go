package channel

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/gousb"
)

// USBChannel implements ReportChannel over a USB HID interrupt endpoint
// pair, the native HF2 transport.
//
// The device is matched by vendor/product id and its HID interface claimed
// directly (bypassing the OS HID driver), so reads and writes carry whole
// 64-byte reports per interrupt transfer.
type USBChannel struct {
	usbCtx *gousb.Context
	dev    *gousb.Device
	intf   *gousb.Interface
	done   func()

	epIn  *gousb.InEndpoint
	epOut *gousb.OutEndpoint

	// Connection state listener
	stateListener     ConnectionStateListener
	stateListenerLock sync.RWMutex

	// Statistics
	stats struct {
		bytesSent     atomic.Uint64
		bytesReceived atomic.Uint64
		writeErrors   atomic.Uint64
		readErrors    atomic.Uint64
	}

	closed atomic.Bool
}

// USBChannelConfig configures a USB channel
type USBChannelConfig struct {
	VendorID  uint16
	ProductID uint16
	Interface int // HID interface number, -1 to autodetect
}

// NewUSBChannel opens the first matching USB device and claims its HID
// interrupt endpoints
func NewUSBChannel(config USBChannelConfig) (*USBChannel, error) {
	usbCtx := gousb.NewContext()

	dev, err := usbCtx.OpenDeviceWithVIDPID(gousb.ID(config.VendorID), gousb.ID(config.ProductID))
	if err != nil {
		usbCtx.Close()
		return nil, fmt.Errorf("failed to open device %04x:%04x: %w", config.VendorID, config.ProductID, err)
	}
	if dev == nil {
		usbCtx.Close()
		return nil, fmt.Errorf("device %04x:%04x not found", config.VendorID, config.ProductID)
	}

	// Detach the kernel HID driver so the interface can be claimed
	if err := dev.SetAutoDetach(true); err != nil {
		dev.Close()
		usbCtx.Close()
		return nil, fmt.Errorf("failed to set auto detach: %w", err)
	}

	uc := &USBChannel{
		usbCtx: usbCtx,
		dev:    dev,
	}

	if err := uc.claimInterface(config.Interface); err != nil {
		dev.Close()
		usbCtx.Close()
		return nil, err
	}

	return uc, nil
}

// claimInterface claims the HID interface and resolves its interrupt
// endpoint pair
func (uc *USBChannel) claimInterface(number int) error {
	cfg, err := uc.dev.Config(1)
	if err != nil {
		return fmt.Errorf("failed to get configuration: %w", err)
	}

	for _, ifDesc := range cfg.Desc.Interfaces {
		if number >= 0 && ifDesc.Number != number {
			continue
		}

		setting := ifDesc.AltSettings[0]
		if number < 0 && setting.Class != gousb.ClassHID {
			continue
		}

		var inNum, outNum int
		var haveIn, haveOut bool
		for _, ep := range setting.Endpoints {
			if ep.TransferType != gousb.TransferTypeInterrupt {
				continue
			}
			if ep.Direction == gousb.EndpointDirectionIn {
				inNum = ep.Number
				haveIn = true
			} else {
				outNum = ep.Number
				haveOut = true
			}
		}

		if !haveIn || !haveOut {
			continue
		}

		intf, err := cfg.Interface(ifDesc.Number, 0)
		if err != nil {
			return fmt.Errorf("failed to claim interface %d: %w", ifDesc.Number, err)
		}

		epIn, err := intf.InEndpoint(inNum)
		if err != nil {
			intf.Close()
			return fmt.Errorf("failed to open IN endpoint: %w", err)
		}

		epOut, err := intf.OutEndpoint(outNum)
		if err != nil {
			intf.Close()
			return fmt.Errorf("failed to open OUT endpoint: %w", err)
		}

		uc.intf = intf
		uc.done = func() { cfg.Close() }
		uc.epIn = epIn
		uc.epOut = epOut
		return nil
	}

	cfg.Close()
	return fmt.Errorf("no HID interface with interrupt endpoint pair found")
}

// ReadReport implements ReportChannel.ReadReport
func (uc *USBChannel) ReadReport(ctx context.Context) ([]byte, error) {
	if uc.closed.Load() {
		return nil, fmt.Errorf("channel closed")
	}

	report := make([]byte, ReportSize)
	n, err := uc.epIn.ReadContext(ctx, report)
	if err != nil {
		uc.stats.readErrors.Add(1)
		return nil, fmt.Errorf("interrupt read failed: %w", err)
	}
	if n != ReportSize {
		uc.stats.readErrors.Add(1)
		return nil, fmt.Errorf("short interrupt transfer: %d bytes", n)
	}

	uc.stats.bytesReceived.Add(uint64(n))
	return report, nil
}

// WriteReport implements ReportChannel.WriteReport
func (uc *USBChannel) WriteReport(ctx context.Context, report []byte) error {
	if uc.closed.Load() {
		return fmt.Errorf("channel closed")
	}
	if len(report) != ReportSize {
		return ErrBadReportSize
	}

	n, err := uc.epOut.WriteContext(ctx, report)
	if err != nil {
		uc.stats.writeErrors.Add(1)
		return fmt.Errorf("interrupt write failed: %w", err)
	}
	if n != ReportSize {
		uc.stats.writeErrors.Add(1)
		return fmt.Errorf("short interrupt transfer: %d bytes", n)
	}

	uc.stats.bytesSent.Add(uint64(n))
	return nil
}

// Close implements ReportChannel.Close
func (uc *USBChannel) Close() error {
	if !uc.closed.CompareAndSwap(false, true) {
		return nil // Already closed
	}

	uc.stateListenerLock.RLock()
	listener := uc.stateListener
	uc.stateListenerLock.RUnlock()
	if listener != nil {
		listener.OnConnectionLost()
	}

	if uc.intf != nil {
		uc.intf.Close()
	}
	if uc.done != nil {
		uc.done()
	}
	if uc.dev != nil {
		uc.dev.Close()
	}
	if uc.usbCtx != nil {
		uc.usbCtx.Close()
	}

	return nil
}

// Statistics implements ReportChannel.Statistics
func (uc *USBChannel) Statistics() TransportStats {
	return TransportStats{
		BytesSent:     uc.stats.bytesSent.Load(),
		BytesReceived: uc.stats.bytesReceived.Load(),
		WriteErrors:   uc.stats.writeErrors.Load(),
		ReadErrors:    uc.stats.readErrors.Load(),
	}
}

// SetConnectionStateListener sets a listener for connection state changes
func (uc *USBChannel) SetConnectionStateListener(listener ConnectionStateListener) {
	uc.stateListenerLock.Lock()
	defer uc.stateListenerLock.Unlock()
	uc.stateListener = listener
}
