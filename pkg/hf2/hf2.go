// Package hf2 is the top-level convenience surface: one-call constructors
// that wire a transport to a host or device engine.
//
// Typical host-side use:
//
//	h, err := hf2.OpenUSB(hf2.USBConfig{VendorID: 0x239A, ProductID: 0x0018}, nil)
//	if err != nil { ... }
//	defer h.Close()
//	info, err := h.BinInfo(ctx)
//
// Lower-level control (custom transports, device-role engines, raw
// Issue/Execute) lives in the host, device and channel packages.
package hf2

import (
	"crypto/tls"
	"time"

	"github.com/umi-eng/hftwo/pkg/channel"
	"github.com/umi-eng/hftwo/pkg/device"
	"github.com/umi-eng/hftwo/pkg/host"
	"github.com/umi-eng/hftwo/pkg/internal/logger"
)

// Re-exported config types
type (
	HostConfig   = host.Config
	DeviceConfig = device.Config
)

// DefaultHostConfig returns the default host engine config
func DefaultHostConfig() HostConfig {
	return host.DefaultConfig()
}

// DefaultDeviceConfig returns the default device engine config
func DefaultDeviceConfig() DeviceConfig {
	return device.DefaultConfig()
}

// TCPConfig configures a TCP report bridge
type TCPConfig struct {
	Address        string        // "host:port"
	IsServer       bool          // true = listen, false = connect
	ReconnectDelay time.Duration // Client reconnect delay, 0 for default
}

// USBConfig selects a USB HID device
type USBConfig struct {
	VendorID  uint16
	ProductID uint16
	Interface int // HID interface number, -1 to autodetect
}

// QUICConfig configures a QUIC report bridge
type QUICConfig struct {
	Address        string
	IsServer       bool
	ReconnectDelay time.Duration
	TLSConfig      *tls.Config // nil generates a self-signed certificate
}

// NewHost creates a host engine over any report transport
func NewHost(config HostConfig, report channel.ReportChannel, log logger.Logger) (*host.Host, error) {
	return host.New(config, report, log)
}

// NewDevice creates a device engine over any report transport
func NewDevice(config DeviceConfig, report channel.ReportChannel, handler device.Handler, log logger.Logger) (*device.Device, error) {
	return device.New(config, report, handler, log)
}

// OpenUSB opens a USB HID device and returns a host engine driving it
func OpenUSB(usb USBConfig, log logger.Logger) (*host.Host, error) {
	report, err := channel.NewUSBChannel(channel.USBChannelConfig{
		VendorID:  usb.VendorID,
		ProductID: usb.ProductID,
		Interface: usb.Interface,
	})
	if err != nil {
		return nil, err
	}

	h, err := host.New(host.DefaultConfig(), report, log)
	if err != nil {
		report.Close()
		return nil, err
	}
	return h, nil
}

// DialTCP connects to a TCP report bridge and returns a host engine.
// Used to drive a device exposed over the network instead of local USB.
func DialTCP(tcp TCPConfig, config HostConfig, log logger.Logger) (*host.Host, error) {
	report, err := channel.NewTCPChannel(channel.TCPChannelConfig{
		Address:        tcp.Address,
		IsServer:       tcp.IsServer,
		ReconnectDelay: tcp.ReconnectDelay,
	})
	if err != nil {
		return nil, err
	}

	h, err := host.New(config, report, log)
	if err != nil {
		report.Close()
		return nil, err
	}
	return h, nil
}

// DialQUIC connects to a QUIC report bridge and returns a host engine
func DialQUIC(q QUICConfig, config HostConfig, log logger.Logger) (*host.Host, error) {
	report, err := channel.NewQUICChannel(channel.QUICChannelConfig{
		Address:        q.Address,
		IsServer:       q.IsServer,
		ReconnectDelay: q.ReconnectDelay,
		TLSConfig:      q.TLSConfig,
	})
	if err != nil {
		return nil, err
	}

	h, err := host.New(config, report, log)
	if err != nil {
		report.Close()
		return nil, err
	}
	return h, nil
}

// ServeTCP exposes a device handler on a TCP report bridge
func ServeTCP(tcp TCPConfig, config DeviceConfig, handler device.Handler, log logger.Logger) (*device.Device, error) {
	report, err := channel.NewTCPChannel(channel.TCPChannelConfig{
		Address:        tcp.Address,
		IsServer:       tcp.IsServer,
		ReconnectDelay: tcp.ReconnectDelay,
	})
	if err != nil {
		return nil, err
	}

	d, err := device.New(config, report, handler, log)
	if err != nil {
		report.Close()
		return nil, err
	}
	return d, nil
}

// NewLoopback wires a host and a device handler back to back in memory.
// Useful for tests and for exercising flashing logic without hardware.
func NewLoopback(hostConfig HostConfig, deviceConfig DeviceConfig, handler device.Handler, log logger.Logger) (*host.Host, *device.Device, error) {
	hostEnd, deviceEnd := channel.NewPipe()

	d, err := device.New(deviceConfig, deviceEnd, handler, log)
	if err != nil {
		return nil, nil, err
	}

	h, err := host.New(hostConfig, hostEnd, log)
	if err != nil {
		d.Close()
		return nil, nil, err
	}
	return h, d, nil
}
