// Package virtio implements a driver for Virtual I/O devices (VirtIO)
// following the legacy (pre-1.0, "0.9.5 compatibility mode") PCI transport:
// Virtual I/O Device (VIRTIO) - Version 1.2, §7 Legacy Interface.
package virtio

import (
	"github.com/rugo-os/rugo/bits"
)

// Reserved Feature bits
const (
	Packed           = 34
	NotificationData = 38
)

// Device Status bits
const (
	Acknowledge      = 0
	Driver           = 1
	DriverOk         = 2
	FeaturesOk       = 3
	DeviceNeedsReset = 6
	Failed           = 7
)

const (
	// bits 0 to 23, and 50 to 63
	deviceSpecificFeatureMask = 0xfffc000000ffffff
	// bits 24 to 49
	deviceReservedFeatureMask = 0x0003ffffff000000
)

// VirtIO represents a legacy-transport VirtIO device.
type VirtIO interface {
	// Init initializes a VirtIO device instance.
	Init(features uint64) (err error)
	// Config returns the device configuration layout.
	Config(size int) []byte
	// DeviceID returns the VirtIO subsystem device ID.
	DeviceID() uint32
	// DeviceFeatures returns the device feature bits.
	DeviceFeatures() (features uint64)
	// DriverFeatures returns the driver feature bits.
	DriverFeatures() (features uint64)
	// SetDriverFeatures sets the driver feature bits.
	SetDriverFeatures(features uint64)
	// NegotiatedFeatures returns the set of negotiated feature bits.
	NegotiatedFeatures() (features uint64)
	// QueueReady returns whether a queue is ready for use.
	QueueReady(index int) (ready bool)
	// MaxQueueSize returns the maximum virtual queue size.
	MaxQueueSize(index int) int
	// Status returns the device status.
	Status() uint32
	// SetQueue registers the indexed virtual queue for device access,
	// failing if the queue exceeds the device's reported maximum size.
	SetQueue(index int, queue *VirtualQueue) error
	// SetReady indicates that the driver is set up and ready to drive the
	// device.
	SetReady()
	// QueueNotify notifies the device that a queue can be processed.
	QueueNotify(index int)
	// InterruptStatus reads and acknowledges the ISR status register.
	InterruptStatus() uint8
}

// negotiate clears unsupported reserved features (packed rings,
// notification data - both modern-transport-only), drops every bit outside
// the reserved mask (so no device-type feature is ever accepted), and keeps
// only those remaining bits the driver also requests.
func negotiate(deviceFeatures, driverFeatures uint64) (features uint64) {
	features = deviceFeatures

	bits.Clear64(&features, Packed)
	bits.Clear64(&features, NotificationData)

	features &= deviceReservedFeatureMask
	features &= driverFeatures

	return
}
