// VirtIO over PCI driver (legacy, 0.9.5-style transport only)
package virtio

import (
	"errors"

	"github.com/rugo-os/rugo/internal/reg"
	"github.com/rugo-os/rugo/soc/intel/pci"
)

const (
	deviceMin = 0x1000
	deviceMax = 0x103f
)

const pageSize = 4096

// VirtIO legacy register offsets, PCI I/O BAR relative.
const (
	legacyDeviceFeatures = 0x00
	legacyDriverFeatures = 0x04
	legacyQueueAddress   = 0x08 // QUEUE_PFN
	legacyQueueSize      = 0x0c
	legacyQueueSelect    = 0x0e
	legacyQueueNotify    = 0x10
	legacyDeviceStatus   = 0x12
	legacyISRStatus      = 0x13
	legacyDeviceConfig   = 0x14
)

// LegacyPCI represents a legacy VirtIO over PCI device. Only the I/O-port
// BAR0 transport is supported; there is no MSI-X or modern capability-based
// transport here - every device is driven by polling.
type LegacyPCI struct {
	// Device represents the probed PCI device.
	Device *pci.Device

	// I/O port space base
	config   uint16
	features uint64
}

func (io *LegacyPCI) negotiate(driverFeatures uint64) {
	io.features = negotiate(io.DeviceFeatures(), driverFeatures)
	io.SetDriverFeatures(io.features)
}

// Init initializes a legacy VirtIO over PCI device instance: reset, then
// ACK -> DRIVER -> negotiate features, per the legacy status protocol.
// DRIVER_OK is set separately by SetReady once queues are configured.
func (io *LegacyPCI) Init(features uint64) (err error) {
	if io.Device == nil {
		return errors.New("invalid VirtIO instance")
	}

	if rev := io.Device.Read(0, pci.RevisionID); rev&0xff != 0 {
		return errors.New("not a transitional device")
	}

	if io.Device.Device < deviceMin || io.Device.Device > deviceMax {
		return errors.New("not a transitional device")
	}

	bar0 := io.Device.BaseAddress(0)

	if bar0&1 != 1 {
		return errors.New("unexpected PCI BAR type, expected I/O port")
	}

	io.config = uint16(bar0) & 0xfff0

	// reset
	io.setStatus(0)

	// initialize driver
	s := io.Status()
	s |= 1 << Acknowledge
	s |= 1 << Driver
	io.setStatus(s)

	io.negotiate(features)

	return
}

// Config returns the device-specific configuration space, which begins
// immediately after the ISR status register on a legacy (non-MSI-X)
// transport.
func (io *LegacyPCI) Config(size int) (config []byte) {
	config = make([]byte, size)

	for i := 0; i < size; i++ {
		config[i] = reg.In8(io.config + uint16(legacyDeviceConfig+i))
	}

	return
}

// DeviceID returns the VirtIO subsystem device ID.
func (io *LegacyPCI) DeviceID() uint32 {
	return uint32(io.Device.Device - 0x1000 + 1)
}

// DeviceFeatures returns the device feature bits.
func (io *LegacyPCI) DeviceFeatures() (features uint64) {
	return uint64(reg.In32(io.config + legacyDeviceFeatures))
}

// DriverFeatures returns the driver feature bits.
func (io *LegacyPCI) DriverFeatures() (features uint64) {
	return uint64(reg.In32(io.config + legacyDriverFeatures))
}

// SetDriverFeatures sets the driver feature bits (only the first 32 feature
// bits are accessible through the legacy interface).
func (io *LegacyPCI) SetDriverFeatures(features uint64) {
	reg.Out32(io.config+legacyDriverFeatures, uint32(features))
}

// NegotiatedFeatures returns the set of negotiated feature bits.
func (io *LegacyPCI) NegotiatedFeatures() (features uint64) {
	return io.features
}

// QueueReady returns whether a queue's address is currently programmed.
func (io *LegacyPCI) QueueReady(index int) (ready bool) {
	reg.Out16(io.config+legacyQueueSelect, uint16(index))
	return reg.In32(io.config+legacyQueueAddress) != 0
}

// MaxQueueSize returns the maximum virtual queue size the device reports
// for the selected queue. SetQueue fails if the queue it was built with
// does not fit this bound.
func (io *LegacyPCI) MaxQueueSize(index int) int {
	reg.Out16(io.config+legacyQueueSelect, uint16(index))
	return int(reg.In16(io.config + legacyQueueSize))
}

// Status returns the device status register.
func (io *LegacyPCI) Status() uint32 {
	return uint32(reg.In8(io.config + legacyDeviceStatus))
}

func (io *LegacyPCI) setStatus(s uint32) {
	reg.Out8(io.config+legacyDeviceStatus, uint8(s))
}

// SetQueue publishes the indexed virtual queue's physical page frame number,
// failing if the queue is larger than the device's reported maximum.
func (io *LegacyPCI) SetQueue(index int, queue *VirtualQueue) error {
	if max := io.MaxQueueSize(index); queue.Size() > max {
		return errors.New("virtual queue size exceeds device maximum")
	}

	desc, _, _ := queue.Address()
	reg.Out16(io.config+legacyQueueSelect, uint16(index))
	reg.Out32(io.config+legacyQueueAddress, uint32(desc/pageSize))

	return nil
}

// SetReady indicates that the driver is set up and ready to drive the
// device (DRIVER_OK).
func (io *LegacyPCI) SetReady() {
	s := io.Status()
	s |= 1 << DriverOk
	io.setStatus(s)
}

// QueueNotify notifies the device that a queue has new buffers available.
func (io *LegacyPCI) QueueNotify(index int) {
	reg.Out16(io.config+legacyQueueNotify, uint16(index))
}

// InterruptStatus reads and acknowledges the ISR status register; a set bit
// 0 means a queue has used buffers pending.
func (io *LegacyPCI) InterruptStatus() uint8 {
	return reg.In8(io.config + legacyISRStatus)
}
