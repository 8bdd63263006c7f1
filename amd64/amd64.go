// Package amd64 provides support for AMD64 architecture specific operations:
// descriptor tables, the common trap stub, page table walks and the user
// pointer validation built on them.
//
// This package targets a freestanding build running under QEMU's microvm
// machine type, booted by a Limine-compatible bootloader.
package amd64

import (
	"runtime"

	"github.com/rugo-os/rugo/internal/reg"
)

// Keyboard controller port, used for the 8042 CPU reset pulse.
const KBD_PORT = 0x64

// CPU represents the single bootstrap processor this kernel runs on; there
// is no SMP support (§1, single-CPU scheduling).
type CPU struct {
	// TimerMultiplier is the PIT-to-nanosecond conversion factor; nothing
	// in this package sets it.
	TimerMultiplier float64
}

// defined in amd64.s
func exit(int32)
func halt()

// Init performs no setup: the standard Go runtime this package builds
// against has no exit or idle hook to wire. GDT, IDT and the PIC/PIT are
// brought up separately by the boot sequence, since their ordering is
// scenario-dependent.
func (cpu *CPU) Init() {
}

// Name returns the architecture name the Go runtime reports.
func (cpu *CPU) Name() string {
	return runtime.GOARCH
}

// Halt suspends execution until an interrupt is received.
func (cpu *CPU) Halt() {
	halt()
}

// Reset resets the CPU via an 8042 keyboard controller pulse.
func (cpu *CPU) Reset() {
	reg.Out8(KBD_PORT, 0xfe)
}

// Halt suspends execution until an interrupt is received. Unlike
// (*CPU).Halt, this is callable before a CPU value exists - the boot
// sequence's fatal paths need it before Init has run.
func Halt() {
	halt()
}
