package kernel

import "github.com/rugo-os/rugo/internal/reg"

// 8259 Programmable Interrupt Controller ports and commands (treated as a
// known external constant per §1 - "the PIC/PIT programming sequence" is
// out of scope beyond its role as a known fixed sequence the boot path
// runs).
const (
	pic1Cmd  = 0x20
	pic1Data = 0x21
	pic2Cmd  = 0xa0
	pic2Data = 0xa1

	picEOI = 0x20

	icw1Init = 0x11
	icw4_8086 = 0x01
)

// picOffset is the vector the master PIC's IRQ0 (the timer) is remapped to;
// it must be VectorTimer (32) so the IDT gate installed there fires on
// every timer tick.
const picOffset = 32

// InitPIC remaps the master/slave 8259 pair so IRQ0-15 land on vectors
// 32-47, clear of the CPU's own exception vectors, then masks every line
// except IRQ0 (the timer) - this kernel drives no other interrupt source.
func InitPIC() {
	reg.Out8(pic1Cmd, icw1Init)
	reg.Out8(pic2Cmd, icw1Init)

	reg.Out8(pic1Data, picOffset)
	reg.Out8(pic2Data, picOffset+8)

	reg.Out8(pic1Data, 4) // slave attached to master IRQ2
	reg.Out8(pic2Data, 2)

	reg.Out8(pic1Data, icw4_8086)
	reg.Out8(pic2Data, icw4_8086)

	reg.Out8(pic1Data, 0xfe) // unmask IRQ0 only
	reg.Out8(pic2Data, 0xff)
}

// AckPIC sends end-of-interrupt to the master PIC, acknowledging IRQ0.
func AckPIC() {
	reg.Out8(pic1Cmd, picEOI)
}
