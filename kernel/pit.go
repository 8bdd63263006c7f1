package kernel

import "github.com/rugo-os/rugo/internal/reg"

// 8253/8254 Programmable Interval Timer ports and the base oscillator
// frequency, treated as known external constants (§1).
const (
	pitChannel0 = 0x40
	pitCommand  = 0x43

	pitInputHz = 1193182

	// PITHz is the timer's programmed tick rate (§4.6, §2 TrapDispatch).
	PITHz = 100
)

// InitPIT programs channel 0 for periodic (mode 3) square-wave output at
// PITHz, the source of every timer tick vector 32 delivers.
func InitPIT() {
	divisor := uint16(pitInputHz / PITHz)

	reg.Out8(pitCommand, 0x36) // channel 0, lo/hi byte, mode 3, binary
	reg.Out8(pitChannel0, uint8(divisor))
	reg.Out8(pitChannel0, uint8(divisor>>8))
}
