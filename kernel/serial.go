package kernel

import (
	"github.com/rugo-os/rugo/amd64"
	"github.com/rugo-os/rugo/internal/reg"
)

// COM1 UART registers, 16550-compatible, at the standard ISA base (treated
// as a known external constant per §1's "serial port bit-level init" out of
// scope note - only the line-ready poll and byte transmit are implemented
// here).
const (
	com1Base = 0x3f8

	uartData  = com1Base + 0
	uartIER   = com1Base + 1
	uartFCR   = com1Base + 2
	uartLCR   = com1Base + 3
	uartMCR   = com1Base + 4
	uartLSR   = com1Base + 5
	uartDivLo = com1Base + 0
	uartDivHi = com1Base + 1

	lsrTHREmpty = 1 << 5
)

// qemuExitPort is the isa-debug-exit device's I/O port: a single byte write
// terminates the VM, the value written becoming (code<<1)|1 on the host
// side of QEMU's convention. The kernel only ever cares that it stops.
const qemuExitPort = 0xf4

// InitSerial programs COM1 for 115200 8N1, polled (no interrupts): divisor
// latch 1, 8 data bits/no parity/1 stop bit, FIFO enabled, DTR/RTS/OUT2 set
// so the host side sees the port as up.
func InitSerial() {
	reg.Out8(uartIER, 0x00)
	reg.Out8(uartLCR, 0x80) // enable divisor latch
	reg.Out8(uartDivLo, 0x01)
	reg.Out8(uartDivHi, 0x00)
	reg.Out8(uartLCR, 0x03) // 8N1, latch disabled
	reg.Out8(uartFCR, 0xc7)
	reg.Out8(uartMCR, 0x0b)
}

func serialWriteByte(b byte) {
	for reg.In8(uartLSR)&lsrTHREmpty == 0 {
	}
	reg.Out8(uartData, b)
}

// SerialWrite emits raw bytes on COM1, polling for THR-empty before each.
func SerialWrite(b []byte) {
	for _, c := range b {
		serialWriteByte(c)
	}
}

// Diag emits a fixed ASCII diagnostic token followed by a newline (§6).
func Diag(token string) {
	SerialWrite([]byte(token))
	serialWriteByte('\n')
}

func writeHex(val uint64) {
	SerialWrite([]byte("0x"))

	const digits = "0123456789abcdef"
	started := false
	for shift := 60; shift >= 0; shift -= 4 {
		nibble := (val >> uint(shift)) & 0xf
		if nibble != 0 || started || shift == 0 {
			started = true
			serialWriteByte(digits[nibble])
		}
	}
}

// DiagHex emits a diagnostic token with a "0x"-prefixed lowercase hex value
// appended, matching the `err=0x...` family of tokens.
func DiagHex(prefix string, val uint64) {
	SerialWrite([]byte(prefix))
	writeHex(val)
	serialWriteByte('\n')
}

// DiagHex2 emits a single diagnostic line carrying two hex fields, matching
// the `PF: addr=0x... err=0x...` token (§6).
func DiagHex2(prefix1 string, val1 uint64, prefix2 string, val2 uint64) {
	SerialWrite([]byte(prefix1))
	writeHex(val1)
	SerialWrite([]byte(prefix2))
	writeHex(val2)
	serialWriteByte('\n')
}

// ExitVM writes code to the isa-debug-exit port, terminating the VM (§6).
func ExitVM(code uint8) {
	reg.Out8(qemuExitPort, code)
}

// Fatal emits a diagnostic and terminates the VM; used for every
// non-recoverable kernel error (§7): kernel-mode divide-by-zero, double
// fault, ring-0 GPF/PF, scheduler deadlock, VirtIO init failure, boot-format
// mismatch. It never returns.
func Fatal(token string) {
	Diag(token)
	ExitVM(0xff)
	for {
		amd64.Halt()
	}
}
