package amd64

import "unsafe"

// Global Descriptor Table layout (§4.1). Index 0 is the mandatory null
// descriptor; 1-2 are the ring 0 code/data pair; 3-4 are the ring 3
// data/code pair with DPL=3 (data before code, so that selector|3 lands on
// CS=0x23 and SS=0x1B, the values the hand-assembled user blobs expect);
// 5-6 form the 16-byte TSS descriptor.
const (
	nullSelector = iota * 8
	KernelCodeSelector
	KernelDataSelector
	UserDataSelector
	UserCodeSelector
	tssSelector
)

// segment descriptor access/flags bits.
const (
	segPresent  = 1 << 7
	segDPL3     = 3 << 5
	segCodeData = 1 << 4
	segCode     = 1 << 3
	segWritable = 1 << 1 // data: writable, code: readable
	segLong     = 1 << 1 // granularity nibble, bit 1: long mode
	segTSSType  = 0x9    // available 64-bit TSS
)

func gdtEntry(access byte, longMode bool) uint64 {
	var flags uint64
	if longMode {
		flags = segLong
	}
	return uint64(access)<<40 | flags<<52
}

// TaskStateSegment is the 64-bit TSS (§4.1): only RSP0, the privilege-level
// stack pointer loaded on a ring 3 -> ring 0 transition, is used.
type TaskStateSegment struct {
	reserved0 uint32
	RSP0      uint64
	RSP1      uint64
	RSP2      uint64
	reserved1 uint64
	IST       [7]uint64
	reserved2 uint64
	reserved3 uint16
	IOMapBase uint16
}

const sizeofTSS = unsafe.Sizeof(TaskStateSegment{})

// gdt holds the five flat descriptors (slots 0-4) plus the two 8-byte halves
// the TSS's 16-byte descriptor occupies (slots 5 and 6); slot 7 stays zero.
type gdt struct {
	entries [8]uint64
	tss     TaskStateSegment
}

var table gdt

// DtPtr is the operand LGDT/LIDT load: a 16-bit limit followed by a 64-bit
// linear base address.
type DtPtr struct {
	Limit uint16
	Base  uint64
}

var gdtPtr DtPtr

// InitGDT builds and loads the GDT and TSS, then reloads the segment
// registers and the task register. kernelStackTop is the address RSP is set
// to on any ring 3 -> ring 0 transition (§4.1, §4.6).
func InitGDT(kernelStackTop uint64) {
	table.entries[0] = 0
	table.entries[1] = gdtEntry(segPresent|segCodeData|segCode|segWritable, true)
	table.entries[2] = gdtEntry(segPresent|segCodeData|segWritable, false)
	table.entries[3] = gdtEntry(segPresent|segDPL3|segCodeData|segWritable, false)
	table.entries[4] = gdtEntry(segPresent|segDPL3|segCodeData|segCode|segWritable, true)

	table.tss = TaskStateSegment{RSP0: kernelStackTop, IOMapBase: uint16(sizeofTSS)}

	base := uint64(uintptr(unsafe.Pointer(&table.tss)))
	limit := uint64(sizeofTSS - 1)

	table.entries[5] = limit&0xffff |
		(base&0xffffff)<<16 |
		uint64(segPresent|segTSSType)<<40 |
		(limit>>16&0xf)<<48 |
		((base>>24)&0xff)<<56
	table.entries[6] = base >> 32

	gdtPtr = DtPtr{
		Limit: uint16(unsafe.Sizeof(table.entries) - 1),
		Base:  uint64(uintptr(unsafe.Pointer(&table.entries))),
	}

	lgdt(&gdtPtr)
	reloadSegments(KernelCodeSelector, KernelDataSelector)
	ltr(tssSelector)
}

// SetKernelStack updates RSP0 in the live TSS, called whenever the scheduler
// switches to a task so the next ring 3 fault or syscall lands on that
// task's own kernel stack.
func SetKernelStack(rsp0 uint64) {
	table.tss.RSP0 = rsp0
}

// defined in gdt.s
func lgdt(ptr *DtPtr)
func ltr(selector uint16)
func reloadSegments(code, data uint16)
