package amd64

import (
	"unsafe"

	"github.com/rugo-os/rugo/internal/reg"
)

// Page levels and indices, AMD64 Architecture Programmer's Manual, Figure
// 5-17 (4-Kbyte Page Translation, Long Mode 4-Level Paging).
const (
	PML4 = 4
	PDPT = 3
	PD   = 2
	PT   = 1

	indexPML4 = 39
	indexPDPT = 30
	indexPD   = 21
	indexPT   = 12
	indexMask = 0x1ff
	addrMask  = 0x000ffffffffff000

	pageSize    = 4096
	pageOffMask = pageSize - 1
)

// Page table entry flags.
const (
	ptePresent uint64 = 1 << 0
	pteWrite   uint64 = 1 << 1
	pteUser    uint64 = 1 << 2
	ptePS      uint64 = 1 << 7 // large page (PDPT/PD levels)
)

// Exported PTE flag aliases, for callers outside this package that build
// page table entries directly (the shared-memory mapping operation, §4.8
// syscall 7).
const (
	PTEPresent = ptePresent
	PTEWrite   = pteWrite
	PTEUser    = pteUser
)

// userSpaceLimit is the canonical boundary between user and kernel halves of
// the address space (§4.4): any pointer at or above it is rejected without
// a page walk.
const userSpaceLimit = 0x0000_8000_0000_0000

// hhdmOffset is added to a physical address to reach its identity mapping in
// the higher half, as published by the bootloader's HHDM response.
var hhdmOffset uint64

// SetHHDMOffset records the bootloader-provided higher-half direct map
// offset; must be called once during boot before any FindPTE/userRangeOK
// call.
func SetHHDMOffset(off uint64) {
	hhdmOffset = off
}

// KV2P translates a kernel-virtual address, loaded at kvirt and occupying
// physical memory starting at kphys, to its physical address.
func KV2P(va, kvirt, kphys uint64) uint64 {
	return va - kvirt + kphys
}

// FindPTE walks the active PML4 (read from CR3) for addr and returns the
// leaf page table entry's address, its level, and the entry's page-aligned
// target address. A non-present entry is reported at the level it was found
// missing, with page set to 0.
func FindPTE(addr uint64) (pte uint64, level int, page uint64) {
	indices := [4]uint64{
		(addr >> indexPML4) & indexMask,
		(addr >> indexPDPT) & indexMask,
		(addr >> indexPD) & indexMask,
		(addr >> indexPT) & indexMask,
	}

	tableAddr := (read_cr3() & addrMask) + hhdmOffset

	for i := range indices {
		level = 4 - i
		off := tableAddr + indices[i]*8
		entry := reg.Read64(off)

		if entry&ptePresent == 0 {
			return off, level, 0
		}

		if (level == PDPT || level == PD) && entry&ptePS != 0 {
			return off, level, entry & addrMask
		}

		if level == PT {
			return off, PT, entry & addrMask
		}

		tableAddr = (entry & addrMask) + hhdmOffset
	}

	return 0, 0, 0
}

// userPageOK walks addr and reports whether the leaf entry backing it is
// present and carries the User bit (§4.4). A missing intermediate table, a
// supervisor-only page, or any address at or above userSpaceLimit fails the
// check - this is the sole gate a user pointer must pass before the kernel
// dereferences it.
func userPageOK(addr uint64, write bool) bool {
	if addr >= userSpaceLimit {
		return false
	}

	pte, level, _ := FindPTE(addr)
	if level == 0 {
		return false
	}

	entry := reg.Read64(pte)
	if entry&ptePresent == 0 || entry&pteUser == 0 {
		return false
	}
	return !write || entry&pteWrite != 0
}

// userRangeOK reports whether every page touched by [addr, addr+length) is
// present and user-accessible, and Writable too when write is requested
// (§4.4's user_pages_ok). An overflowing range, or one reaching into kernel
// space, is rejected outright.
func userRangeOK(addr, length uint64, write bool) bool {
	if length == 0 {
		return true
	}

	end := addr + length - 1
	if end < addr || end >= userSpaceLimit {
		return false
	}

	for page := addr &^ pageOffMask; ; page += pageSize {
		if !userPageOK(page, write) {
			return false
		}
		if page >= end&^pageOffMask {
			return true
		}
	}
}

// UserRangeOK exports userRangeOK for callers outside this package (the
// syscall layer validates every user pointer argument with it).
func UserRangeOK(addr, length uint64, write bool) bool {
	return userRangeOK(addr, length, write)
}

// CopyinUser copies length bytes out of a validated user address into dst.
// ok is false, and dst left untouched, if any touched page fails
// userRangeOK.
func CopyinUser(dst []byte, addr uint64) (ok bool) {
	if !userRangeOK(addr, uint64(len(dst)), false) {
		return false
	}
	for i := range dst {
		dst[i] = *(*byte)(unsafe.Pointer(uintptr(addr + uint64(i))))
	}
	return true
}

// CopyoutUser copies src into a validated, Writable user address range.
func CopyoutUser(addr uint64, src []byte) (ok bool) {
	if !userRangeOK(addr, uint64(len(src)), true) {
		return false
	}
	for i, b := range src {
		*(*byte)(unsafe.Pointer(uintptr(addr + uint64(i)))) = b
	}
	return true
}

// CopyinUserString copies a NUL-terminated string out of user memory, up to
// maxLen bytes, failing if the terminator isn't found within that bound or
// any touched byte lies outside user-accessible memory.
func CopyinUserString(addr uint64, maxLen int) (s string, ok bool) {
	buf := make([]byte, 0, maxLen)
	for i := 0; i < maxLen; i++ {
		if !userRangeOK(addr+uint64(i), 1, false) {
			return "", false
		}
		b := *(*byte)(unsafe.Pointer(uintptr(addr + uint64(i))))
		if b == 0 {
			return string(buf), true
		}
		buf = append(buf, b)
	}
	return "", false
}

// ReadCR2 returns the faulting linear address latched by the CPU on the
// most recent page fault (§6 diagnostic token `PF: addr=0x...`).
func ReadCR2() uint64 {
	return read_cr2()
}

// defined in mmu.s
func read_cr0() uint64
func write_cr0(val uint64)
func read_cr2() uint64
func read_cr3() uint64
func write_cr3(val uint64)
