package amd64

import (
	"unsafe"

	"github.com/rugo-os/rugo/internal/reg"
)

// MaxAddressSpaceTasks bounds how many per-task code/stack pages the shared
// PageTableSet can hold: PT_CODE and PT_STACK each have one entry per slot
// here (§4.5 "each task reuses the same PML4... but owns its own code page
// and a distinct stack page").
const MaxAddressSpaceTasks = 8

// userCodeBase/userStackBase are the fixed virtual addresses the code and
// stack PTs start at; both fall within PML4 entry 0 / PDPT entry 0, at PD
// entries 2 and 3 respectively, mirroring the layout a hand-assembled user
// blob loadable at VA 0x400000 expects (§9).
const (
	userCodeBase  = 0x0000_0000_0040_0000
	userStackBase = 0x0000_0000_0060_0000
	userStackSize = pageSize
)

// UserCodeBase and PageSize are exported for callers that build a blob's
// absolute data references themselves, before AddCodePage ever runs: a
// blob's final load address is UserCodeBase + its eventual slot index *
// PageSize, which the blob builder needs to know in advance since there is
// no relocation pass.
const (
	UserCodeBase = userCodeBase
	PageSize     = pageSize
)

// intermediate entry permission bits: Present|Write|User, the flags every
// non-leaf entry in this address space uses.
const pdeFlags = ptePresent | pteWrite | pteUser

// kernKVirt/kernKPhys are the kernel's own load addresses, recorded once at
// boot; pages allocated from this package's static arena need their
// physical address computed against this same delta (§4.5 kv2p).
var kernKVirt, kernKPhys uint64

// SetKernelBase records the kernel's virtual and physical load addresses,
// as reported by the bootloader. Must be called once during boot before
// NewAddressSpace.
func SetKernelBase(kvirt, kphys uint64) {
	kernKVirt, kernKPhys = kvirt, kphys
}

func kv2pSelf(va uint64) uint64 {
	return KV2P(va, kernKVirt, kernKPhys)
}

// KernelPhys translates a kernel-virtual address backed by this image's own
// load region to its physical address, using the base recorded by
// SetKernelBase. Exported for callers that need the physical address of a
// kernel-resident page they hand to hardware or install in a PTE - the SHM
// pool's backing pages, chiefly.
func KernelPhys(kvirt uint64) uint64 {
	return kv2pSelf(kvirt)
}

// addrSpaceArena backs every page-table page and user code/stack page a
// PageTableSet needs: PML4, PDPT, PD, PT_CODE, PT_STACK (5 pages) plus one
// code and one stack page per task slot, plus one page of slack for
// aligning the first page. There is no heap allocator (§1), so this is a
// fixed, statically reserved region, bump-allocated exactly like the VirtIO
// queue arena.
var addrSpaceArena [(5 + 2*MaxAddressSpaceTasks + 1) * pageSize]byte

var addrSpaceNext int

func allocPage() (kvirt uint64, table []uint64) {
	start := int(uintptr(unsafe.Pointer(&addrSpaceArena[0])))
	base := (start+addrSpaceNext+pageSize-1)&^(pageSize-1) - start
	if base+pageSize > len(addrSpaceArena) {
		panic("amd64: address space arena exhausted")
	}
	buf := addrSpaceArena[base : base+pageSize]
	addrSpaceNext = base + pageSize
	for i := range buf {
		buf[i] = 0
	}
	return uint64(uintptr(unsafe.Pointer(&buf[0]))), (*[512]uint64)(unsafe.Pointer(&buf[0]))[:]
}

// PageTableSet is the per-boot, shared address space every task runs in
// (§3, §9 "page-table clone vs per-task address spaces" - this core clones
// one user PML4 shared by all tasks).
type PageTableSet struct {
	pml4KVirt uint64
	pml4      []uint64
	ptCode    []uint64
	ptStack   []uint64

	codePages  [MaxAddressSpaceTasks]uint64 // kernel-virtual
	stackPages [MaxAddressSpaceTasks]uint64
	nextCode   int
	nextStack  int
}

// NewAddressSpace builds the shared PageTableSet per the deterministic
// sequence of §4.5: clone the bootloader PML4, install PDPT->PD->PT-code
// and PT-stack, overwrite PML4 entry 0 to publish the user region, and
// return before any CR3 switch - the caller copies code blobs into the
// pages this returns first, then calls Activate.
func NewAddressSpace() *PageTableSet {
	pt := &PageTableSet{}

	// 1. clone the bootloader's PML4 entries 0-511.
	oldPML4Phys := read_cr3() & addrMask
	oldPML4 := oldPML4Phys + hhdmOffset

	var pml4KVirt uint64
	pml4KVirt, pt.pml4 = allocPage()
	pt.pml4KVirt = pml4KVirt
	for i := 0; i < 512; i++ {
		pt.pml4[i] = reg.Read64(oldPML4 + uint64(i)*8)
	}

	// 2. PDPT -> PD -> PT-code, PT-stack.
	pdptKVirt, pdpt := allocPage()
	pdKVirt, pd := allocPage()
	ptCodeKVirt, ptCode := allocPage()
	ptStackKVirt, ptStack := allocPage()
	pt.ptCode = ptCode
	pt.ptStack = ptStack

	pdpt[0] = kv2pSelf(pdKVirt) | pdeFlags
	pd[(userCodeBase>>indexPD)&indexMask] = kv2pSelf(ptCodeKVirt) | pdeFlags
	pd[(userStackBase>>indexPD)&indexMask] = kv2pSelf(ptStackKVirt) | pdeFlags

	// 4. publish the user region.
	pt.pml4[0] = kv2pSelf(pdptKVirt) | pdeFlags

	return pt
}

// AddCodePage allocates the next code page, installs it Present|User (read
// execute, no Write - §4.5 step 3), copies blob into it, and returns its
// virtual address in the shared address space.
func (pt *PageTableSet) AddCodePage(blob []byte) (va uint64) {
	if pt.nextCode >= MaxAddressSpaceTasks || len(blob) > pageSize {
		panic("amd64: address space code pages exhausted")
	}

	idx := pt.nextCode
	pt.nextCode++

	kvirt, page := allocPage()
	bytePage := (*[pageSize]byte)(unsafe.Pointer(&page[0]))
	copy(bytePage[:], blob)

	pt.codePages[idx] = kvirt
	pt.ptCode[idx] = kv2pSelf(kvirt) | ptePresent | pteUser

	return userCodeBase + uint64(idx)*pageSize
}

// AddStackPage allocates the next stack page, installs it Present|User|
// Writable, and returns its top-of-stack address (16-byte aligned, as the
// SysV ABI the blobs assume requires).
func (pt *PageTableSet) AddStackPage() (top uint64) {
	if pt.nextStack >= MaxAddressSpaceTasks {
		panic("amd64: address space stack pages exhausted")
	}

	idx := pt.nextStack
	pt.nextStack++

	kvirt, _ := allocPage()
	pt.stackPages[idx] = kvirt
	pt.ptStack[idx] = kv2pSelf(kvirt) | ptePresent | pteUser | pteWrite

	return userStackBase + uint64(idx+1)*pageSize - 16
}

// Activate loads CR3 with the physical address of this PageTableSet's PML4.
// Per §4.5's required ordering, this must only be called once every code
// blob has already been copied in.
func (pt *PageTableSet) Activate() {
	write_cr3(kv2pSelf(pt.pml4KVirt))
}

// MapPage installs a PTE for phys at the page-aligned virtual address va in
// this address space, with the given flags, and invalidates any stale TLB
// entry for va. Used by ShmObject's map operation (§4.8 syscall 7):
// walking an existing PageTableSet to insert a single new leaf entry rather
// than rebuilding it.
func (pt *PageTableSet) MapPage(va, phys uint64, flags uint64) bool {
	if va&pageOffMask != 0 {
		return false
	}

	i4 := (va >> indexPML4) & indexMask
	i3 := (va >> indexPDPT) & indexMask
	i2 := (va >> indexPD) & indexMask
	i1 := (va >> indexPT) & indexMask

	pml4e := pt.pml4[i4]
	if pml4e&ptePresent == 0 {
		return false
	}
	pdpt := (*[512]uint64)(unsafe.Pointer(uintptr(hhdmOffset + pml4e&addrMask)))[:]

	pdpte := pdpt[i3]
	if pdpte&ptePresent == 0 {
		return false
	}
	pd := (*[512]uint64)(unsafe.Pointer(uintptr(hhdmOffset + pdpte&addrMask)))[:]

	pde := pd[i2]
	if pde&ptePresent == 0 || pde&ptePS != 0 {
		return false
	}
	ptbl := (*[512]uint64)(unsafe.Pointer(uintptr(hhdmOffset + pde&addrMask)))[:]

	ptbl[i1] = (phys &^ pageOffMask) | flags
	invlpg(va)

	return true
}

// defined in addrspace.s
func invlpg(va uint64)
