package kernel

import (
	"unsafe"

	"github.com/rugo-os/rugo/amd64"
)

// ShmObject is a fixed pool entry (§3): an active flag, a logical size, and
// a kernel-resident backing page. A mapping operation installs a PTE for
// that page in the calling task's page tables at a caller-chosen
// page-aligned user virtual address.
type ShmObject struct {
	Active bool
	Size   int
	page   [ShmPageSize]byte
}

func (o *ShmObject) phys() uint64 {
	return amd64.KernelPhys(uint64(uintptr(unsafe.Pointer(&o.page[0]))))
}

// ShmCreate implements syscall 6 (§4.8): allocate a SHM handle of size
// bytes, failing if size is zero, larger than one page, or the pool is
// full.
func (k *KernelState) ShmCreate(size uint64) (handle uint64, err SysErr) {
	if size == 0 || size > ShmPageSize {
		return 0, ErrBadArg
	}

	for i := range k.Shm {
		if !k.Shm[i].Active {
			k.Shm[i] = ShmObject{Active: true, Size: int(size)}
			return uint64(i), ErrNone
		}
	}

	return 0, ErrBadCap
}

// ShmMap implements syscall 7 (§4.8): install a PTE for handle's backing
// page at vaHint (which must be page-aligned) in the shared address space,
// with Write permission iff the caller requested it via flags bit 0.
func (k *KernelState) ShmMap(handle, vaHint, flags uint64) (va uint64, err SysErr) {
	if handle >= MaxShmObjects || !k.Shm[handle].Active {
		return 0, ErrBadArg
	}
	if vaHint&(ShmPageSize-1) != 0 || vaHint == 0 {
		return 0, ErrBadArg
	}

	perm := uint64(amd64.PTEPresent | amd64.PTEUser)
	if flags&1 != 0 {
		perm |= amd64.PTEWrite
	}

	if k.AddrSpace == nil || !k.AddrSpace.MapPage(vaHint, k.Shm[handle].phys(), perm) {
		return 0, ErrBadArg
	}

	return vaHint, ErrNone
}
