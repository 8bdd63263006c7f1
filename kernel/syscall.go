package kernel

import "github.com/rugo-os/rugo/amd64"

// Syscall numbers (§4.8).
const (
	SysDebugWrite   = 0
	SysYield        = 3
	SysShmCreate    = 6
	SysShmMap       = 7
	SysIPCSend      = 8
	SysIPCRecv      = 9
	SysTimeNow      = 10
	SysSvcRegister  = 11
	SysSvcLookup    = 12
	SysBlkRead      = 13
	SysBlkWrite     = 14
	SysDebugExit    = 98
)

// Syscall dispatches a trap from vector 128 (§4.2, §4.8). The syscall number
// is read from rax (frame slot 14); arguments from rdi/rsi/rdx/r10. Unknown
// numbers, and every error kind, collapse to Sentinel in the return slot
// (§7) - the specific SysErr never crosses this boundary.
func (k *KernelState) Syscall(f *amd64.Frame) {
	num := f.Rax()
	a1, a2, a3, _ := f.SyscallArgs()

	switch num {
	case SysDebugWrite:
		f.SetRax(k.sysDebugWrite(a1, a2))

	case SysYield:
		k.Yield(f)

	case SysShmCreate:
		handle, err := k.ShmCreate(a1)
		setResult(f, handle, err)

	case SysShmMap:
		va, err := k.ShmMap(a1, a2, a3)
		setResult(f, va, err)

	case SysIPCSend:
		err := k.Send(int(a1), a2, a3)
		setResult(f, 0, err)

	case SysIPCRecv:
		delivered, err, blocked := k.Recv(f, int(a1), a2, a3)
		if !blocked {
			setResult(f, delivered, err)
		}

	case SysTimeNow:
		k.Ticks++
		f.SetRax(k.Ticks)

	case SysSvcRegister:
		err := k.Register(a1, a2, a3)
		setResult(f, 0, err)

	case SysSvcLookup:
		ep, err := k.Lookup(a1, a2)
		setResult(f, ep, err)

	case SysBlkRead:
		f.SetRax(k.sysBlk(a1, a2, a3, false))

	case SysBlkWrite:
		f.SetRax(k.sysBlk(a1, a2, a3, true))

	case SysDebugExit:
		ExitVM(uint8(a1))

	default:
		f.SetRax(Sentinel)
	}
}

// setResult writes val on success, Sentinel on any non-ErrNone SysErr.
func setResult(f *amd64.Frame, val uint64, err SysErr) {
	if err != ErrNone {
		f.SetRax(Sentinel)
		return
	}
	f.SetRax(val)
}

func (k *KernelState) sysDebugWrite(addr, length uint64) uint64 {
	if length > MaxDebugWrite {
		length = MaxDebugWrite
	}
	var buf [MaxDebugWrite]byte
	n := int(length)
	if !amd64.CopyinUser(buf[:n], addr) {
		return Sentinel
	}
	SerialWrite(buf[:n])
	return uint64(n)
}

func (k *KernelState) sysBlk(lba, addr, length uint64, write bool) uint64 {
	if k.Block == nil {
		return Sentinel
	}
	if length == 0 || length%512 != 0 || length > 4096 {
		return Sentinel
	}

	var store [4096]byte
	buf := store[:length]

	if write {
		if !amd64.CopyinUser(buf, addr) {
			return Sentinel
		}
	}

	if err := k.Block.ReadWrite(lba, buf, write); err != ErrNone {
		return Sentinel
	}

	if !write {
		if !amd64.CopyoutUser(addr, buf) {
			return Sentinel
		}
	}

	return 0
}
