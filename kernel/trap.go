package kernel

import "github.com/rugo-os/rugo/amd64"

// schedTicksPerQuantum is the number of timer ticks a task runs before the
// scheduler reconsiders it - the "threshold" referenced by §4.2's timer
// handling.
const schedTicksPerQuantum = 5

var tickCount int

// InstallDispatch wires amd64's trap entry point to Dispatch. Called once
// during boot, after InitIDT.
func (k *KernelState) InstallDispatch() {
	amd64.Dispatch = k.Dispatch
}

// Dispatch routes a trap by vector (§4.2): fatal diagnostics for 0/3/8,
// fault containment for 13/14 distinguishing by CS RPL, tick/reschedule for
// 32, and syscall dispatch for 128.
func (k *KernelState) Dispatch(f *amd64.Frame) {
	switch f.Vector() {
	case amd64.VectorDivideError:
		Fatal("TRAP: div0")

	case amd64.VectorDoubleFault:
		Fatal("TRAP: double fault")

	case amd64.VectorBreakpoint:
		Fatal("TRAP: ok")

	case amd64.VectorGPFault:
		if f.FromUser() {
			k.containUserFault(f)
		} else {
			DiagHex("TRAP: gpf err=", f.ErrorCode())
			ExitVM(0xff)
			for {
				amd64.Halt()
			}
		}

	case amd64.VectorPageFault:
		if f.FromUser() {
			k.containUserFault(f)
		} else {
			DiagHex2("PF: addr=", amd64.ReadCR2(), " err=", f.ErrorCode())
			ExitVM(0xff)
			for {
				amd64.Halt()
			}
		}

	case amd64.VectorTimer:
		k.Ticks++
		AckPIC()
		tickCount++
		if tickCount >= schedTicksPerQuantum {
			tickCount = 0
			k.Schedule(f)
		}

	case amd64.VectorSyscall:
		k.Syscall(f)

	default:
		Fatal("TRAP: ok")
	}
}

// containUserFault implements §4.3: the faulting task is marked Dead and
// another Ready task installed by overwriting the live frame. The original
// error code and CR2 are discarded - this core treats ring-3 faults as
// non-recoverable per-task termination, never a user-visible signal.
func (k *KernelState) containUserFault(f *amd64.Frame) {
	Diag("USER: killed")

	t := k.CurrentTask()
	t.State = TaskDead

	next, found := k.findReady()
	if !found {
		Diag("RUGO: halt ok")
		ExitVM(0)
		for {
			amd64.Halt()
		}
	}

	k.Tasks[next].State = TaskRunning
	k.Current = next
	*f = k.Tasks[next].Frame
	amd64.SetKernelStack(k.Tasks[next].KernelStack)
}
