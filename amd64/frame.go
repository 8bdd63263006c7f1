// Package amd64 provides the x86-64 privilege, descriptor-table and
// page-table primitives the kernel is built on: the GDT/TSS, the IDT and
// common trap stub, the 22-slot interrupt frame that is the canonical
// representation of a task's execution state, and the page-walk routines
// behind user memory access.
package amd64

// Frame is the interrupt frame assembled by the common trap stub: fifteen
// general purpose registers in push order, the interrupt vector and error
// code, then the five words the CPU itself pushes on a ring transition.
// Overwriting slots 17-21 (Rip/Cs/Rflags/Rsp/Ss) steers the execution that
// IRETQ resumes; this is the kernel's sole mechanism for task switching,
// user-fault containment and deadlock escape.
type Frame [22]uint64

// Frame slot indices, in trap-stub push order.
const (
	FrameR15 = iota
	FrameR14
	FrameR13
	FrameR12
	FrameR11
	FrameR10
	FrameR9
	FrameR8
	FrameRBP
	FrameRDI
	FrameRSI
	FrameRDX
	FrameRCX
	FrameRBX
	FrameRAX
	FrameVector
	FrameErrorCode
	FrameRIP
	FrameCS
	FrameRFLAGS
	FrameRSP
	FrameSS
)

func (f *Frame) Vector() uint64     { return f[FrameVector] }
func (f *Frame) ErrorCode() uint64  { return f[FrameErrorCode] }
func (f *Frame) RIP() uint64        { return f[FrameRIP] }
func (f *Frame) CS() uint64         { return f[FrameCS] }
func (f *Frame) RSP() uint64        { return f[FrameRSP] }

// FromUser reports whether the trap originated in ring 3, by inspecting the
// Requested Privilege Level encoded in the low two bits of CS.
func (f *Frame) FromUser() bool {
	return f[FrameCS]&3 == 3
}

// Rax returns the syscall number / return-value slot.
func (f *Frame) Rax() uint64 { return f[FrameRAX] }

// SetRax writes the syscall return value.
func (f *Frame) SetRax(v uint64) { f[FrameRAX] = v }

// SyscallArgs returns the four syscall arguments, mapped from
// rdi/rsi/rdx/r10 per the syscall ABI (§4.8).
func (f *Frame) SyscallArgs() (a1, a2, a3, a4 uint64) {
	return f[FrameRDI], f[FrameRSI], f[FrameRDX], f[FrameR10]
}

// Redirect overwrites the CPU-consumed tail of the frame (Rip/Cs/Rflags/Rsp/Ss)
// so that the next IRETQ resumes a different context entirely - used for
// task switching, user-fault containment and deadlock escape.
func (f *Frame) Redirect(rip, cs, rflags, rsp, ss uint64) {
	f[FrameRIP] = rip
	f[FrameCS] = cs
	f[FrameRFLAGS] = rflags
	f[FrameRSP] = rsp
	f[FrameSS] = ss
}

// NewUserFrame builds the synthetic frame a task is given before its first
// IRETQ into ring 3 (§4.6): RFLAGS_DEFAULT, with IF set so the preemption
// timer can interrupt the task once it's running.
func NewUserFrame(entry, userStack uint64) Frame {
	var f Frame
	f.Redirect(entry, UserCodeSelector|3, RFLAGS_DEFAULT, userStack, UserDataSelector|3)
	return f
}

// defined in entry.s: loads f's fifteen GPRs and IRETQs through its
// Rip/Cs/Rflags/Rsp/Ss tail, the same sequence commonTrapStub's own tail
// uses to resume a redirected frame - the one-time entry into the first
// task, from the boot stack rather than from inside a trap. Never returns.
func EnterUser(f *Frame)

// RFLAGS_DEFAULT is the reserved-bit-1-set, interrupts-enabled flags value
// every synthetic and redirected frame in this kernel uses: IF must be set
// on every ring-3 resume, or the timer tick that drives preemptive
// scheduling (§4.6) would never fire while a task runs.
const RFLAGS_DEFAULT = 0x202
