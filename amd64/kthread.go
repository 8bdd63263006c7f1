package amd64

import "unsafe"

// KernelContext is the saved stack pointer for a cooperative kernel-thread
// context switch (§4.6): used only by the in-kernel thread demo, orthogonal
// to the ring-3 task scheduler and its Frame-based switching.
type KernelContext struct {
	rsp uint64
}

const kthreadStackSize = 4096

// maxKernelThreads bounds the fixed-size entry-function table; there is no
// heap allocator (§1), so kernel threads are a statically reserved
// resource like everything else.
const maxKernelThreads = 4

// KernelThread is a cooperative, never-exiting kernel-mode coroutine. Its
// entry function runs until it calls SwitchTo naming another thread,
// handing over the CPU; it must never return.
type KernelThread struct {
	ctx   KernelContext
	stack [kthreadStackSize]byte
}

var kthreadEntry [maxKernelThreads]func()
var kthreadNext int

// NewKernelThread allocates a kernel thread whose first resume (via
// SwitchTo) enters fn on its own stack.
func NewKernelThread(fn func()) *KernelThread {
	if kthreadNext >= maxKernelThreads {
		panic("amd64: kernel thread table exhausted")
	}
	slot := kthreadNext
	kthreadNext++
	kthreadEntry[slot] = fn

	t := &KernelThread{}

	// switchContext's first resume into a new thread still runs its six
	// POPQs and final RET before reaching any thread code, so the initial
	// stack must carry six (unused) callee-saved slots below the
	// trampoline's return address, with the trampoline's own argument
	// (the entry-table slot) above that.
	top := uintptr(unsafe.Pointer(&t.stack[kthreadStackSize-1])) &^ 0xf
	sp := top - 64
	words := (*[8]uint64)(unsafe.Pointer(sp))
	words[0] = 0 // R15
	words[1] = 0 // R14
	words[2] = 0 // R13
	words[3] = 0 // R12
	words[4] = 0 // BX
	words[5] = 0 // BP
	words[6] = uint64(kthreadTrampolineAddr())
	words[7] = uint64(slot)

	t.ctx.rsp = uint64(sp)
	return t
}

// SwitchTo saves the caller's live registers into from's context and
// resumes to's saved context; it returns again only once some later
// SwitchTo names from as its target.
func SwitchTo(from, to *KernelThread) {
	switchContext(&from.ctx, &to.ctx)
}

// runKernelThreadSlot is called by the assembly trampoline on a new kernel
// thread's first resume; it never returns, matching its caller's HLT
// fallback.
func runKernelThreadSlot(slot int) {
	kthreadEntry[slot]()
}

// defined in kthread.s
func switchContext(save, load *KernelContext)
func kthreadTrampolineAddr() uintptr
