package kernel

import "github.com/rugo-os/rugo/amd64"

// kthreadDemoRounds is how many times the two demo threads hand off to each
// other before unwinding back to the boot stack.
const kthreadDemoRounds = 3

// RunKernelThreadDemo exercises the cooperative kernel-thread primitive
// (§4.6, "early boot demonstration"): two kernel-mode coroutines alternate
// kthreadDemoRounds times via amd64.SwitchTo, each incrementing a shared
// counter, before handing control back here. It is orthogonal to user task
// scheduling - nothing else in the kernel depends on its outcome.
func RunKernelThreadDemo() {
	var boot amd64.KernelThread
	var a, b *amd64.KernelThread

	counter := 0

	a = amd64.NewKernelThread(func() {
		for i := 0; i < kthreadDemoRounds; i++ {
			counter++
			amd64.SwitchTo(a, b)
		}
		amd64.SwitchTo(a, &boot)
	})

	b = amd64.NewKernelThread(func() {
		for i := 0; i < kthreadDemoRounds; i++ {
			counter++
			amd64.SwitchTo(b, a)
		}
		amd64.SwitchTo(b, &boot)
	})

	amd64.SwitchTo(&boot, a)
}
