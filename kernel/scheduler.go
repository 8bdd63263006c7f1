package kernel

import "github.com/rugo-os/rugo/amd64"

// findReady performs the round-robin search required by §4.6 and the
// determinism property in §8.7: starting at (current+1) mod NTasks, the
// first Ready task encountered is picked.
func (k *KernelState) findReady() (id int, found bool) {
	n := k.NTasks
	if n == 0 {
		return 0, false
	}
	for i := 1; i <= n; i++ {
		candidate := (k.Current + i) % n
		if k.Tasks[candidate].State == TaskReady {
			return candidate, true
		}
	}
	return 0, false
}

// Schedule implements the scheduling contract of §4.6, called by the trap
// dispatcher on a timer tick and by any syscall handler that yields,
// blocks, or kills the current task. f is the live, on-stack frame the
// common trap stub built; overwriting it steers the IRETQ that resumes
// whichever task is chosen.
//
// The caller sets the current task's state first (Blocked on a blocking
// recv, Dead on kill or fault); Schedule saves the frame, searches, and
// installs. The one state change it makes to the current task is demoting
// a still-Running task to Ready when it switches away from it (yield, timer
// tick).
func (k *KernelState) Schedule(f *amd64.Frame) {
	prev := &k.Tasks[k.Current]
	prev.Frame = *f

	next, found := k.findReady()
	if !found {
		switch prev.State {
		case TaskRunning:
			// no other Ready task; let the current one continue.
			return
		default:
			// Blocked or Dead with nobody else Ready: deadlock or
			// whole-program completion (§5 Cancellation & timeouts,
			// §7 scheduler deadlock is a fatal kernel error).
			Fatal("RUGO: panic code=0xDEAD")
		}
	}

	if prev.State == TaskRunning {
		prev.State = TaskReady
	}

	k.Tasks[next].State = TaskRunning
	k.Current = next
	*f = k.Tasks[next].Frame
	amd64.SetKernelStack(k.Tasks[next].KernelStack)
}

// Yield implements syscall 3: unconditionally relinquish to the scheduler.
func (k *KernelState) Yield(f *amd64.Frame) {
	k.CurrentTask().State = TaskReady
	f.SetRax(0)
	k.Schedule(f)
}
