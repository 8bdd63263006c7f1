package kernel

import "github.com/rugo-os/rugo/amd64"

// KernelState is the kernel's entire process-wide mutable state (§9): the
// task table, the endpoint array, the service registry and the shared
// memory pool. It is constructed once during boot and threaded by pointer
// into every trap handler; interior mutation is safe without locking
// because exactly one dispatch is ever in flight at a time (§5, single CPU,
// handlers run to completion with interrupts disabled).
type KernelState struct {
	Tasks   [MaxTasks]Task
	NTasks  int
	Current int

	Endpoints [MaxEndpoints]Endpoint
	Services  [MaxServices]ServiceEntry
	Shm       [MaxShmObjects]ShmObject

	// Ticks is the monotonic logical clock incremented by the timer
	// handler and by sys_time_now, which returns the incremented value
	// (§4.8, syscall 10).
	Ticks uint64

	Block *BlockService
	Net   *NetService

	// AddrSpace is the shared PageTableSet every task runs in (§9,
	// "page-table clone vs per-task address spaces") - set once by Boot.
	AddrSpace *amd64.PageTableSet
}

// State is the single kernel instance, constructed during boot by Boot and
// thereafter passed by reference (conceptually - Go's package-level
// singleton plays that role directly) into every handler.
var State KernelState

// AddTask appends a new task built from NewTask to the task table. It must
// only be called during boot, before the scheduler runs.
func (k *KernelState) AddTask(entry, userStack, kernelStack uint64) *Task {
	id := k.NTasks
	k.Tasks[id] = NewTask(id, entry, userStack, kernelStack)
	k.NTasks++
	return &k.Tasks[id]
}

// CurrentTask returns the task presently marked Running.
func (k *KernelState) CurrentTask() *Task {
	return &k.Tasks[k.Current]
}

// RunFirstTask marks task 0 Running and returns its frame, ready to be
// IRETQ'd into from the kernel's boot stack.
func (k *KernelState) RunFirstTask() *amd64.Frame {
	k.Current = 0
	k.Tasks[0].State = TaskRunning
	amd64.SetKernelStack(k.Tasks[0].KernelStack)
	return &k.Tasks[0].Frame
}
