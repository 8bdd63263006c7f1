package kernel

import "github.com/rugo-os/rugo/amd64"

// TaskState is one of Ready, Running, Blocked or Dead (§3). Exactly one
// task is Running at any time.
type TaskState int

const (
	TaskDead TaskState = iota
	TaskReady
	TaskRunning
	TaskBlocked
)

func (s TaskState) String() string {
	switch s {
	case TaskDead:
		return "Dead"
	case TaskReady:
		return "Ready"
	case TaskRunning:
		return "Running"
	case TaskBlocked:
		return "Blocked"
	default:
		return "?"
	}
}

// Task is a saved interrupt frame plus a state and the three receive
// descriptor fields used while blocked on IPC (§3). A task is created once,
// before ring-3 entry, with a synthetic frame, and destroyed only by
// transitioning to Dead; its slot is never reused for a different task.
type Task struct {
	ID    int
	Frame amd64.Frame
	State TaskState

	// Receive descriptor, valid only while State == TaskBlocked on
	// ipc_recv: the endpoint being waited on, and where the eventual
	// message should land in the task's own user memory.
	RecvEndpoint int
	RecvBuf      uint64
	RecvCap      uint64

	// KernelStack is the top of this task's private kernel stack, loaded
	// into the TSS's RSP0 whenever the task becomes Running so a ring
	// 3->0 transition always lands on a stack that isn't in use by
	// another task.
	KernelStack uint64
}

// NewTask builds a task with a synthetic frame ready for its first IRETQ
// into ring 3 (§4.6): entry point, user stack top, and kernel stack are
// supplied by the caller (boot sequence or test scenario setup).
func NewTask(id int, entry, userStack, kernelStack uint64) Task {
	return Task{
		ID:           id,
		Frame:        amd64.NewUserFrame(entry, userStack),
		State:        TaskReady,
		RecvEndpoint: -1,
		KernelStack:  kernelStack,
	}
}
