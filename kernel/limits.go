// Package kernel implements the microkernel's process-wide state: the task
// table and scheduler, IPC endpoints and the name service registry, shared
// memory objects, the syscall dispatch table, and the trap handlers that
// route into all of them. Every table here is statically reserved at a
// fixed capacity (§1 Non-goals) - there is no heap allocator.
package kernel

// Fixed table capacities. All process-wide state is sized at compile time;
// exceeding one of these is BadCap at the syscall boundary, never a runtime
// allocation failure.
const (
	MaxTasks     = 8
	MaxEndpoints = 8
	MaxServices  = 4
	MaxShmObjects = 4

	// MaxMessageLength bounds an endpoint's single message slot.
	MaxMessageLength = 256

	// MaxServiceName bounds a registered service name.
	MaxServiceName = 24

	// MaxDebugWrite bounds a single debug_write syscall (§4.8, syscall 0).
	MaxDebugWrite = 256

	// ShmPageSize is the size of the single kernel-resident page backing
	// every ShmObject.
	ShmPageSize = 4096
)
