//go:build scenario_badptr

package kernel

import "github.com/rugo-os/rugo/amd64"

func init() {
	ActiveScenario = Scenario{Name: "badptr", Setup: setupBadPtr}
}

// setupBadPtr wires the "badptr" scenario (§8): a single task calls
// ipc_send with a pointer in unmapped user space, exercising
// CopyinUser/user_range_ok rejection before any dereference.
func setupBadPtr(as *amd64.PageTableSet) {
	State.Endpoints[0] = NewEndpoint()

	entry := as.AddCodePage(badPtrBlob(amd64.UserCodeBase))
	stack := as.AddStackPage()
	State.AddTask(entry, stack, kernelStackTop(0))
}
