//go:build scenario_ipc_buffer_full

package kernel

import "github.com/rugo-os/rugo/amd64"

func init() {
	ActiveScenario = Scenario{Name: "ipc buffer-full", Setup: setupIPCBufferFull}
}

// setupIPCBufferFull wires the "ipc buffer-full" scenario (§8): a single
// task sends twice into the single-slot endpoint 0 with nobody receiving,
// observing the second send's back-pressure rejection, then drains it.
func setupIPCBufferFull(as *amd64.PageTableSet) {
	State.Endpoints[0] = NewEndpoint()

	entry := as.AddCodePage(ipcBufferFullBlob(amd64.UserCodeBase))
	stack := as.AddStackPage()
	State.AddTask(entry, stack, kernelStackTop(0))
}
