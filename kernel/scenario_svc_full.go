//go:build scenario_svc_full

package kernel

import "github.com/rugo-os/rugo/amd64"

func init() {
	ActiveScenario = Scenario{Name: "svc full", Setup: setupSvcFull}
}

// setupSvcFull wires the "svc full" scenario (§8): a single task registers
// MaxServices distinct names, filling the registry, then a further
// registration fails with the sentinel.
func setupSvcFull(as *amd64.PageTableSet) {
	entry := as.AddCodePage(svcFullBlob(amd64.UserCodeBase))
	stack := as.AddStackPage()
	State.AddTask(entry, stack, kernelStackTop(0))
}
