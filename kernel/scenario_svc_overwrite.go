//go:build scenario_svc_overwrite

package kernel

import "github.com/rugo-os/rugo/amd64"

func init() {
	ActiveScenario = Scenario{Name: "svc overwrite", Setup: setupSvcOverwrite}
}

// setupSvcOverwrite wires the "svc overwrite" scenario (§8): a single task
// registers the same name twice with different endpoints and observes
// lookup resolve to the second registration.
func setupSvcOverwrite(as *amd64.PageTableSet) {
	entry := as.AddCodePage(svcOverwriteBlob(amd64.UserCodeBase))
	stack := as.AddStackPage()
	State.AddTask(entry, stack, kernelStackTop(0))
}
