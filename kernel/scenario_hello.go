//go:build scenario_hello

package kernel

import "github.com/rugo-os/rugo/amd64"

func init() {
	ActiveScenario = Scenario{Name: "hello", Setup: setupHello}
}

// setupHello wires the "hello" scenario (§8): a single task that prints
// "USER: hello" then faults on a privileged instruction, exercising §4.3's
// user fault containment.
func setupHello(as *amd64.PageTableSet) {
	entry := as.AddCodePage(HelloBlob(amd64.UserCodeBase))
	stack := as.AddStackPage()
	State.AddTask(entry, stack, kernelStackTop(0))
}
