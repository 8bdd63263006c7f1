//go:build scenario_ipc_pingpong

package kernel

import "github.com/rugo-os/rugo/amd64"

func init() {
	ActiveScenario = Scenario{Name: "ipc ping-pong", Setup: setupIPCPingPong}
}

// setupIPCPingPong wires the "ipc ping-pong" scenario (§8): "pong" registers
// itself at endpoint 0 and waits, "ping" looks it up and sends, the pair
// exchanging replies on endpoint 1. Both endpoints are pre-seeded active
// since the core never creates one implicitly.
func setupIPCPingPong(as *amd64.PageTableSet) {
	State.Endpoints[0] = NewEndpoint()
	State.Endpoints[1] = NewEndpoint()

	pongEntry := as.AddCodePage(ipcPongBlob(amd64.UserCodeBase))
	pongStack := as.AddStackPage()
	State.AddTask(pongEntry, pongStack, kernelStackTop(0))

	// ping is the second code page AddCodePage hands out, so its own load
	// address - and every absolute reference its blob embeds - is one page
	// past pong's.
	pingEntry := as.AddCodePage(ipcPingBlob(amd64.UserCodeBase + amd64.PageSize))
	pingStack := as.AddStackPage()
	State.AddTask(pingEntry, pingStack, kernelStackTop(1))
}
