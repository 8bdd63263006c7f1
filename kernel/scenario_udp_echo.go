//go:build scenario_udp_echo

package kernel

func init() {
	ActiveScenario = Scenario{Name: "udp echo", Run: runUDPEchoScenario}
}

// runUDPEchoScenario wires the "udp echo" scenario (§8): no user task is
// involved, the kernel itself answers ARP and echoes UDP traffic directly
// against State.Net.
func runUDPEchoScenario() {
	if State.Net == nil {
		Fatal("RUGO: panic code=0xDEAD")
	}
	RunUDPEcho(State.Net)
}
