package kernel

import "github.com/rugo-os/rugo/amd64"

// Scenario selects which of the named demonstrations in §8 runs after boot
// (§6, "Build-time configuration surface"). Exactly one scenario_*.go file
// is compiled in, gated by its own build tag; its init registers itself
// here. Boot calls ActiveScenario.Setup once the shared address space
// exists and every driver that scenario needs has already been probed.
//
// Setup is nil for a scenario with no user tasks at all (currently only
// "udp echo") - Run is its kernel-mode substitute, called instead of
// entering ring 3.
type Scenario struct {
	Name  string
	Setup func(as *amd64.PageTableSet)
	Run   func()
}

var ActiveScenario Scenario
