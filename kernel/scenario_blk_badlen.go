//go:build scenario_blk_badlen

package kernel

import "github.com/rugo-os/rugo/amd64"

func init() {
	ActiveScenario = Scenario{Name: "blk badlen", Setup: setupBlkBadLen}
}

// setupBlkBadLen wires the "blk badlen" scenario (§8): a single task
// requests a 513-byte read, one byte over a sector multiple, and observes
// the sentinel rather than any partial transfer.
func setupBlkBadLen(as *amd64.PageTableSet) {
	entry := as.AddCodePage(blkBadLenBlob(amd64.UserCodeBase))
	stack := as.AddStackPage()
	State.AddTask(entry, stack, kernelStackTop(0))
}
