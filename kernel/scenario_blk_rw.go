//go:build scenario_blk_rw

package kernel

import "github.com/rugo-os/rugo/amd64"

func init() {
	ActiveScenario = Scenario{Name: "blk rw", Setup: setupBlkRW}
}

// setupBlkRW wires the "blk rw" scenario (§8): a single task writes a
// 512-byte sector then reads it back through the VirtIO block device Boot
// has already probed into State.Block.
func setupBlkRW(as *amd64.PageTableSet) {
	entry := as.AddCodePage(blkRWBlob(amd64.UserCodeBase))
	stack := as.AddStackPage()
	State.AddTask(entry, stack, kernelStackTop(0))
}
