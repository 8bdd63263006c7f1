package kernel

import (
	"unsafe"

	"github.com/rugo-os/rugo/amd64"
	"github.com/rugo-os/rugo/soc/intel/pci"
	"github.com/rugo-os/rugo/virtio"
)

// VirtIO legacy transitional device IDs this kernel knows how to drive
// (§1): block (0x1001) and network (0x1000), vendor 0x1af4 (Red Hat, the
// VirtIO vendor ID) on PCI bus 0.
const (
	virtioVendor      = 0x1af4
	virtioBlockDevice = 0x1001
	virtioNetDevice   = 0x1000
)

const kernelStackSize = 8192

// kernelStacks backs every task's private ring 0 stack (§4.1, §4.6): one
// per MaxTasks slot, statically reserved like every other kernel table.
var kernelStacks [MaxTasks][kernelStackSize]byte

func kernelStackTop(i int) uint64 {
	return uint64(uintptr(unsafe.Pointer(&kernelStacks[i][kernelStackSize-16])))
}

// Boot runs the control flow described in §2: descriptor tables, trap
// dispatch, drivers, the task model, then IRETQ into ring 3 - or, for the
// "udp echo" scenario, a kernel-mode substitute that never enters ring 3 at
// all.
func Boot() {
	InitSerial()
	Diag("RUGO: boot ok")

	hhdm, kvirt, kphys := amd64.BootInfo()
	amd64.SetHHDMOffset(hhdm)
	amd64.SetKernelBase(kvirt, kphys)
	virtio.SetKV2P(kvirt, kphys)
	Diag("MM: paging=on")

	amd64.InitGDT(kernelStackTop(0))
	amd64.InitIDT()
	State.InstallDispatch()

	InitPIC()
	InitPIT()

	initDrivers()

	RunKernelThreadDemo()

	if ActiveScenario.Run != nil {
		ActiveScenario.Run()
		Diag("RUGO: halt ok")
		ExitVM(0)
		for {
			amd64.Halt()
		}
	}

	as := amd64.NewAddressSpace()
	State.AddrSpace = as
	if ActiveScenario.Setup != nil {
		ActiveScenario.Setup(as)
	}
	as.Activate()

	f := State.RunFirstTask()
	amd64.EnterUser(f)
}

// initDrivers probes for the VirtIO block and network devices on PCI bus 0
// and wires whichever are present into State; a scenario that needs a
// device it couldn't find fails at the syscall layer instead, since device
// presence is itself part of what a handful of scenarios exercise.
func initDrivers() {
	if dev := pci.Probe(0, virtioVendor, virtioBlockDevice); dev != nil {
		io := &virtio.LegacyPCI{Device: dev}
		if drv, err := virtio.NewBlock(io); err == nil {
			State.Block = NewBlockService(drv)
		}
	}

	if dev := pci.Probe(0, virtioVendor, virtioNetDevice); dev != nil {
		io := &virtio.LegacyPCI{Device: dev}
		if drv, err := virtio.NewNet(io); err == nil {
			State.Net = NewNetService(drv)
		}
	}
}
