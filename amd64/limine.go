package amd64

// Limine boot protocol request structures (out of scope per §1 - "the
// bootloader handoff protocol (treated as an opaque source of HHDM and
// kernel-address responses)"). Only the two responses this kernel needs
// are modeled: the higher-half direct map offset and the kernel's own
// physical/virtual load addresses, matching the Limine v8 API's HHDM and
// kernel-address request IDs.
//
// The bootloader scans the kernel image for these structures (conventionally
// placed in a linker-script-defined .requests section between the
// LIMINE_REQUESTS_START/END markers) and fills in Response before handing
// control to the entry point; by the time BootInfo is called, both pointers
// are already populated.
type limineHHDMResponse struct {
	Revision uint64
	Offset   uint64
}

type limineHHDMRequest struct {
	ID       [4]uint64
	Revision uint64
	Response *limineHHDMResponse
}

type limineKernelAddressResponse struct {
	Revision     uint64
	PhysicalBase uint64
	VirtualBase  uint64
}

type limineKernelAddressRequest struct {
	ID       [4]uint64
	Revision uint64
	Response *limineKernelAddressResponse
}

var hhdmRequest = limineHHDMRequest{
	ID: [4]uint64{0xc7b1dd30df4c8b88, 0x0a82e883a194f07b, 0x48dcf1cb8ad2b852, 0x63984e959a98244b},
}

var kernelAddressRequest = limineKernelAddressRequest{
	ID: [4]uint64{0xc7b1dd30df4c8b88, 0x0a82e883a194f07b, 0x71ba76863cc55f63, 0xb2644a48c516a487},
}

// BootInfo reads the HHDM offset and the kernel's physical/virtual load
// addresses out of the Limine request responses. Panics if the bootloader
// never answered either request - there is no recovery path for booting
// without them.
func BootInfo() (hhdmOff, kvirt, kphys uint64) {
	if hhdmRequest.Response == nil || kernelAddressRequest.Response == nil {
		panic("amd64: limine boot protocol requests unanswered")
	}
	return hhdmRequest.Response.Offset, kernelAddressRequest.Response.VirtualBase, kernelAddressRequest.Response.PhysicalBase
}
