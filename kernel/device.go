package kernel

import "github.com/rugo-os/rugo/virtio"

// BlockService adapts the VirtIO block driver to the syscall layer's
// sector-aligned, bounded-length contract (§4.9).
type BlockService struct {
	drv *virtio.Block
}

// NewBlockService wraps an already-initialized VirtIO block driver.
func NewBlockService(drv *virtio.Block) *BlockService {
	return &BlockService{drv: drv}
}

// ReadWrite implements syscalls 13/14 (blk_read/blk_write, §4.8): length
// must be a non-zero multiple of 512, at most 4096 (§4.9 invariants).
func (b *BlockService) ReadWrite(lba uint64, buf []byte, write bool) SysErr {
	if len(buf) == 0 || len(buf)%512 != 0 || len(buf) > 4096 {
		return ErrBadArg
	}
	if err := b.drv.ReadWrite(lba, buf, write); err != nil {
		return ErrDeviceFail
	}
	return ErrNone
}

// NetService adapts the VirtIO net driver for the network scenario's ARP
// and UDP echo responder (netproto.go); the IP/ARP protocol handling
// itself is a thin consumer of Recv/Send, not part of the driver (§1,
// "the IP/ARP protocol handling beyond its role as a VirtIO consumer" is an
// external collaborator to the core).
type NetService struct {
	drv *virtio.Net
}

// NewNetService wraps an already-initialized VirtIO net driver.
func NewNetService(drv *virtio.Net) *NetService {
	return &NetService{drv: drv}
}

func (n *NetService) Recv() (frame []byte, ok bool) { return n.drv.Recv() }
func (n *NetService) Send(frame []byte) bool        { return n.drv.Send(frame) }
