package virtio

import (
	"errors"
	"sync/atomic"
)

var (
	errBadLength  = errors.New("virtio: invalid request length")
	errTimeout    = errors.New("virtio: device did not respond")
	errDeviceFail = errors.New("virtio: device reported request failure")
)

// fence anchors the atomic store used as a compiler and CPU write barrier:
// VirtIO's ring protocol requires every descriptor write to be visible
// before the available index that exposes it to the device.
var fence uint32

func memoryBarrier() {
	atomic.AddUint32(&fence, 1)
}
