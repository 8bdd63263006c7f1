package virtio

const (
	netHeaderLength = 10 // legacy virtio_net_hdr, no mergeable-rxbuf field
	netFrameMax     = 1514
	netBufferLength = netHeaderLength + netFrameMax

	netQueueRX = 0
	netQueueTX = 1
	netQueueSize = 2

	netSpinLimit = 1 << 20
)

// Net drives a legacy VirtIO network device: separate RX and TX
// virtqueues, each carrying a single pre-allocated descriptor, with the
// 10-byte legacy virtio_net_hdr stripped on receive and prepended zeroed on
// send.
type Net struct {
	io VirtIO
	rx VirtualQueue
	tx VirtualQueue
}

// NewNet negotiates features with dev, sets up RX and TX virtqueues, and
// posts the single RX descriptor so the device has somewhere to land the
// first frame.
func NewNet(dev VirtIO) (*Net, error) {
	if err := dev.Init(0); err != nil {
		return nil, err
	}

	n := &Net{io: dev}

	n.rx.Init(netQueueSize, netBufferLength, Write)
	n.tx.Init(netQueueSize, netBufferLength, 0)

	if err := dev.SetQueue(netQueueRX, &n.rx); err != nil {
		return nil, err
	}
	if err := dev.SetQueue(netQueueTX, &n.tx); err != nil {
		return nil, err
	}

	dev.SetReady()

	n.postRX()

	return n, nil
}

func (n *Net) postRX() {
	n.rx.Lock()
	defer n.rx.Unlock()

	n.rx.Available.Set(n.rx.Available.index%n.rx.size, 0)
	memoryBarrier()
	n.rx.Available.index++
	n.rx.Available.Index(n.rx.Available.index)
}

// Recv returns the next received frame with its virtio_net_hdr stripped,
// non-blocking: ok is false if nothing is pending. The RX descriptor is
// re-posted immediately so the device always has a buffer to land the next
// frame in.
func (n *Net) Recv() (frame []byte, ok bool) {
	n.rx.Lock()

	if n.rx.Used.Index() == n.rx.Used.last {
		n.rx.Unlock()
		return nil, false
	}

	elem := n.rx.Used.Ring(n.rx.Used.last % n.rx.size)
	n.rx.Used.last++

	total := int(elem.Length)
	if total < netHeaderLength {
		n.rx.Unlock()
		n.postRX()
		return nil, false
	}

	frame = make([]byte, total-netHeaderLength)
	copy(frame, n.rx.Descriptors[elem.Index].buf[netHeaderLength:total])

	n.rx.Unlock()
	n.postRX()

	return frame, true
}

// Send prepends a zeroed legacy virtio_net_hdr to frame, submits it on the
// TX queue and polls for completion. It returns false on timeout, with no
// retry.
func (n *Net) Send(frame []byte) bool {
	if len(frame) > netFrameMax {
		return false
	}

	desc := n.tx.Descriptors[0]

	for i := 0; i < netHeaderLength; i++ {
		desc.buf[i] = 0
	}
	copy(desc.buf[netHeaderLength:], frame)
	desc.Length(uint32(netHeaderLength + len(frame)))
	desc.SetFlags(0)

	n.submitTX()
	n.io.QueueNotify(netQueueTX)

	return n.pollTX()
}

func (n *Net) submitTX() {
	n.tx.Lock()
	defer n.tx.Unlock()

	n.tx.Available.Set(n.tx.Available.index%n.tx.size, 0)
	memoryBarrier()
	n.tx.Available.index++
	n.tx.Available.Index(n.tx.Available.index)
}

// pollTX waits for the frame submitted by submitTX to appear on the TX used
// ring, advancing Used.last past it, and acks the ISR status register. The
// ISR bit alone never says which queue or descriptor completed - only the
// used ring does.
func (n *Net) pollTX() bool {
	for i := 0; i < netSpinLimit; i++ {
		if n.tx.Used.Index() != n.tx.Used.last {
			n.tx.Used.last++
			n.io.InterruptStatus()
			return true
		}
	}
	return false
}
