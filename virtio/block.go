package virtio

import "encoding/binary"

const (
	blockSectorSize = 512
	blockMaxLength  = 4096

	blockReqTypeIn  = 0
	blockReqTypeOut = 1

	blockHeaderLength = 16
	blockQueueIndex   = 0
	blockQueueSize    = 3 // exactly the header/data/status chain, no more

	blockSpinLimit = 1 << 20
)

// blockHeader is the VirtIO block request header: a 4-byte type, a 4-byte
// reserved field and an 8-byte starting sector.
type blockHeader struct {
	Type   uint32
	Sector uint64
}

func (h *blockHeader) bytes() []byte {
	buf := make([]byte, blockHeaderLength)
	binary.LittleEndian.PutUint32(buf[0:], h.Type)
	binary.LittleEndian.PutUint64(buf[8:], h.Sector)
	return buf
}

// Block drives a legacy VirtIO block device: a single request virtqueue
// carrying exactly one in-flight request, built from a fixed
// header/data/status three-descriptor chain.
type Block struct {
	io    VirtIO
	queue VirtualQueue
}

// NewBlock negotiates features with dev and sets up the request virtqueue,
// chaining its three descriptors (header -> data -> status) once for the
// lifetime of the driver.
func NewBlock(dev VirtIO) (*Block, error) {
	if err := dev.Init(0); err != nil {
		return nil, err
	}

	b := &Block{io: dev}
	b.queue.Init(blockQueueSize, blockMaxLength, 0)

	desc := b.queue.Descriptors
	desc[0].SetNext(1)
	desc[1].SetNext(2)

	if err := dev.SetQueue(blockQueueIndex, &b.queue); err != nil {
		return nil, err
	}

	dev.SetReady()

	return b, nil
}

// ReadWrite performs a single sector-aligned block I/O of len(buf) bytes
// starting at sector, reading from the device into buf (write == false) or
// writing buf to the device (write == true). Only the one in-flight chain
// this driver owns is ever submitted - a second call cannot be issued until
// this one returns.
func (b *Block) ReadWrite(sector uint64, buf []byte, write bool) error {
	n := len(buf)

	if n == 0 || n%blockSectorSize != 0 || n > blockMaxLength {
		return errBadLength
	}

	reqType := uint32(blockReqTypeIn)
	if write {
		reqType = blockReqTypeOut
	}

	hdr := (&blockHeader{Type: reqType, Sector: sector}).bytes()

	desc := b.queue.Descriptors

	copy(desc[0].buf, hdr)
	desc[0].Length(blockHeaderLength)
	desc[0].SetFlags(Next)

	dataFlags := uint16(Next)
	if !write {
		dataFlags |= Write
	}
	desc[1].SetFlags(dataFlags)

	if write {
		copy(desc[1].buf, buf)
	}
	desc[1].Length(uint32(n))

	desc[2].SetFlags(Write)
	desc[2].Length(1)
	desc[2].buf[0] = 0xff // poisoned, overwritten by the device on completion

	b.submitChain()
	b.io.QueueNotify(blockQueueIndex)

	if !b.pollUsed() {
		return errTimeout
	}

	if status := desc[2].buf[0]; status != 0 {
		return errDeviceFail
	}

	if !write {
		copy(buf, desc[1].buf[:n])
	}

	return nil
}

// submitChain publishes descriptor 0 (the chain head) as the single
// available-ring entry and bumps the available index behind a write
// barrier, per the ordering guarantee every virtqueue submission must
// respect: every descriptor write lands before the index that exposes it.
func (b *Block) submitChain() {
	q := &b.queue
	q.Lock()
	defer q.Unlock()

	q.Available.Set(q.Available.index%q.size, 0)
	memoryBarrier()
	q.Available.index++
	q.Available.Index(q.Available.index)
}

// pollUsed waits for the chain submitted by submitChain to appear on the
// used ring, advancing Used.last past it, and acks the ISR status register
// so a real interrupt-driven device doesn't see its line stay asserted. The
// ISR bit alone is not completion: it can be set for reasons unrelated to
// this queue, and never by itself tells the driver which (if any) request
// actually finished.
func (b *Block) pollUsed() bool {
	q := &b.queue

	for i := 0; i < blockSpinLimit; i++ {
		if q.Used.Index() != q.Used.last {
			q.Used.last++
			b.io.InterruptStatus()
			return true
		}
	}
	return false
}
