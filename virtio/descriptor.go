// VirtIO legacy split virtual queue support.
package virtio

import (
	"bytes"
	"encoding/binary"
	"sync"
)

// Descriptor Flags
const (
	Next     = 1
	Write    = 2
	Indirect = 3
)

// Descriptor represents a VirtIO virtual queue descriptor.
//
// table is a live 16-byte slice into the queue's descriptor table region;
// writes through Length/SetFlags/SetNext land there directly, so the
// device sees them without any re-serialization step. buf is the separate
// payload region the descriptor's Address field points at.
type Descriptor struct {
	Address uint64
	length  uint32
	Flags   uint16
	Next    uint16

	table []byte
	buf   []byte
}

// Bytes converts the descriptor structure to byte array format.
func (d *Descriptor) Bytes() []byte {
	buf := new(bytes.Buffer)

	binary.Write(buf, binary.LittleEndian, d.Address)
	binary.Write(buf, binary.LittleEndian, d.length)
	binary.Write(buf, binary.LittleEndian, d.Flags)
	binary.Write(buf, binary.LittleEndian, d.Next)

	return buf.Bytes()
}

// Length updates the descriptor length field, both in the struct and in its
// live table entry, so the device sees the update without a re-push.
func (d *Descriptor) Length(length uint32) {
	binary.LittleEndian.PutUint32(d.table[8:], length)
	d.length = length
}

// SetFlags updates the descriptor flags field in the struct and its live
// table entry.
func (d *Descriptor) SetFlags(flags uint16) {
	binary.LittleEndian.PutUint16(d.table[12:], flags)
	d.Flags = flags
}

// SetNext updates the chain-link field in the struct and its live table
// entry.
func (d *Descriptor) SetNext(next uint16) {
	binary.LittleEndian.PutUint16(d.table[14:], next)
	d.Next = next
}

// init assigns addr/buf, a slice of the queue's reserved payload region, and
// table, this descriptor's 16-byte slot in the descriptor table, then
// writes the initial entry through.
func (d *Descriptor) init(addr uint64, buf []byte, table []byte, flags uint16) {
	d.Address = addr
	d.length = uint32(len(buf))
	d.Flags = flags
	d.buf = buf
	d.table = table
	copy(d.table, d.Bytes())
}

// Available represents a VirtIO virtual queue Available ring buffer.
type Available struct {
	Flags      uint16
	index      uint16
	ring       []uint16
	EventIndex uint16

	buf []byte
}

// Bytes converts the descriptor structure to byte array format.
func (d *Available) Bytes() []byte {
	buf := new(bytes.Buffer)

	binary.Write(buf, binary.LittleEndian, d.Flags)
	binary.Write(buf, binary.LittleEndian, d.index)

	for _, ring := range d.ring {
		binary.Write(buf, binary.LittleEndian, ring)
	}

	binary.Write(buf, binary.LittleEndian, d.EventIndex)

	return buf.Bytes()
}

// Index updates the descriptor index field. A store-fence idiom (index
// write last, after every ring slot it references has been written) is
// what makes Push/Pop's publication safe without an explicit interrupt.
func (d *Available) Index(index uint16) {
	off := 2
	binary.LittleEndian.PutUint16(d.buf[off:], index)

	d.index = index
}

// Set updates the index value of a ring buffer slot.
func (d *Available) Set(n uint16, index uint16) {
	off := 4 + n*2
	binary.LittleEndian.PutUint16(d.buf[off:], index)

	if int(n) < len(d.ring) {
		d.ring[n] = index
	}
}

// Ring returns a ring buffer at the given position.
func (d *Available) Ring(n uint16) uint16 {
	off := 4 + n*2
	d.ring[n] = binary.LittleEndian.Uint16(d.buf[off:])
	return d.ring[n]
}

// usedElem represents a single VirtIO virtual queue Used ring entry.
type usedElem struct {
	Index  uint32
	Length uint32
}

func (e *usedElem) Bytes() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, e)
	return buf.Bytes()
}

// Used represents a VirtIO virtual queue Used ring buffer.
type Used struct {
	Flags      uint16
	index      uint16
	ring       []*usedElem
	AvailEvent uint16

	buf  []byte
	last uint16
}

// Bytes converts the descriptor structure to byte array format.
func (d *Used) Bytes() []byte {
	buf := new(bytes.Buffer)

	binary.Write(buf, binary.LittleEndian, d.Flags)
	binary.Write(buf, binary.LittleEndian, d.index)

	for _, ring := range d.ring {
		buf.Write(ring.Bytes())
	}

	binary.Write(buf, binary.LittleEndian, d.AvailEvent)

	return buf.Bytes()
}

// Index returns the live descriptor index field.
func (d *Used) Index() uint16 {
	off := 2
	d.index = binary.LittleEndian.Uint16(d.buf[off:])
	return d.index
}

// Ring returns a ring buffer element at the given position.
func (d *Used) Ring(n uint16) usedElem {
	off := 4 + n*8
	e := binary.LittleEndian.Uint64(d.buf[off:])
	return usedElem{Index: uint32(e), Length: uint32(e >> 32)}
}

// VirtualQueue represents a VirtIO legacy split virtual queue: a descriptor
// table, an available ring and a used ring, laid out over a single
// statically reserved region (§4.11): descriptor table at offset 0, the
// available ring immediately after it, and the used ring at the next 4 KiB
// boundary.
type VirtualQueue struct {
	sync.Mutex

	Descriptors []*Descriptor
	Available   Available
	Used        Used

	region uint64 // base physical address of the reserved region
	size   uint16
}

// Size returns the queue's descriptor count.
func (d *VirtualQueue) Size() int {
	return int(d.size)
}

// Init reserves a static backing region sized for size descriptors of
// length bytes each, zeroes it, and lays out the descriptor table, the
// available ring and the used ring within it per the legacy layout.
func (d *VirtualQueue) Init(size int, length int, flags uint16) {
	d.Lock()
	defer d.Unlock()

	descTableSize := size * 16
	availSize := 4 + size*2 + 2
	usedRingOffset := alignUp(descTableSize+availSize, pageSize)
	usedSize := 4 + size*8 + 2
	buffersOffset := alignUp(usedRingOffset+usedSize, pageSize)

	total := buffersOffset + size*alignUp(length, 16)
	region, buf := reserve(total)
	d.region = region

	for i := 0; i < size; i++ {
		desc := &Descriptor{}
		off := buffersOffset + i*alignUp(length, 16)
		desc.init(region+uint64(off), buf[off:off+length], buf[i*16:i*16+16], flags)

		d.Descriptors = append(d.Descriptors, desc)
		d.Available.ring = append(d.Available.ring, uint16(i))
		d.Used.ring = append(d.Used.ring, &usedElem{})
	}

	if flags == Write {
		// make all buffers immediately available to the device
		d.Available.index = uint16(size)
	}

	d.Available.buf = buf[descTableSize : descTableSize+availSize]
	d.Used.buf = buf[usedRingOffset : usedRingOffset+usedSize]
	d.size = uint16(size)
}

// Address returns the queue's single reserved region's physical base
// address; the legacy transport derives the available/used ring offsets
// from the fixed layout itself; driver/device are kept for symmetry with
// the modern split-queue addressing scheme this layout descends from.
func (d *VirtualQueue) Address() (desc uint64, driver uint64, device uint64) {
	return d.region, d.region + uint64(len(d.Descriptors)*16), d.region + uint64(alignUp(len(d.Descriptors)*16+4+len(d.Descriptors)*2+2, pageSize))
}

// Pop receives a single used buffer from the virtual queue.
func (d *VirtualQueue) Pop() (buf []byte) {
	d.Lock()
	defer d.Unlock()

	if d.Used.Index() == d.Used.last {
		return
	}

	elem := d.Used.Ring(d.Used.last % d.size)

	buf = make([]byte, elem.Length)
	copy(buf, d.Descriptors[elem.Index].buf[:elem.Length])

	d.Available.Set(d.Available.index%d.size, uint16(elem.Index))
	d.Available.index++
	d.Available.Index(d.Available.index)

	d.Used.last++

	return
}

// Push supplies a single available buffer to the virtual queue. The write
// into the descriptor's backing buffer happens before the available index
// is bumped, so the device never observes a partially written buffer.
func (d *VirtualQueue) Push(buf []byte) {
	d.Lock()
	defer d.Unlock()

	index := d.Available.Ring(d.Available.index % d.size)

	d.Descriptors[index].Length(uint32(len(buf)))
	copy(d.Descriptors[index].buf, buf)

	memoryBarrier()
	d.Available.index++
	d.Available.Index(d.Available.index)
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
