package kernel

// Hand-assembled user program blobs (§9 "Hand-assembled user blobs"): each
// is opaque, position-dependent x86-64 machine code loadable at VA
// 0x400000, built here from a tiny local encoder instead of written out as
// a literal byte table, since the scenarios in §8 need more than the
// original three-blob set. Its behavior is specified entirely by the
// scenario that installs it - nothing else in the kernel inspects a blob's
// contents.

func u32le(v uint32) []byte { return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)} }

func u64le(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

// movEax/movEdi/movEsi/movEdx/movR10d load a zero-extended 32-bit immediate
// into the syscall-number/argument registers (§4.8: rax, rdi, rsi, rdx,
// r10).
func movEax(v uint32) []byte  { return append([]byte{0xB8}, u32le(v)...) }
func movEdi(v uint32) []byte  { return append([]byte{0xBF}, u32le(v)...) }
func movEsi(v uint32) []byte  { return append([]byte{0xBE}, u32le(v)...) }
func movEdx(v uint32) []byte  { return append([]byte{0xBA}, u32le(v)...) }
func movR10d(v uint32) []byte { return append([]byte{0x41, 0xBA}, u32le(v)...) }

// movRdiAbs/movRsiAbs load a full 64-bit absolute address - used for the
// address of a data region appended to the same blob, computable at
// assembly time since the blob's own load address is fixed.
func movRdiAbs(v uint64) []byte { return append([]byte{0x48, 0xBF}, u64le(v)...) }
func movRsiAbs(v uint64) []byte { return append([]byte{0x48, 0xBE}, u64le(v)...) }

var (
	opSyscall = []byte{0xCD, 0x80} // int 0x80, the syscall gate (§4.1)
	opHalt    = []byte{0xF4}       // hlt: privileged, #GP at CPL 3 (§4.3)
)

// blobBuilder assembles instructions and trailing data in order and
// resolves absolute data addresses against userEntry once the whole layout
// is known.
type blobBuilder struct {
	code []byte
	data []byte
}

func (b *blobBuilder) emit(ops ...[]byte) {
	for _, op := range ops {
		b.code = append(b.code, op...)
	}
}

// bytes concatenates code and data. There is no relocation table: every
// data reference is an absolute address computed up front from the known
// code length (dataAddr), so code and data need only be assembled once and
// appended in order.
func (b *blobBuilder) bytes() []byte {
	return append(append([]byte{}, b.code...), b.data...)
}

// dataAddr computes the absolute address of a data-segment byte at dataOff,
// given base (the blob's own eventual load address - UserCodeBase plus its
// slot index times PageSize, per §4.5) and the blob's fixed code length.
func dataAddr(base uint64, codeLen int, dataOff int) uint64 {
	return base + uint64(codeLen) + uint64(dataOff)
}

// HelloBlob implements the "hello" scenario (§8): debug_write("USER:
// hello\n", 12) then a deliberate privileged-instruction fault. base is the
// virtual address this blob will be loaded at (amd64.UserCodeBase plus its
// AddCodePage slot index times amd64.PageSize).
func HelloBlob(base uint64) []byte {
	msg := "USER: hello\n"

	const codeLen = 10 + 5 + 5 + 2 + 1 // movRdiAbs, movEsi, movEax, syscall, hlt

	var b blobBuilder
	b.emit(
		movRdiAbs(dataAddr(base, codeLen, 0)), movEsi(uint32(len(msg))), movEax(SysDebugWrite), opSyscall,
		opHalt,
	)
	b.data = append(b.data, msg...)

	return b.bytes()
}

// ipcPongBlob implements the "pong" side of "ipc ping-pong" (§8): register
// "pong" at endpoint 0, recv(0), send(1, "pong", 4), print, exit.
func ipcPongBlob(base uint64) []byte {
	name := "pong"
	reply := "pong"
	marker := "PONG: ok\n"

	var b blobBuilder

	// recv buffer lives in the data segment too, right after the strings;
	// its contents don't matter, only its address and capacity.
	const recvCap = 64

	nameOff := 0
	replyOff := nameOff + len(name)
	markerOff := replyOff + len(reply)
	recvOff := markerOff + len(marker)

	// Every instruction here is fixed-length regardless of operand value,
	// so the code length is known before any address is: codeLen is
	// computed directly and the blob is built in a single pass.
	const codeLen = 10 + // movRdiAbs(name)
		5 + // movEsi(len(name))
		5 + // movEdx(0) (endpoint)
		5 + // movEax(SysSvcRegister)
		2 + // syscall
		5 + // movEdi(0) (endpoint)
		10 + // movRsiAbs(recvBuf)
		5 + // movEdx(recvCap)
		5 + // movEax(SysIPCRecv)
		2 + // syscall
		5 + // movEdi(1) (endpoint)
		10 + // movRsiAbs(reply)
		5 + // movEdx(len(reply))
		5 + // movEax(SysIPCSend)
		2 + // syscall
		10 + // movRdiAbs(marker)
		5 + // movEsi(len(marker))
		5 + // movEax(SysDebugWrite)
		2 + // syscall
		5 + // movEdi(0) (exit code)
		5 + // movEax(SysDebugExit)
		2 // syscall

	b.emit(
		movRdiAbs(dataAddr(base, codeLen, nameOff)), movEsi(uint32(len(name))), movEdx(0), movEax(SysSvcRegister), opSyscall,
		movEdi(0), movRsiAbs(dataAddr(base, codeLen, recvOff)), movEdx(recvCap), movEax(SysIPCRecv), opSyscall,
		movEdi(1), movRsiAbs(dataAddr(base, codeLen, replyOff)), movEdx(uint32(len(reply))), movEax(SysIPCSend), opSyscall,
		movRdiAbs(dataAddr(base, codeLen, markerOff)), movEsi(uint32(len(marker))), movEax(SysDebugWrite), opSyscall,
		movEdi(0), movEax(SysDebugExit), opSyscall,
	)

	b.data = append(b.data, name...)
	b.data = append(b.data, reply...)
	b.data = append(b.data, marker...)
	b.data = append(b.data, make([]byte, recvCap)...)

	return b.bytes()
}

// ipcPingBlob implements the "ping" side (§8): lookup("pong"), send(ep,
// "ping", 4), recv(1), print, exit.
func ipcPingBlob(base uint64) []byte {
	lookupName := "pong"
	send := "ping"
	marker := "PING: ok\n"
	const recvCap = 64

	lookupOff := 0
	sendOff := lookupOff + len(lookupName)
	markerOff := sendOff + len(send)
	recvOff := markerOff + len(marker)

	const codeLen = 10 + 5 + 5 + 2 + // movRdiAbs(lookupName), movEsi(len), movEax(lookup), syscall
		2 + 10 + 5 + 5 + 2 + // mov edi,eax (2 bytes) then build send args
		5 + 10 + 5 + 5 + 2 + // recv(1, buf, cap)
		10 + 5 + 5 + 2 + // debug_write(marker)
		5 + 5 + 2 // debug_exit

	var b blobBuilder
	b.emit(
		movRdiAbs(dataAddr(base, codeLen, lookupOff)), movEsi(uint32(len(lookupName))), movEax(SysSvcLookup), opSyscall,
		// rax now holds the endpoint (or sentinel); move it into edi for send.
		[]byte{0x89, 0xC7}, // mov edi, eax
		movRsiAbs(dataAddr(base, codeLen, sendOff)), movEdx(uint32(len(send))), movEax(SysIPCSend), opSyscall,
		movEdi(1), movRsiAbs(dataAddr(base, codeLen, recvOff)), movEdx(recvCap), movEax(SysIPCRecv), opSyscall,
		movRdiAbs(dataAddr(base, codeLen, markerOff)), movEsi(uint32(len(marker))), movEax(SysDebugWrite), opSyscall,
		movEdi(0), movEax(SysDebugExit), opSyscall,
	)

	b.data = append(b.data, lookupName...)
	b.data = append(b.data, send...)
	b.data = append(b.data, marker...)
	b.data = append(b.data, make([]byte, recvCap)...)

	return b.bytes()
}

// ipcBufferFullBlob implements "ipc buffer-full" (§8): send(0,"AAAA",4)->0,
// send(0,"BBBB",4)->-1, recv(0,buf,256)->4 with buf[0]=='A', then print.
func ipcBufferFullBlob(base uint64) []byte {
	a, bb, marker := "AAAA", "BBBB", "IPC: full ok\n"
	const recvCap = 256

	aOff := 0
	bOff := aOff + len(a)
	mOff := bOff + len(bb)
	rOff := mOff + len(marker)

	const codeLen = 10 + 5 + 5 + 5 + 2 + // send(0,a,4)
		10 + 5 + 5 + 5 + 2 + // send(0,b,4)
		5 + 10 + 5 + 5 + 2 + // recv(0,buf,256)
		10 + 5 + 5 + 2 + // debug_write(marker)
		5 + 5 + 2

	var b blobBuilder
	b.emit(
		movEdi(0), movRsiAbs(dataAddr(base, codeLen, aOff)), movEdx(uint32(len(a))), movEax(SysIPCSend), opSyscall,
		movEdi(0), movRsiAbs(dataAddr(base, codeLen, bOff)), movEdx(uint32(len(bb))), movEax(SysIPCSend), opSyscall,
		movEdi(0), movRsiAbs(dataAddr(base, codeLen, rOff)), movEdx(recvCap), movEax(SysIPCRecv), opSyscall,
		movRdiAbs(dataAddr(base, codeLen, mOff)), movEsi(uint32(len(marker))), movEax(SysDebugWrite), opSyscall,
		movEdi(0), movEax(SysDebugExit), opSyscall,
	)

	b.data = append(b.data, a...)
	b.data = append(b.data, bb...)
	b.data = append(b.data, marker...)
	b.data = append(b.data, make([]byte, recvCap)...)

	return b.bytes()
}

// svcOverwriteBlob implements "svc overwrite" (§8): register("foo",1)->0,
// register("foo",2)->0, lookup("foo")->2, then print.
func svcOverwriteBlob(base uint64) []byte {
	name, marker := "foo", "SVC: overwrite ok\n"
	nameOff := 0
	markerOff := nameOff + len(name)

	const codeLen = 10 + 5 + 5 + 5 + 2 + // register(foo,1)
		10 + 5 + 5 + 5 + 2 + // register(foo,2)
		10 + 5 + 5 + 2 + // lookup(foo)
		10 + 5 + 5 + 2 +
		5 + 5 + 2

	var b blobBuilder
	b.emit(
		movRdiAbs(dataAddr(base, codeLen, nameOff)), movEsi(uint32(len(name))), movEdx(1), movEax(SysSvcRegister), opSyscall,
		movRdiAbs(dataAddr(base, codeLen, nameOff)), movEsi(uint32(len(name))), movEdx(2), movEax(SysSvcRegister), opSyscall,
		movRdiAbs(dataAddr(base, codeLen, nameOff)), movEsi(uint32(len(name))), movEax(SysSvcLookup), opSyscall,
		movRdiAbs(dataAddr(base, codeLen, markerOff)), movEsi(uint32(len(marker))), movEax(SysDebugWrite), opSyscall,
		movEdi(0), movEax(SysDebugExit), opSyscall,
	)

	b.data = append(b.data, name...)
	b.data = append(b.data, marker...)

	return b.bytes()
}

// svcFullBlob implements "svc full" (§8): four unique names register OK, a
// fifth returns -1, then print (MaxServices == 4).
func svcFullBlob(base uint64) []byte {
	names := []string{"one", "two", "six", "ten", "ext"}
	marker := "SVC: full ok\n"

	offs := make([]int, len(names))
	cur := 0
	for i, n := range names {
		offs[i] = cur
		cur += len(n)
	}
	markerOff := cur

	codeLen := 0
	for range names {
		codeLen += 10 + 5 + 5 + 5 + 2
	}
	codeLen += 10 + 5 + 5 + 2 + 5 + 5 + 2

	var b blobBuilder
	for i, n := range names {
		b.emit(
			movRdiAbs(dataAddr(base, codeLen, offs[i])), movEsi(uint32(len(n))), movEdx(uint32(i)), movEax(SysSvcRegister), opSyscall,
		)
	}
	b.emit(
		movRdiAbs(dataAddr(base, codeLen, markerOff)), movEsi(uint32(len(marker))), movEax(SysDebugWrite), opSyscall,
		movEdi(0), movEax(SysDebugExit), opSyscall,
	)

	for _, n := range names {
		b.data = append(b.data, n...)
	}
	b.data = append(b.data, marker...)

	return b.bytes()
}

// badPtrBlob implements "badptr" (§8): send(0, 0xDEAD0000, 16) -> -1, then
// print. The pointer is never dereferenced by the kernel - CopyinUser
// rejects it at user_range_ok before any access.
func badPtrBlob(base uint64) []byte {
	marker := "IPC: badptr send ok\n"
	const badAddr = 0xDEAD0000

	const codeLen = 5 + 10 + 5 + 5 + 2 + // send(0, 0xDEAD0000, 16)
		10 + 5 + 5 + 2 +
		5 + 5 + 2

	var b blobBuilder
	b.emit(
		movEdi(0), movRsiAbs(badAddr), movEdx(16), movEax(SysIPCSend), opSyscall,
		movRdiAbs(dataAddr(base, codeLen, 0)), movEsi(uint32(len(marker))), movEax(SysDebugWrite), opSyscall,
		movEdi(0), movEax(SysDebugExit), opSyscall,
	)

	b.data = append(b.data, marker...)

	return b.bytes()
}

// blkRWBlob implements "blk rw" (§8): write 512 bytes of 0xAA to LBA 0,
// read back, then print (the byte-equality check is the scenario's
// expectation on the device side, not something the blob itself verifies -
// it just performs the round trip and reports done).
func blkRWBlob(base uint64) []byte {
	marker := "BLK: rw ok\n"
	const bufSize = 512

	const codeLen = 5 + 10 + 5 + 5 + 2 + // blk_write(0, buf, 512)
		5 + 10 + 5 + 5 + 2 + // blk_read(0, buf, 512)
		10 + 5 + 5 + 2 +
		5 + 5 + 2

	var b blobBuilder
	b.emit(
		movEdi(0), movRsiAbs(dataAddr(base, codeLen, 0)), movEdx(bufSize), movEax(SysBlkWrite), opSyscall,
		movEdi(0), movRsiAbs(dataAddr(base, codeLen, 0)), movEdx(bufSize), movEax(SysBlkRead), opSyscall,
		movRdiAbs(dataAddr(base, codeLen, bufSize)), movEsi(uint32(len(marker))), movEax(SysDebugWrite), opSyscall,
		movEdi(0), movEax(SysDebugExit), opSyscall,
	)

	buf := make([]byte, bufSize)
	for i := range buf {
		buf[i] = 0xAA
	}
	b.data = append(b.data, buf...)
	b.data = append(b.data, marker...)

	return b.bytes()
}

// blkBadLenBlob implements "blk badlen" (§8): blk_read(0, buf, 513) -> -1.
func blkBadLenBlob(base uint64) []byte {
	marker := "BLK: badlen ok\n"

	const codeLen = 5 + 10 + 5 + 5 + 2 +
		10 + 5 + 5 + 2 +
		5 + 5 + 2

	var b blobBuilder
	b.emit(
		movEdi(0), movRsiAbs(dataAddr(base, codeLen, 0)), movEdx(513), movEax(SysBlkRead), opSyscall,
		movRdiAbs(dataAddr(base, codeLen, 513)), movEsi(uint32(len(marker))), movEax(SysDebugWrite), opSyscall,
		movEdi(0), movEax(SysDebugExit), opSyscall,
	)

	b.data = append(b.data, make([]byte, 513)...)
	b.data = append(b.data, marker...)

	return b.bytes()
}
