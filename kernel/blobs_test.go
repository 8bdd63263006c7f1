package kernel

import (
	"bytes"
	"testing"

	"github.com/rugo-os/rugo/amd64"
)

func TestHelloBlobLayout(t *testing.T) {
	b := HelloBlob(amd64.UserCodeBase)

	const codeLen = 10 + 5 + 5 + 2 + 1
	if len(b) != codeLen+len("USER: hello\n") {
		t.Fatalf("len(blob) = %d, want %d", len(b), codeLen+len("USER: hello\n"))
	}
	if b[codeLen-1] != 0xF4 {
		t.Errorf("blob[%d] = %#x, want 0xF4 (hlt)", codeLen-1, b[codeLen-1])
	}
	if string(b[codeLen:]) != "USER: hello\n" {
		t.Errorf("trailing data = %q, want %q", b[codeLen:], "USER: hello\n")
	}

	// the movRdiAbs immediate must point exactly at the data segment.
	wantAddr := amd64.UserCodeBase + uint64(codeLen)
	gotAddr := u64leDecode(b[2:10])
	if gotAddr != wantAddr {
		t.Errorf("embedded data address = %#x, want %#x", gotAddr, wantAddr)
	}
}

func u64leDecode(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func TestBlobsContainTheirMarkers(t *testing.T) {
	const pingBase = amd64.UserCodeBase + amd64.PageSize

	cases := []struct {
		name   string
		base   uint64
		blob   []byte
		marker string
	}{
		{"ipc ping-pong (pong)", amd64.UserCodeBase, ipcPongBlob(amd64.UserCodeBase), "PONG: ok\n"},
		{"ipc ping-pong (ping)", pingBase, ipcPingBlob(pingBase), "PING: ok\n"},
		{"ipc buffer-full", amd64.UserCodeBase, ipcBufferFullBlob(amd64.UserCodeBase), "IPC: full ok\n"},
		{"svc overwrite", amd64.UserCodeBase, svcOverwriteBlob(amd64.UserCodeBase), "SVC: overwrite ok\n"},
		{"svc full", amd64.UserCodeBase, svcFullBlob(amd64.UserCodeBase), "SVC: full ok\n"},
		{"badptr", amd64.UserCodeBase, badPtrBlob(amd64.UserCodeBase), "IPC: badptr send ok\n"},
		{"blk rw", amd64.UserCodeBase, blkRWBlob(amd64.UserCodeBase), "BLK: rw ok\n"},
		{"blk badlen", amd64.UserCodeBase, blkBadLenBlob(amd64.UserCodeBase), "BLK: badlen ok\n"},
	}

	for _, c := range cases {
		if !bytes.Contains(c.blob, []byte(c.marker)) {
			t.Errorf("%s: blob does not contain marker %q", c.name, c.marker)
		}
		if len(c.blob) == 0 || len(c.blob) > 4096 {
			t.Errorf("%s: len(blob) = %d, want 1..4096 (must fit one code page)", c.name, len(c.blob))
		}
		assertMarkerAddr(t, c.name, c.blob, c.base, c.marker)
	}
}

// assertMarkerAddr verifies the movRdiAbs immediate that loads the
// debug_write(marker) argument actually points at the marker's real
// position in the blob. Every blob above ends in the same fixed tail -
// movRdiAbs(marker), movEsi(len), movEax(SysDebugWrite), syscall,
// movEdi(0), movEax(SysDebugExit), syscall - so the tail's position can be
// found without knowing codeLen in advance, and a wrong codeLen (the kind
// of bug that shifted every address in ipcPingBlob) then shows up as a
// mismatch here instead of silently passing a bytes.Contains check.
func assertMarkerAddr(t *testing.T, name string, blob []byte, base uint64, marker string) {
	t.Helper()

	markerPos := bytes.Index(blob, []byte(marker))
	if markerPos < 0 {
		t.Fatalf("%s: marker %q not found in blob", name, marker)
	}

	exitSeq := append(append([]byte{}, movEdi(0)...), append(movEax(SysDebugExit), opSyscall...)...)
	exitPos := bytes.Index(blob, exitSeq)
	if exitPos < 0 || exitPos+len(exitSeq) > markerPos {
		t.Fatalf("%s: debug_exit sequence not found before marker", name)
	}

	const writeInstrLen = 10 + 5 + 5 + 2 // movRdiAbs, movEsi, movEax, syscall
	writeInstrPos := exitPos - writeInstrLen
	if writeInstrPos < 0 {
		t.Fatalf("%s: blob too short for debug_write(marker) instruction", name)
	}
	if blob[writeInstrPos] != 0x48 || blob[writeInstrPos+1] != 0xBF {
		t.Fatalf("%s: expected movRdiAbs opcode at %d, got %#x %#x", name, writeInstrPos, blob[writeInstrPos], blob[writeInstrPos+1])
	}

	got := u64leDecode(blob[writeInstrPos+2 : writeInstrPos+10])
	want := base + uint64(markerPos)
	if got != want {
		t.Errorf("%s: embedded marker address = %#x, want %#x (codeLen is wrong)", name, got, want)
	}
}

func TestBlkRWBlobFillsSectorWithAA(t *testing.T) {
	b := blkRWBlob(amd64.UserCodeBase)
	const codeLen = 5 + 10 + 5 + 5 + 2 + 5 + 10 + 5 + 5 + 2 + 10 + 5 + 5 + 2 + 5 + 5 + 2
	buf := b[codeLen : codeLen+512]
	for i, v := range buf {
		if v != 0xAA {
			t.Fatalf("buf[%d] = %#x, want 0xAA", i, v)
		}
	}
}

func TestSvcFullBlobEmbedsFiveNames(t *testing.T) {
	b := svcFullBlob(amd64.UserCodeBase)
	for _, name := range []string{"one", "two", "six", "ten", "ext"} {
		if !bytes.Contains(b, []byte(name)) {
			t.Errorf("svcFullBlob does not embed name %q", name)
		}
	}
}
