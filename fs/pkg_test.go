package fs

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"
)

func buildPkg(name string, payload []byte) []byte {
	sum := sha256.Sum256(payload)

	raw := make([]byte, pkgHeaderSize+len(payload))
	copy(raw[0:4], pkgMagic[:])
	binary.LittleEndian.PutUint32(raw[4:8], uint32(len(payload)))
	copy(raw[8:8+pkgNameSize], name)
	copy(raw[8+pkgNameSize:pkgHeaderSize], sum[:])
	copy(raw[pkgHeaderSize:], payload)

	return raw
}

func TestParsePackageValid(t *testing.T) {
	payload := []byte("binary contents go here")
	raw := buildPkg("init", payload)

	pkg, err := ParsePackage(raw)
	if err != nil {
		t.Fatalf("ParsePackage: %v", err)
	}
	if pkg.Name != "init" {
		t.Errorf("Name = %q, want %q", pkg.Name, "init")
	}
	if string(pkg.Binary) != string(payload) {
		t.Errorf("Binary = %q, want %q", pkg.Binary, payload)
	}
}

func TestParsePackageBadMagic(t *testing.T) {
	raw := buildPkg("init", []byte("x"))
	raw[0] = 'X'

	if _, err := ParsePackage(raw); err != ErrBadPkgMagic {
		t.Errorf("err = %v, want ErrBadPkgMagic", err)
	}
}

func TestParsePackageDigestMismatch(t *testing.T) {
	raw := buildPkg("init", []byte("original"))
	raw[pkgHeaderSize] = 'X' // corrupt the payload after the digest was computed

	if _, err := ParsePackage(raw); err != ErrDigestMismatch {
		t.Errorf("err = %v, want ErrDigestMismatch", err)
	}
}

func TestParsePackageTooShort(t *testing.T) {
	if _, err := ParsePackage(make([]byte, 10)); err != ErrBadPkgMagic {
		t.Errorf("err = %v, want ErrBadPkgMagic", err)
	}
}
