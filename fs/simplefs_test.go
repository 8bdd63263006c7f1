package fs

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// memDisk is an in-memory BlockDevice for exercising the parser without any
// VirtIO transport.
type memDisk struct {
	sectors [][SectorSize]byte
}

func newMemDisk(n int) *memDisk {
	return &memDisk{sectors: make([][SectorSize]byte, n)}
}

func (d *memDisk) ReadWrite(sector uint64, buf []byte, write bool) error {
	if write {
		copy(d.sectors[sector][:], buf)
	} else {
		copy(buf, d.sectors[sector][:])
	}
	return nil
}

func buildVolume(files map[string][]byte) *memDisk {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}

	d := newMemDisk(16)

	copy(d.sectors[magicSector][0:4], magic[:])
	binary.LittleEndian.PutUint32(d.sectors[magicSector][4:8], uint32(len(names)))

	nextSector := uint32(dirSector + 1)
	for i, name := range names {
		off := i * dirEntrySize
		data := files[name]
		sectors := (len(data) + SectorSize - 1) / SectorSize

		copy(d.sectors[dirSector][off:off+nameSize], name)
		binary.LittleEndian.PutUint32(d.sectors[dirSector][off+nameSize:off+nameSize+4], nextSector)
		binary.LittleEndian.PutUint32(d.sectors[dirSector][off+nameSize+4:off+nameSize+8], uint32(len(data)))

		for s := 0; s < sectors; s++ {
			lo := s * SectorSize
			hi := lo + SectorSize
			if hi > len(data) {
				hi = len(data)
			}
			copy(d.sectors[int(nextSector)+s][:], data[lo:hi])
		}
		nextSector += uint32(sectors)
	}

	return d
}

func TestMountAndReadFile(t *testing.T) {
	payload := bytes.Repeat([]byte{0x42}, 700) // spans two sectors
	d := buildVolume(map[string][]byte{"blob.bin": payload})

	volume, err := Mount(d)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}

	entries := volume.Entries()
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].Name != "blob.bin" {
		t.Errorf("entries[0].Name = %q, want %q", entries[0].Name, "blob.bin")
	}

	e, err := volume.Stat("blob.bin")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}

	got, err := volume.ReadFile(e)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("ReadFile round-trip mismatch")
	}
}

func TestMountRejectsBadMagic(t *testing.T) {
	d := newMemDisk(4)
	// sector 0 left zeroed: no "SFS1" magic.
	if _, err := Mount(d); err != ErrBadMagic {
		t.Errorf("Mount error = %v, want ErrBadMagic", err)
	}
}

func TestStatNoSuchFile(t *testing.T) {
	d := buildVolume(map[string][]byte{"a": {1, 2, 3}})
	volume, err := Mount(d)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if _, err := volume.Stat("missing"); err != ErrNoSuchFile {
		t.Errorf("Stat error = %v, want ErrNoSuchFile", err)
	}
}
