// Package wire frames cached document snapshots. Each snapshot carries the
// stat fingerprint (mtime + size) of the file it was read from; a reader
// validates the fingerprint against the current file before trusting the
// snapshot, so a write by another process invalidates every foreign cache
// entry on its next read.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const version byte = 1

var (
	ErrCorrupt = errors.New("wire: corrupt snapshot")
	magic4     = [...]byte{'D', 'O', 'T', 'S'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Fingerprint identifies one on-disk state of the document file.
type Fingerprint struct {
	MtimeNano int64
	Size      int64
}

// Snapshot: magic(4) | ver(1) | mtime(i64 be) | size(i64 be) | vlen(u32 be) | payload(vlen)
func EncodeSnapshot(fp Fingerprint, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(4 + 1 + 8 + 8 + 4 + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], uint64(fp.MtimeNano))
	buf.Write(u8[:])

	binary.BigEndian.PutUint64(u8[:], uint64(fp.Size))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

func DecodeSnapshot(b []byte) (Fingerprint, []byte, error) {
	const hdr = 4 + 1 + 8 + 8 + 4
	if len(b) < hdr || !hasMagic(b) || b[4] != version {
		return Fingerprint{}, nil, ErrCorrupt
	}

	off := 5

	var fp Fingerprint
	fp.MtimeNano = int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8
	fp.Size = int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen > len(b)-off { // overflow-safe bound check
		return Fingerprint{}, nil, ErrCorrupt
	}

	return fp, b[off : off+vlen], nil
}
