// Package container wraps an archive in a self-describing frame: a fixed
// header carrying the root position and a CRC32, then the archive bytes,
// optionally zstd compressed.
//
// Frame layout, little endian:
//
//	+0   uint32  magic "SHRC"
//	+4   uint16  version
//	+6   uint16  flags
//	+8   uint32  root position inside the archive
//	+12  uint32  archive length
//	+16  uint32  stored payload length
//	+20  uint32  CRC32 (IEEE) of bytes 4..20 and the payload
//	+24  payload
package container

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

const (
	Magic      uint32 = 0x43524853 // "SHRC"
	Version    uint16 = 1
	HeaderSize        = 24
)

const (
	// FlagZstd marks a zstd compressed payload.
	FlagZstd uint16 = 1 << 0
)

var (
	ErrTruncated = errors.New("container: frame truncated")
	ErrBadMagic  = errors.New("container: bad magic")
	ErrVersion   = errors.New("container: unsupported version")
	ErrChecksum  = errors.New("container: checksum mismatch")
	ErrTooLarge  = errors.New("container: archive too large")
)

type Header struct {
	Magic     uint32
	Version   uint16
	Flags     uint16
	RootPos   uint32
	DataLen   uint32
	StoredLen uint32
	CRC       uint32
}

func encodeHeader(buf []byte, h Header) []byte {
	buf = append(buf, make([]byte, HeaderSize)...)
	b := buf[len(buf)-HeaderSize:]
	binary.LittleEndian.PutUint32(b[0:], h.Magic)
	binary.LittleEndian.PutUint16(b[4:], h.Version)
	binary.LittleEndian.PutUint16(b[6:], h.Flags)
	binary.LittleEndian.PutUint32(b[8:], h.RootPos)
	binary.LittleEndian.PutUint32(b[12:], h.DataLen)
	binary.LittleEndian.PutUint32(b[16:], h.StoredLen)
	binary.LittleEndian.PutUint32(b[20:], h.CRC)
	return buf
}

// ParseHeader reads the frame header without checking the payload.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, errors.Wrapf(ErrTruncated, "%d bytes, header needs %d", len(buf), HeaderSize)
	}
	h := Header{
		Magic:     binary.LittleEndian.Uint32(buf[0:]),
		Version:   binary.LittleEndian.Uint16(buf[4:]),
		Flags:     binary.LittleEndian.Uint16(buf[6:]),
		RootPos:   binary.LittleEndian.Uint32(buf[8:]),
		DataLen:   binary.LittleEndian.Uint32(buf[12:]),
		StoredLen: binary.LittleEndian.Uint32(buf[16:]),
		CRC:       binary.LittleEndian.Uint32(buf[20:]),
	}
	if h.Magic != Magic {
		return h, errors.Wrapf(ErrBadMagic, "got %#08x", h.Magic)
	}
	if h.Version != Version {
		return h, errors.Wrapf(ErrVersion, "got %d", h.Version)
	}
	return h, nil
}
