// Package relptr implements the relative pointer used by archived values.
//
// A relative pointer stores the signed distance from its own position to its
// target, plus 32 bits of pointee metadata (a length for slices and strings,
// zero for sized pointees). Nothing in the encoding depends on where the
// buffer starts, so an archive stays valid after it is copied or mapped at a
// different address.
//
// Layout, little endian:
//
//	+0  int32   offset (target - pos)
//	+4  uint32  metadata
package relptr

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	Size  = 8
	Align = 4
)

// Offset returns target-pos as an int32, or false if it does not fit.
func Offset(pos, target int) (int32, bool) {
	d := int64(target) - int64(pos)
	if d < math.MinInt32 || d > math.MaxInt32 {
		return 0, false
	}
	return int32(d), true
}

// Emplace writes a relative pointer located at pos and pointing at target
// into out, which must hold the pointer's Size bytes.
//
// Serializers cap archives at math.MaxInt32 bytes, so an offset that does not
// fit is a programming error and panics.
func Emplace(pos, target int, meta uint32, out []byte) {
	off, ok := Offset(pos, target)
	if !ok {
		panic(fmt.Sprintf("relptr: offset from %d to %d overflows int32", pos, target))
	}
	binary.LittleEndian.PutUint32(out[0:], uint32(off))
	binary.LittleEndian.PutUint32(out[4:], meta)
}

// Ptr is a read-only view of a relative pointer inside an archive buffer.
type Ptr struct {
	buf []byte
	pos int
}

// At returns the relative pointer stored at pos.
func At(buf []byte, pos int) Ptr {
	return Ptr{buf: buf, pos: pos}
}

func (p Ptr) Buf() []byte { return p.buf }

func (p Ptr) Pos() int { return p.pos }

func (p Ptr) Offset() int32 {
	return int32(binary.LittleEndian.Uint32(p.buf[p.pos:]))
}

// Target is the absolute position the pointer refers to, computed only from
// the pointer's own position and its stored offset.
func (p Ptr) Target() int {
	return p.pos + int(p.Offset())
}

func (p Ptr) Metadata() uint32 {
	return binary.LittleEndian.Uint32(p.buf[p.pos+4:])
}
