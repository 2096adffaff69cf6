// Package archive writes values into a byte buffer that can be read in place,
// without a decoding pass, and reads them back.
//
// Archiving runs in two phases. Serialize writes everything a value depends
// on (out-of-line bytes, shared pointees) and returns a Resolver. Resolve then
// writes the value's fixed-size archived form at its final position. Out-of-
// line data is always referenced through relative pointers, so an archive
// stays valid wherever its bytes end up.
//
// Shared pointers (shared.Rc, shared.Arc and their weak handles) are archived
// once per pointee: every further pointer to the same allocation refers to the
// first archived copy, and deserializing them yields handles that alias one
// reconstructed allocation again.
package archive

import (
	"github.com/rawbytedev/sharc/relptr"
)

// Layout is the size and alignment of an archived value.
type Layout struct {
	Size  int
	Align int
}

// Stride is the distance between consecutive values in an archived slice.
func (l Layout) Stride() int {
	return alignUp(l.Size, l.Align)
}

func alignUp(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) &^ (align - 1)
}

// StructLayout lays fields out in order, each at the next offset aligned for
// it, and returns the aggregate layout with every field's offset.
func StructLayout(fields ...Layout) (Layout, []int) {
	offsets := make([]int, len(fields))
	off, align := 0, 1
	for i, f := range fields {
		off = alignUp(off, f.Align)
		offsets[i] = off
		off += f.Size
		align = max(align, f.Align)
	}
	return Layout{Size: alignUp(off, align), Align: align}, offsets
}

// Resolver writes the archived form of a value whose dependencies have
// already been serialized. out is exactly the value's Layout.Size bytes and
// starts at absolute position pos.
type Resolver interface {
	Resolve(pos int, out []byte)
}

type ResolverFunc func(pos int, out []byte)

func (f ResolverFunc) Resolve(pos int, out []byte) { f(pos, out) }

// Codec archives values of type T whose archived form is read through A.
type Codec[T, A any] interface {
	Layout() Layout
	Serialize(s *Serializer, v T) (Resolver, error)
	Access(buf []byte, pos int) A
	Deserialize(d *Deserializer, a A) (T, error)
	Equal(a A, v T) bool
}

// MetadataResolver produces the metadata word stored next to a relative
// pointer to an unsized pointee.
type MetadataResolver interface {
	ResolveMetadata() uint32
}

// Meta is a metadata resolver for metadata known at serialization time.
type Meta uint32

func (m Meta) ResolveMetadata() uint32 { return uint32(m) }

// UnsizedCodec archives pointees reached through relative pointers. The
// archived extent of the pointee is a function of the pointer's metadata.
type UnsizedCodec[T, A any] interface {
	// SerializeUnsized writes v and returns the position of its archived bytes.
	SerializeUnsized(s *Serializer, v T) (int, error)
	SerializeMetadata(s *Serializer, v T) (MetadataResolver, error)
	AccessUnsized(buf []byte, pos int, meta uint32) A
	ArchivedSize(meta uint32) int
	DeserializeUnsized(d *Deserializer, a A) (T, error)
	EqualUnsized(a A, v T) bool
}

// resolveUnsized writes a relative pointer at pos to an unsized pointee
// archived at target.
func resolveUnsized(pos, target int, meta MetadataResolver, out []byte) {
	relptr.Emplace(pos, target, meta.ResolveMetadata(), out)
}

type sized[T, A any] struct {
	c Codec[T, A]
}

// Sized turns a codec for a fixed-size value into a pointee codec.
func Sized[T, A any](c Codec[T, A]) UnsizedCodec[T, A] {
	return sized[T, A]{c: c}
}

func (u sized[T, A]) SerializeUnsized(s *Serializer, v T) (int, error) {
	r, err := u.c.Serialize(s, v)
	if err != nil {
		return 0, err
	}
	return s.Resolve(u.c.Layout(), r)
}

func (u sized[T, A]) SerializeMetadata(*Serializer, T) (MetadataResolver, error) {
	return Meta(0), nil
}

func (u sized[T, A]) AccessUnsized(buf []byte, pos int, _ uint32) A {
	return u.c.Access(buf, pos)
}

func (u sized[T, A]) ArchivedSize(uint32) int { return u.c.Layout().Size }

func (u sized[T, A]) DeserializeUnsized(d *Deserializer, a A) (T, error) {
	return u.c.Deserialize(d, a)
}

func (u sized[T, A]) EqualUnsized(a A, v T) bool { return u.c.Equal(a, v) }

// ResolveField resolves a struct field of layout l sitting at offset off
// inside a value being resolved at pos into out.
func ResolveField(r Resolver, pos, off int, l Layout, out []byte) {
	r.Resolve(pos+off, out[off:off+l.Size:off+l.Size])
}
