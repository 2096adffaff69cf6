package archive

import (
	"github.com/rawbytedev/sharc/relptr"
)

// ArchivedBox is an owned out-of-line value: a relative pointer to a pointee
// that no other pointer shares.
type ArchivedBox[T, A any] struct {
	ptr     relptr.Ptr
	pointee UnsizedCodec[T, A]
}

// Get returns the pointee view.
func (b ArchivedBox[T, A]) Get() A {
	return b.pointee.AccessUnsized(b.ptr.Buf(), b.ptr.Target(), b.ptr.Metadata())
}

type boxCodec[T, A any] struct {
	pointee UnsizedCodec[T, A]
}

// Box returns a codec that writes its value out of line and stores a relative
// pointer to it. Every boxed value is written again; nothing is deduplicated.
func Box[T, A any](pointee UnsizedCodec[T, A]) Codec[T, ArchivedBox[T, A]] {
	return boxCodec[T, A]{pointee: pointee}
}

// StringField is the codec for a string stored as a struct field.
func StringField() Codec[string, ArchivedBox[string, ArchivedString]] {
	return Box(String())
}

func (c boxCodec[T, A]) Layout() Layout { return Layout{Size: relptr.Size, Align: relptr.Align} }

func (c boxCodec[T, A]) Serialize(s *Serializer, v T) (Resolver, error) {
	target, err := c.pointee.SerializeUnsized(s, v)
	if err != nil {
		return nil, err
	}
	meta, err := c.pointee.SerializeMetadata(s, v)
	if err != nil {
		return nil, err
	}
	return ResolverFunc(func(pos int, out []byte) {
		resolveUnsized(pos, target, meta, out)
	}), nil
}

func (c boxCodec[T, A]) Access(buf []byte, pos int) ArchivedBox[T, A] {
	return ArchivedBox[T, A]{ptr: relptr.At(buf, pos), pointee: c.pointee}
}

func (c boxCodec[T, A]) Deserialize(d *Deserializer, a ArchivedBox[T, A]) (T, error) {
	return c.pointee.DeserializeUnsized(d, a.Get())
}

func (c boxCodec[T, A]) Equal(a ArchivedBox[T, A], v T) bool {
	return c.pointee.EqualUnsized(a.Get(), v)
}
