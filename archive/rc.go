package archive

import (
	"github.com/rawbytedev/sharc/relptr"
	"github.com/rawbytedev/sharc/shared"
)

// ArchivedRc is an archived shared.Rc: one relative pointer to a pointee that
// every Rc cloned from the same allocation points at.
type ArchivedRc[T, A any] struct {
	archivedShared[T, A]
}

// Equal reports whether the archived pointee equals the value behind v. It
// compares values, not addresses.
func (a ArchivedRc[T, A]) Equal(v *shared.Rc[T]) bool {
	return v != nil && a.pointee.EqualUnsized(a.Get(), v.Get())
}

// RcArchiver is the codec for *shared.Rc[T].
type RcArchiver[T, A any] struct {
	pointee UnsizedCodec[T, A]
}

// ForRc returns the codec for Rc handles whose pointee is archived by pointee.
func ForRc[T, A any](pointee UnsizedCodec[T, A]) RcArchiver[T, A] {
	return RcArchiver[T, A]{pointee: pointee}
}

func (c RcArchiver[T, A]) Layout() Layout {
	return Layout{Size: relptr.Size, Align: relptr.Align}
}

func (c RcArchiver[T, A]) Serialize(s *Serializer, v *shared.Rc[T]) (Resolver, error) {
	if v == nil {
		return nil, ErrNilPointer
	}
	return serializeShared(s, c.pointee, v.DataAddress(), v.Get())
}

func (c RcArchiver[T, A]) Access(buf []byte, pos int) ArchivedRc[T, A] {
	return ArchivedRc[T, A]{archivedShared[T, A]{ptr: relptr.At(buf, pos), pointee: c.pointee}}
}

// Deserialize returns a new strong handle to the allocation rebuilt for a's
// pointee. Every Rc archived from one allocation comes back as a handle to
// one allocation.
func (c RcArchiver[T, A]) Deserialize(d *Deserializer, a ArchivedRc[T, A]) (*shared.Rc[T], error) {
	h, err := deserializeShared(d, a.archivedShared, shared.NewRc[T])
	if err != nil {
		return nil, err
	}
	return h.Clone(), nil
}

func (c RcArchiver[T, A]) Equal(a ArchivedRc[T, A], v *shared.Rc[T]) bool {
	return a.Equal(v)
}
