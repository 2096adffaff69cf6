package archive

import (
	"github.com/rawbytedev/sharc/relptr"
	"github.com/rawbytedev/sharc/shared"
)

const (
	weakTagNone byte = 0
	weakTagSome byte = 1
)

// An archived weak pointer is a tag byte followed by the shared pointer
// payload, which is only meaningful when the tag is weakTagSome.
var weakLayout, weakFields = StructLayout(
	Layout{Size: 1, Align: 1},
	Layout{Size: relptr.Size, Align: relptr.Align},
)

func weakPayload() int { return weakFields[1] }

// WeakResolver mirrors an archived weak pointer: nil Some means None.
type WeakResolver struct {
	Some *SharedResolver
}

func (r WeakResolver) Resolve(pos int, out []byte) {
	if r.Some == nil {
		out[0] = weakTagNone
		return
	}
	out[0] = weakTagSome
	off := weakPayload()
	r.Some.Resolve(pos+off, out[off:off+relptr.Size])
}

// archivedWeak is the view behind ArchivedRcWeak and ArchivedArcWeak.
type archivedWeak[T, A any] struct {
	buf     []byte
	pos     int
	pointee UnsizedCodec[T, A]
}

// IsNone reports whether the weak pointer could not be upgraded when it was
// archived.
func (w archivedWeak[T, A]) IsNone() bool { return w.buf[w.pos] != weakTagSome }

func (w archivedWeak[T, A]) Pos() int { return w.pos }

func (w archivedWeak[T, A]) some() (archivedShared[T, A], bool) {
	if w.IsNone() {
		return archivedShared[T, A]{}, false
	}
	return archivedShared[T, A]{ptr: relptr.At(w.buf, w.pos+weakPayload()), pointee: w.pointee}, true
}

// UpgradePin returns the pointee's archived bytes for mutation in place, or
// false for None. Like PinUnchecked the slice is the archived encoding, so
// writes must keep its layout, and the same aliasing rule applies.
func (w archivedWeak[T, A]) UpgradePin() ([]byte, bool) {
	s, ok := w.some()
	if !ok {
		return nil, false
	}
	return s.PinUnchecked(), true
}

// ArchivedRcWeak is an archived shared.RcWeak.
type ArchivedRcWeak[T, A any] struct {
	archivedWeak[T, A]
}

// Upgrade returns the strong pointer view, or false for None.
func (w ArchivedRcWeak[T, A]) Upgrade() (ArchivedRc[T, A], bool) {
	s, ok := w.some()
	return ArchivedRc[T, A]{s}, ok
}

// ArchivedArcWeak is an archived shared.ArcWeak.
type ArchivedArcWeak[T, A any] struct {
	archivedWeak[T, A]
}

func (w ArchivedArcWeak[T, A]) Upgrade() (ArchivedArc[T, A], bool) {
	s, ok := w.some()
	return ArchivedArc[T, A]{s}, ok
}

// RcWeakArchiver is the codec for *shared.RcWeak[T].
type RcWeakArchiver[T, A any] struct {
	pointee UnsizedCodec[T, A]
}

func ForRcWeak[T, A any](pointee UnsizedCodec[T, A]) RcWeakArchiver[T, A] {
	return RcWeakArchiver[T, A]{pointee: pointee}
}

func (c RcWeakArchiver[T, A]) Layout() Layout { return weakLayout }

// Serialize upgrades w for the duration of the call. A nil handle or one
// whose value is gone archives as None.
func (c RcWeakArchiver[T, A]) Serialize(s *Serializer, w *shared.RcWeak[T]) (Resolver, error) {
	strong, ok := w.Upgrade()
	if !ok {
		return WeakResolver{}, nil
	}
	defer strong.Release()
	r, err := serializeShared(s, c.pointee, strong.DataAddress(), strong.Get())
	if err != nil {
		return nil, err
	}
	return WeakResolver{Some: &r}, nil
}

func (c RcWeakArchiver[T, A]) Access(buf []byte, pos int) ArchivedRcWeak[T, A] {
	return ArchivedRcWeak[T, A]{archivedWeak[T, A]{buf: buf, pos: pos, pointee: c.pointee}}
}

// Deserialize rebuilds the weak handle. Some goes through the same registry
// as strong pointers, so the result refers to the allocation every other
// pointer to this pointee is rebuilt into.
func (c RcWeakArchiver[T, A]) Deserialize(d *Deserializer, a ArchivedRcWeak[T, A]) (*shared.RcWeak[T], error) {
	s, ok := a.some()
	if !ok {
		return shared.NewRcWeak[T](), nil
	}
	h, err := deserializeShared(d, s, shared.NewRc[T])
	if err != nil {
		return nil, err
	}
	strong := h.Clone()
	defer strong.Release()
	return strong.Downgrade(), nil
}

func (c RcWeakArchiver[T, A]) Equal(a ArchivedRcWeak[T, A], w *shared.RcWeak[T]) bool {
	strong, ok := w.Upgrade()
	if !ok {
		return a.IsNone()
	}
	defer strong.Release()
	s, some := a.Upgrade()
	return some && s.Equal(strong)
}

// ArcWeakArchiver is the codec for *shared.ArcWeak[T].
type ArcWeakArchiver[T, A any] struct {
	pointee UnsizedCodec[T, A]
}

func ForArcWeak[T, A any](pointee UnsizedCodec[T, A]) ArcWeakArchiver[T, A] {
	return ArcWeakArchiver[T, A]{pointee: pointee}
}

func (c ArcWeakArchiver[T, A]) Layout() Layout { return weakLayout }

func (c ArcWeakArchiver[T, A]) Serialize(s *Serializer, w *shared.ArcWeak[T]) (Resolver, error) {
	strong, ok := w.Upgrade()
	if !ok {
		return WeakResolver{}, nil
	}
	defer strong.Release()
	r, err := serializeShared(s, c.pointee, strong.DataAddress(), strong.Get())
	if err != nil {
		return nil, err
	}
	return WeakResolver{Some: &r}, nil
}

func (c ArcWeakArchiver[T, A]) Access(buf []byte, pos int) ArchivedArcWeak[T, A] {
	return ArchivedArcWeak[T, A]{archivedWeak[T, A]{buf: buf, pos: pos, pointee: c.pointee}}
}

func (c ArcWeakArchiver[T, A]) Deserialize(d *Deserializer, a ArchivedArcWeak[T, A]) (*shared.ArcWeak[T], error) {
	s, ok := a.some()
	if !ok {
		return shared.NewArcWeak[T](), nil
	}
	h, err := deserializeShared(d, s, shared.NewArc[T])
	if err != nil {
		return nil, err
	}
	strong := h.Clone()
	defer strong.Release()
	return strong.Downgrade(), nil
}

func (c ArcWeakArchiver[T, A]) Equal(a ArchivedArcWeak[T, A], w *shared.ArcWeak[T]) bool {
	strong, ok := w.Upgrade()
	if !ok {
		return a.IsNone()
	}
	defer strong.Release()
	s, some := a.Upgrade()
	return some && s.Equal(strong)
}
