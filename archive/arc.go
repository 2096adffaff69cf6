package archive

import (
	"github.com/rawbytedev/sharc/relptr"
	"github.com/rawbytedev/sharc/shared"
)

// ArchivedArc is an archived shared.Arc. Its layout is the same as
// ArchivedRc; only the handle type it deserializes to differs.
type ArchivedArc[T, A any] struct {
	archivedShared[T, A]
}

func (a ArchivedArc[T, A]) Equal(v *shared.Arc[T]) bool {
	return v != nil && a.pointee.EqualUnsized(a.Get(), v.Get())
}

// ArcArchiver is the codec for *shared.Arc[T]. Pair it with a
// SyncSharedDeserializeMap when one archive is rebuilt from several
// goroutines.
type ArcArchiver[T, A any] struct {
	pointee UnsizedCodec[T, A]
}

func ForArc[T, A any](pointee UnsizedCodec[T, A]) ArcArchiver[T, A] {
	return ArcArchiver[T, A]{pointee: pointee}
}

func (c ArcArchiver[T, A]) Layout() Layout {
	return Layout{Size: relptr.Size, Align: relptr.Align}
}

func (c ArcArchiver[T, A]) Serialize(s *Serializer, v *shared.Arc[T]) (Resolver, error) {
	if v == nil {
		return nil, ErrNilPointer
	}
	return serializeShared(s, c.pointee, v.DataAddress(), v.Get())
}

func (c ArcArchiver[T, A]) Access(buf []byte, pos int) ArchivedArc[T, A] {
	return ArchivedArc[T, A]{archivedShared[T, A]{ptr: relptr.At(buf, pos), pointee: c.pointee}}
}

func (c ArcArchiver[T, A]) Deserialize(d *Deserializer, a ArchivedArc[T, A]) (*shared.Arc[T], error) {
	h, err := deserializeShared(d, a.archivedShared, shared.NewArc[T])
	if err != nil {
		return nil, err
	}
	return h.Clone(), nil
}

func (c ArcArchiver[T, A]) Equal(a ArchivedArc[T, A], v *shared.Arc[T]) bool {
	return a.Equal(v)
}
