package archive

import (
	"iter"
)

// ArchivedSlice is a view of an archived slice whose elements are read
// through elem.
type ArchivedSlice[T, A any] struct {
	buf  []byte
	pos  int
	n    int
	elem Codec[T, A]
}

func (s ArchivedSlice[T, A]) Len() int { return s.n }

// At returns the view of element i. It panics if i is out of range.
func (s ArchivedSlice[T, A]) At(i int) A {
	if i < 0 || i >= s.n {
		panic("archive: slice index out of range")
	}
	return s.elem.Access(s.buf, s.pos+i*s.elem.Layout().Stride())
}

// All yields every element view with its index.
func (s ArchivedSlice[T, A]) All() iter.Seq2[int, A] {
	return func(yield func(int, A) bool) {
		for i := 0; i < s.n; i++ {
			if !yield(i, s.At(i)) {
				return
			}
		}
	}
}

type sliceCodec[T, A any] struct {
	elem Codec[T, A]
}

// SliceOf returns the pointee codec for slices of elem. Elements are laid out
// contiguously at the element stride and the metadata holds the length.
func SliceOf[T, A any](elem Codec[T, A]) UnsizedCodec[[]T, ArchivedSlice[T, A]] {
	return sliceCodec[T, A]{elem: elem}
}

func (c sliceCodec[T, A]) SerializeUnsized(s *Serializer, v []T) (int, error) {
	resolvers := make([]Resolver, len(v))
	for i, x := range v {
		r, err := c.elem.Serialize(s, x)
		if err != nil {
			return 0, err
		}
		resolvers[i] = r
	}
	l := c.elem.Layout()
	start, err := s.Align(l.Align)
	if err != nil {
		return 0, err
	}
	for _, r := range resolvers {
		if _, err := s.Resolve(l, r); err != nil {
			return 0, err
		}
	}
	return start, nil
}

func (c sliceCodec[T, A]) SerializeMetadata(_ *Serializer, v []T) (MetadataResolver, error) {
	return Meta(uint32(len(v))), nil
}

func (c sliceCodec[T, A]) AccessUnsized(buf []byte, pos int, meta uint32) ArchivedSlice[T, A] {
	return ArchivedSlice[T, A]{buf: buf, pos: pos, n: int(meta), elem: c.elem}
}

func (c sliceCodec[T, A]) ArchivedSize(meta uint32) int {
	return int(meta) * c.elem.Layout().Stride()
}

func (c sliceCodec[T, A]) DeserializeUnsized(d *Deserializer, a ArchivedSlice[T, A]) ([]T, error) {
	out := make([]T, a.Len())
	for i, x := range a.All() {
		v, err := c.elem.Deserialize(d, x)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (c sliceCodec[T, A]) EqualUnsized(a ArchivedSlice[T, A], v []T) bool {
	if a.Len() != len(v) {
		return false
	}
	for i, x := range a.All() {
		if !c.elem.Equal(x, v[i]) {
			return false
		}
	}
	return true
}
