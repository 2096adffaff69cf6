package archive

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/rawbytedev/sharc/relptr"
)

// SharedResolver carries a shared pointer from serialization to resolution:
// where the pointee was archived and how to produce its metadata.
type SharedResolver struct {
	Pos      int
	Metadata MetadataResolver
}

// Resolve writes the relative pointer to the recorded pointee.
func (r SharedResolver) Resolve(pos int, out []byte) {
	resolveUnsized(pos, r.Pos, r.Metadata, out)
}

// serializeShared archives v, the value behind the allocation identified by
// key, unless an earlier pointer to the same allocation already did.
func serializeShared[T, A any](s *Serializer, p UnsizedCodec[T, A], key unsafe.Pointer, v T) (SharedResolver, error) {
	pos, err := s.SerializeShared(key, func() (int, error) {
		pos, err := p.SerializeUnsized(s, v)
		if err != nil {
			return 0, err
		}
		// Archived positions key the deserialization registry, so an empty
		// pointee still takes a byte to keep it apart from whatever follows.
		if pos == s.Pos() {
			if _, err := s.Write([]byte{0}); err != nil {
				return 0, err
			}
		}
		return pos, nil
	})
	if err != nil {
		return SharedResolver{}, err
	}
	meta, err := p.SerializeMetadata(s, v)
	if err != nil {
		return SharedResolver{}, err
	}
	return SharedResolver{Pos: pos, Metadata: meta}, nil
}

// archivedShared is the read-only view behind ArchivedRc and ArchivedArc. It
// is exactly one relative pointer.
type archivedShared[T, A any] struct {
	ptr     relptr.Ptr
	pointee UnsizedCodec[T, A]
}

// Get returns the pointee view.
func (a archivedShared[T, A]) Get() A {
	return a.pointee.AccessUnsized(a.ptr.Buf(), a.ptr.Target(), a.ptr.Metadata())
}

// Pos is the position of the pointer itself.
func (a archivedShared[T, A]) Pos() int { return a.ptr.Pos() }

// Target is the position of the archived pointee. Pointers archived from the
// same allocation share a target.
func (a archivedShared[T, A]) Target() int { return a.ptr.Target() }

// PinUnchecked returns the pointee's archived bytes for mutation in place.
// The slice is the archived encoding itself, not a typed view: writes must
// keep the pointee's layout, and must not change anything its metadata
// describes such as a length.
//
// The caller must make sure that while the slice is in use no other view of
// the same pointee, reached through this pointer or any other archived
// pointer sharing its target, is read or written.
func (a archivedShared[T, A]) PinUnchecked() []byte {
	start := a.ptr.Target()
	end := start + a.pointee.ArchivedSize(a.ptr.Metadata())
	return a.ptr.Buf()[start:end:end]
}

func (a archivedShared[T, A]) deserializePointee(d *Deserializer) (T, error) {
	return a.pointee.DeserializeUnsized(d, a.Get())
}

// deserializeShared returns the registry's standing handle for the pointee
// behind a, building it with wrap on first sight. Callers clone the result
// before handing it out.
func deserializeShared[T, A any, H SharedPointer](d *Deserializer, a archivedShared[T, A], wrap func(T) H) (H, error) {
	var zero H
	key := a.Target()
	p, err := d.DeserializeShared(key, func() (SharedPointer, error) {
		v, err := a.deserializePointee(d)
		if err != nil {
			return nil, err
		}
		return wrap(v), nil
	})
	if err != nil {
		return zero, err
	}
	h, ok := p.(H)
	if !ok {
		return zero, errors.Wrapf(ErrSharedTypeMismatch, "pointee at %d is held as %T, want %T", key, p, zero)
	}
	return h, nil
}
