package archive

import (
	"math"
	"unsafe"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// SerializerOptions configures a Serializer.
type SerializerOptions struct {
	// MaxSize bounds the archive length. Zero means math.MaxInt32, which is
	// also the upper limit since relative offsets are 32 bits wide.
	MaxSize int
	// Registry deduplicates shared pointees. A SharedSerializeMap is used when
	// nil.
	Registry SharedSerializeRegistry
	// InitialCapacity presizes the output buffer.
	InitialCapacity int
}

// Serializer accumulates an archive. It is not safe for concurrent use.
type Serializer struct {
	buf      []byte
	maxSize  int
	registry SharedSerializeRegistry
	pending  map[unsafe.Pointer]struct{}
}

func NewSerializer(opts SerializerOptions) *Serializer {
	limit := opts.MaxSize
	if limit <= 0 || limit > math.MaxInt32 {
		limit = math.MaxInt32
	}
	reg := opts.Registry
	if reg == nil {
		reg = NewSharedSerializeMap()
	}
	return &Serializer{
		buf:      make([]byte, 0, max(0, min(opts.InitialCapacity, limit))),
		maxSize:  limit,
		registry: reg,
		pending:  make(map[unsafe.Pointer]struct{}),
	}
}

// Pos is the current length of the archive.
func (s *Serializer) Pos() int { return len(s.buf) }

// Bytes returns the archive written so far. The slice aliases the serializer's
// buffer until the next write or Reset.
func (s *Serializer) Bytes() []byte { return s.buf }

// Reset empties the buffer and forgets every recorded shared pointee, so the
// serializer can build a new archive.
func (s *Serializer) Reset() {
	s.buf = s.buf[:0]
	s.registry.Reset()
	clear(s.pending)
}

func (s *Serializer) grow(n int) (int, error) {
	pos := len(s.buf)
	if n > s.maxSize-pos {
		return 0, errors.Wrapf(ErrArchiveTooLarge, "writing %d bytes at %d (limit %d)", n, pos, s.maxSize)
	}
	s.buf = append(s.buf, make([]byte, n)...)
	return pos, nil
}

// Align pads the archive with zeros up to a multiple of align and returns the
// new position.
func (s *Serializer) Align(align int) (int, error) {
	pad := alignUp(len(s.buf), align) - len(s.buf)
	if pad == 0 {
		return len(s.buf), nil
	}
	if _, err := s.grow(pad); err != nil {
		return 0, err
	}
	return len(s.buf), nil
}

// Write appends b and returns the position it was written at.
func (s *Serializer) Write(b []byte) (int, error) {
	pos, err := s.grow(len(b))
	if err != nil {
		return 0, err
	}
	copy(s.buf[pos:], b)
	return pos, nil
}

// Resolve reserves an aligned slot for a value with layout l and lets r fill
// it. It returns the slot's position.
func (s *Serializer) Resolve(l Layout, r Resolver) (int, error) {
	if _, err := s.Align(l.Align); err != nil {
		return 0, err
	}
	pos, err := s.grow(l.Size)
	if err != nil {
		return 0, err
	}
	r.Resolve(pos, s.buf[pos:pos+l.Size:pos+l.Size])
	return pos, nil
}

// SerializeShared returns the position of the pointee identified by key. The
// first time a key is seen archive writes the pointee; later calls return the
// recorded position without writing anything.
func (s *Serializer) SerializeShared(key unsafe.Pointer, archive func() (int, error)) (int, error) {
	if _, busy := s.pending[key]; busy {
		return 0, errors.Wrapf(ErrSharedCycle, "pointee %p", key)
	}
	return s.registry.SerializeShared(key, func() (int, error) {
		s.pending[key] = struct{}{}
		defer delete(s.pending, key)
		pos, err := archive()
		if err != nil {
			return 0, err
		}
		debug("archived shared pointee", zap.Uintptr("key", uintptr(key)), zap.Int("pos", pos))
		return pos, nil
	})
}

// SerializeValue writes v as a root value and returns its position. Values
// written this way last sit at the end of the buffer, where AccessRoot finds
// them.
func SerializeValue[T, A any](s *Serializer, c Codec[T, A], v T) (int, error) {
	r, err := c.Serialize(s, v)
	if err != nil {
		return 0, err
	}
	return s.Resolve(c.Layout(), r)
}

// AccessRoot returns a view of the root value, which occupies the last
// Layout.Size bytes of buf.
func AccessRoot[T, A any](c Codec[T, A], buf []byte) (A, error) {
	size := c.Layout().Size
	if len(buf) < size {
		var zero A
		return zero, errors.Wrapf(ErrBufferTooShort, "need %d bytes, have %d", size, len(buf))
	}
	return c.Access(buf, len(buf)-size), nil
}

// AccessAt returns a view of a value archived at pos.
func AccessAt[T, A any](c Codec[T, A], buf []byte, pos int) (A, error) {
	size := c.Layout().Size
	if pos < 0 || pos > len(buf)-size {
		var zero A
		return zero, errors.Wrapf(ErrBufferTooShort, "value of %d bytes at %d, buffer is %d", size, pos, len(buf))
	}
	return c.Access(buf, pos), nil
}
