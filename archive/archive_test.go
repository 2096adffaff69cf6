package archive

import (
	"testing"

	"github.com/rawbytedev/sharc/shared"
	"github.com/stretchr/testify/require"
)

type triple[T any] struct {
	A, B *shared.Rc[T]
	W    *shared.RcWeak[T]
}

type archivedTriple[T, A any] struct {
	A, B ArchivedRc[T, A]
	W    ArchivedRcWeak[T, A]
}

type tripleCodec[T, A any] struct {
	rc     RcArchiver[T, A]
	weak   RcWeakArchiver[T, A]
	layout Layout
	offs   []int
}

func newTripleCodec[T, A any](p UnsizedCodec[T, A]) tripleCodec[T, A] {
	c := tripleCodec[T, A]{rc: ForRc(p), weak: ForRcWeak(p)}
	c.layout, c.offs = StructLayout(c.rc.Layout(), c.rc.Layout(), c.weak.Layout())
	return c
}

func (c tripleCodec[T, A]) Layout() Layout { return c.layout }

func (c tripleCodec[T, A]) Serialize(s *Serializer, v triple[T]) (Resolver, error) {
	ra, err := c.rc.Serialize(s, v.A)
	if err != nil {
		return nil, err
	}
	rb, err := c.rc.Serialize(s, v.B)
	if err != nil {
		return nil, err
	}
	rw, err := c.weak.Serialize(s, v.W)
	if err != nil {
		return nil, err
	}
	return ResolverFunc(func(pos int, out []byte) {
		ResolveField(ra, pos, c.offs[0], c.rc.Layout(), out)
		ResolveField(rb, pos, c.offs[1], c.rc.Layout(), out)
		ResolveField(rw, pos, c.offs[2], c.weak.Layout(), out)
	}), nil
}

func (c tripleCodec[T, A]) Access(buf []byte, pos int) archivedTriple[T, A] {
	return archivedTriple[T, A]{
		A: c.rc.Access(buf, pos+c.offs[0]),
		B: c.rc.Access(buf, pos+c.offs[1]),
		W: c.weak.Access(buf, pos+c.offs[2]),
	}
}

func (c tripleCodec[T, A]) Deserialize(d *Deserializer, a archivedTriple[T, A]) (triple[T], error) {
	var out triple[T]
	var err error
	if out.A, err = c.rc.Deserialize(d, a.A); err != nil {
		return out, err
	}
	if out.B, err = c.rc.Deserialize(d, a.B); err != nil {
		return out, err
	}
	if out.W, err = c.weak.Deserialize(d, a.W); err != nil {
		return out, err
	}
	return out, nil
}

func (c tripleCodec[T, A]) Equal(a archivedTriple[T, A], v triple[T]) bool {
	return c.rc.Equal(a.A, v.A) && c.rc.Equal(a.B, v.B) && c.weak.Equal(a.W, v.W)
}

// tracked counts how many times a value of it is dropped.
type tracked int32

var trackedDrops int

func (tracked) Drop() { trackedDrops++ }

func archiveRoot[T, A any](t testing.TB, c Codec[T, A], v T) []byte {
	t.Helper()
	s := NewSerializer(SerializerOptions{})
	_, err := SerializeValue(s, c, v)
	require.NoError(t, err)
	return s.Bytes()
}

func TestStructLayout(t *testing.T) {
	l, offs := StructLayout(Layout{1, 1}, Layout{8, 4}, Layout{2, 2})
	require.Equal(t, []int{0, 4, 12}, offs)
	require.Equal(t, Layout{Size: 16, Align: 4}, l)
	require.Equal(t, Layout{Size: 12, Align: 4}, weakLayout)
	require.Equal(t, 4, weakPayload())

	l, offs = StructLayout()
	require.Empty(t, offs)
	require.Equal(t, Layout{Size: 0, Align: 1}, l)
}

func TestPrimitiveAndBool(t *testing.T) {
	c := Primitive[int16]()
	buf := archiveRoot(t, c, -1234)
	require.Len(t, buf, 2)
	got, err := AccessRoot(c, buf)
	require.NoError(t, err)
	require.Equal(t, int16(-1234), got)

	f := Primitive[float64]()
	buf = archiveRoot(t, f, 3.25)
	v, err := AccessRoot(f, buf)
	require.NoError(t, err)
	require.True(t, f.Equal(v, 3.25))

	b := Bool()
	buf = archiveRoot(t, b, true)
	ok, err := AccessRoot(b, buf)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestStringFieldAndSlice(t *testing.T) {
	c := StringField()
	buf := archiveRoot(t, c, "hello archive")
	a, err := AccessRoot(c, buf)
	require.NoError(t, err)
	require.Equal(t, "hello archive", a.Get().String())
	require.True(t, c.Equal(a, "hello archive"))

	s, err := Deserialize(c, a, DeserializerOptions{UnsafeStrings: true})
	require.NoError(t, err)
	require.Equal(t, "hello archive", s)

	sc := Box(SliceOf(Primitive[uint32]()))
	in := []uint32{1, 2, 3, 0xdeadbeef}
	buf = archiveRoot(t, sc, in)
	as, err := AccessRoot(sc, buf)
	require.NoError(t, err)
	require.Equal(t, 4, as.Get().Len())
	require.Equal(t, uint32(0xdeadbeef), as.Get().At(3))
	require.True(t, sc.Equal(as, in))
	out, err := Deserialize(sc, as, DeserializerOptions{})
	require.NoError(t, err)
	require.Equal(t, in, out)
	require.Panics(t, func() { as.Get().At(4) })
}

func TestAccessErrors(t *testing.T) {
	_, err := AccessRoot(Primitive[int64](), make([]byte, 3))
	require.ErrorIs(t, err, ErrBufferTooShort)
	_, err = AccessAt(Primitive[int64](), make([]byte, 16), 9)
	require.ErrorIs(t, err, ErrBufferTooShort)
	v, err := AccessAt(Primitive[int64](), make([]byte, 16), 8)
	require.NoError(t, err)
	require.Zero(t, v)
}

func TestSerializerMaxSize(t *testing.T) {
	s := NewSerializer(SerializerOptions{MaxSize: 8})
	_, err := SerializeValue(s, StringField(), "this string does not fit")
	require.ErrorIs(t, err, ErrArchiveTooLarge)

	s = NewSerializer(SerializerOptions{MaxSize: 8})
	_, err = SerializeValue(s, Primitive[uint64](), 1)
	require.NoError(t, err)
	_, err = s.Write([]byte{1})
	require.ErrorIs(t, err, ErrArchiveTooLarge)

	s.Reset()
	require.Zero(t, s.Pos())
}
