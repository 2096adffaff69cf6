package sharc

import (
	"testing"
	"testing/quick"

	"github.com/rawbytedev/sharc/archive"
	"github.com/rawbytedev/sharc/internal/demo"
	"github.com/rawbytedev/sharc/pkg/container"
	"github.com/rawbytedev/sharc/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type MixedStruct struct {
	Val      string
	Mod      int8
	Data     string
	Integers int16
	Float3   float32
	Float6   float64
}

func FuzzReflectRoundTrip(f *testing.F) {
	f.Add("a", int8(1), "b", int16(2), float32(3), float64(4))
	f.Fuzz(fuzzMixedTypes)
}

func fuzzMixedTypes(t *testing.T, Val string, Mod int8, Data string, Integers int16, Float3 float32, Float6 float64) {
	val := MixedStruct{Val: Val, Mod: Mod, Data: Data, Integers: Integers, Float3: Float3, Float6: Float6}
	c, err := Reflect[MixedStruct]()
	require.NoError(t, err)
	data, err := ToBytes(c, val, Options{})
	require.NoError(t, err)
	res, err := FromBytes(c, data, Options{})
	require.NoError(t, err)
	root, err := Access(c, data)
	require.NoError(t, err)
	require.True(t, c.Equal(root, val))
	require.True(t, c.Equal(res, val))
}

func TestReflectConstant(t *testing.T) {
	type NewStructint struct {
		Int1  uint8
		Int2  int8
		Int3  uint16
		Int4  int16
		Int5  uint32
		Int6  int32
		Int7  uint64
		Int9  int64
		Const bool
	}
	c, err := Reflect[NewStructint]()
	require.NoError(t, err)
	condition := func(z NewStructint) bool {
		data, err := ToBytes(c, z, Options{})
		require.NoError(t, err)
		res, err := FromBytes(c, data, Options{})
		require.NoError(t, err)
		return assert.ObjectsAreEqual(z, res)
	}
	require.NoError(t, quick.Check(condition, &quick.Config{}))
}

func TestReflectLists(t *testing.T) {
	type NewStruct struct {
		Name     string
		Mod      []int8
		Integers []int16
		Float3   []float32
		Float6   []float64
	}
	c, err := Reflect[NewStruct]()
	require.NoError(t, err)
	condition := func(z NewStruct) bool {
		data, err := ToBytes(c, z, Options{})
		require.NoError(t, err)
		res, err := FromBytes(c, data, Options{})
		require.NoError(t, err)
		return c.Equal(res, z)
	}
	require.NoError(t, quick.Check(condition, &quick.Config{}))

	z := NewStruct{Name: "lists", Mod: []int8{-1, 2}, Float6: []float64{1.5}}
	data, err := ToBytes(c, z, Options{})
	require.NoError(t, err)
	res, err := FromBytes(c, data, Options{})
	require.NoError(t, err)
	require.Equal(t, z, res)
}

func TestReflectErrors(t *testing.T) {
	_, err := Reflect[string]()
	require.ErrorIs(t, err, ErrNotStruct)

	type WithMap struct {
		M map[string]int
	}
	_, err = Reflect[WithMap]()
	require.ErrorIs(t, err, ErrUnsupported)

	type WithInt struct {
		N int
	}
	_, err = Reflect[WithInt]()
	require.ErrorIs(t, err, ErrUnsupported)

	type Private struct {
		val  string
		Kept uint16
	}
	c, err := Reflect[Private]()
	require.NoError(t, err)
	data, err := ToBytes(c, Private{val: "hidden", Kept: 7}, Options{})
	require.NoError(t, err)
	require.Len(t, data, 2)
	res, err := FromBytes(c, data, Options{})
	require.NoError(t, err)
	require.Equal(t, Private{Kept: 7}, res)
}

func TestReflectPlanCached(t *testing.T) {
	a, err := Reflect[MixedStruct]()
	require.NoError(t, err)
	b, err := Reflect[MixedStruct]()
	require.NoError(t, err)
	require.Same(t, a.(reflectCodec[MixedStruct]).plan, b.(reflectCodec[MixedStruct]).plan)
}

func TestSealOpenSharedGraph(t *testing.T) {
	c := demo.NewCodec()
	g := demo.Sample(42, "sealed graph")
	for _, compress := range []bool{false, true} {
		frame, err := Seal(c, g, Options{Compress: compress})
		require.NoError(t, err)

		root, data, err := Open(c, frame)
		require.NoError(t, err)
		require.True(t, c.Equal(root, g))
		require.Equal(t, root.A.Target(), root.B.Target())

		got, err := archive.Deserialize(c, root, archive.DeserializerOptions{})
		require.NoError(t, err)
		require.True(t, got.A.Is(got.B))
		up, ok := got.W.Upgrade()
		require.True(t, ok)
		require.True(t, up.Is(got.A))
		up.Release()
		require.Equal(t, "sealed graph", got.Label)

		// the opened archive is independent of the frame
		frame[len(frame)-1] ^= 0xff
		require.Equal(t, int32(42), root.A.Get())
		require.NotEmpty(t, data)
	}

	_, _, err := Open(c, []byte("nope"))
	require.ErrorIs(t, err, container.ErrTruncated)
}

func TestSharedArcVector(t *testing.T) {
	c := archive.Box(archive.SliceOf(archive.ForArc(archive.String())))
	x := shared.NewArc("x")
	in := []*shared.Arc[string]{x, shared.NewArc("y"), x.Clone()}
	data, err := ToBytes(c, in, Options{})
	require.NoError(t, err)

	out, err := FromBytes(c, data, Options{UnsafeStrings: true})
	require.NoError(t, err)
	require.True(t, out[0].Is(out[2]))
	require.False(t, out[0].Is(out[1]))
	require.Equal(t, 2, out[0].StrongCount())
	require.Equal(t, "y", out[1].Get())
}

func TestOptionsMaxSize(t *testing.T) {
	c, err := Reflect[MixedStruct]()
	require.NoError(t, err)
	_, err = ToBytes(c, MixedStruct{Val: "longer than the limit"}, Options{MaxSize: 16})
	require.ErrorIs(t, err, archive.ErrArchiveTooLarge)
	_, err = Seal(c, MixedStruct{Val: "longer than the limit"}, Options{MaxSize: 16})
	require.ErrorIs(t, err, archive.ErrArchiveTooLarge)
}

func BenchmarkReflectRoundTrip(b *testing.B) {
	type NewStructint struct {
		Int1 uint8
		Int2 int8
		Int3 uint16
		Int4 int16
		Int5 uint32
		Int6 int32
		Int7 uint64
		Int9 int64
	}
	z := NewStructint{Int1: 1, Int2: 2, Int3: 16, Int4: 18, Int5: 1586, Int6: 15262, Int7: 1547544565, Int9: 15484565656}
	c, err := Reflect[NewStructint]()
	require.NoError(b, err)
	var y NewStructint
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		res, _ := ToBytes(c, z, Options{})
		y, _ = FromBytes(c, res, Options{})
	}
	require.EqualValues(b, z, y)
}

func BenchmarkSharedGraph(b *testing.B) {
	c := demo.NewCodec()
	g := demo.Sample(42, "bench")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		res, _ := ToBytes(c, g, Options{})
		got, _ := FromBytes(c, res, Options{})
		got.Release()
	}
}

func BenchmarkYaml(b *testing.B) {
	type NewStructint struct {
		Int1 uint8
		Int2 int8
		Int3 uint16
		Int4 int16
		Int5 uint32
		Int6 int32
		Int7 uint64
		Int9 int64
	}
	z := NewStructint{Int1: 1, Int2: 2, Int3: 16, Int4: 18, Int5: 1586, Int6: 15262, Int7: 1547544565, Int9: 15484565656}
	var y NewStructint
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		res, _ := yaml.Marshal(z)
		_ = yaml.Unmarshal(res, &y)
	}
}
