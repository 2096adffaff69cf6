package archive

import (
	"reflect"

	"github.com/rawbytedev/sharc/internal/common"
)

type primitive[T common.Number] struct {
	kind reflect.Kind
	size int
}

// Primitive returns the codec for a fixed-width number. The archived form is
// little endian, aligned to its own width, and read back as T directly.
func Primitive[T common.Number]() Codec[T, T] {
	k := reflect.TypeFor[T]().Kind()
	return primitive[T]{kind: k, size: common.FixedSize(k)}
}

func (p primitive[T]) Layout() Layout { return Layout{Size: p.size, Align: p.size} }

func (p primitive[T]) Serialize(_ *Serializer, v T) (Resolver, error) {
	return ResolverFunc(func(_ int, out []byte) {
		common.PutNumber(out, p.kind, v)
	}), nil
}

func (p primitive[T]) Access(buf []byte, pos int) T {
	return common.NumberAt[T](buf[pos:pos+p.size], p.kind)
}

func (p primitive[T]) Deserialize(_ *Deserializer, a T) (T, error) { return a, nil }

func (p primitive[T]) Equal(a T, v T) bool { return a == v }

type boolCodec struct{}

// Bool returns the codec for bool, archived as one byte.
func Bool() Codec[bool, bool] { return boolCodec{} }

func (boolCodec) Layout() Layout { return Layout{Size: 1, Align: 1} }

func (boolCodec) Serialize(_ *Serializer, v bool) (Resolver, error) {
	return ResolverFunc(func(_ int, out []byte) {
		if v {
			out[0] = 1
		}
	}), nil
}

func (boolCodec) Access(buf []byte, pos int) bool { return buf[pos] != 0 }

func (boolCodec) Deserialize(_ *Deserializer, a bool) (bool, error) { return a, nil }

func (boolCodec) Equal(a, v bool) bool { return a == v }
