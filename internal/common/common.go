package common

import (
	"encoding/binary"
	"math"
	"reflect"
)

// Number is the set of fixed-width numeric types archived in place.
type Number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

// IsFixedKind reports whether k is a fixed-size primitive kind.
func IsFixedKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// FixedSize returns the byte width for fixed-size primitive kinds.
// Archived primitives are aligned to their own width.
func FixedSize(k reflect.Kind) int {
	switch k {
	case reflect.Bool, reflect.Int8, reflect.Uint8:
		return 1
	case reflect.Int16, reflect.Uint16:
		return 2
	case reflect.Int32, reflect.Uint32, reflect.Float32:
		return 4
	case reflect.Int64, reflect.Uint64, reflect.Float64:
		return 8
	default:
		return -1
	}
}

func isSigned(k reflect.Kind) bool {
	switch k {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

// NumberAt decodes a little-endian T of kind k from b.
func NumberAt[T Number](b []byte, k reflect.Kind) T {
	switch k {
	case reflect.Int8:
		return T(int8(b[0]))
	case reflect.Uint8:
		return T(b[0])
	case reflect.Int16:
		return T(int16(binary.LittleEndian.Uint16(b)))
	case reflect.Uint16:
		return T(binary.LittleEndian.Uint16(b))
	case reflect.Int32:
		return T(int32(binary.LittleEndian.Uint32(b)))
	case reflect.Uint32:
		return T(binary.LittleEndian.Uint32(b))
	case reflect.Int64:
		return T(int64(binary.LittleEndian.Uint64(b)))
	case reflect.Uint64:
		return T(binary.LittleEndian.Uint64(b))
	case reflect.Float32:
		return T(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case reflect.Float64:
		return T(math.Float64frombits(binary.LittleEndian.Uint64(b)))
	}
	panic("common: unsupported number kind " + k.String())
}

// PutNumber encodes x of kind k into b, little endian.
func PutNumber[T Number](b []byte, k reflect.Kind, x T) {
	switch k {
	case reflect.Float32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(x)))
		return
	case reflect.Float64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(float64(x)))
		return
	}
	var u uint64
	if isSigned(k) {
		u = uint64(int64(x))
	} else {
		u = uint64(x)
	}
	switch FixedSize(k) {
	case 1:
		b[0] = byte(u)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(u))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(u))
	case 8:
		binary.LittleEndian.PutUint64(b, u)
	default:
		panic("common: unsupported number kind " + k.String())
	}
}

// PutFixed encodes the fixed-width value v into b.
func PutFixed(b []byte, v reflect.Value) {
	switch k := v.Kind(); k {
	case reflect.Bool:
		if v.Bool() {
			b[0] = 1
		} else {
			b[0] = 0
		}
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		PutNumber(b, k, v.Int())
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		PutNumber(b, k, v.Uint())
	case reflect.Float32, reflect.Float64:
		PutNumber(b, k, v.Float())
	default:
		panic("common: not a fixed kind " + k.String())
	}
}

// SetFixed decodes a fixed-width primitive from b and sets dst.
func SetFixed(dst reflect.Value, b []byte, k reflect.Kind) {
	switch k {
	case reflect.Bool:
		dst.SetBool(b[0] != 0)
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		dst.SetInt(NumberAt[int64](b, k))
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		dst.SetUint(NumberAt[uint64](b, k))
	case reflect.Float32, reflect.Float64:
		dst.SetFloat(NumberAt[float64](b, k))
	}
}
