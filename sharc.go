// Package sharc archives Go values, shared pointers included, into buffers
// that are read in place.
//
// The codecs live in package archive; this package wires them to sealed
// frames and adds Reflect, a codec for flat structs built by reflection.
package sharc

import (
	"github.com/rawbytedev/sharc/archive"
	"github.com/rawbytedev/sharc/pkg/container"
)

type Options struct {
	// MaxSize bounds the archive, see archive.SerializerOptions.
	MaxSize int
	// UnsafeStrings lets deserialized strings alias the archive buffer.
	UnsafeStrings bool
	// Compress zstd compresses sealed frames.
	Compress bool
}

func serialize[T, A any](c archive.Codec[T, A], v T, opts Options) ([]byte, int, error) {
	s := archive.NewSerializer(archive.SerializerOptions{MaxSize: opts.MaxSize})
	root, err := archive.SerializeValue(s, c, v)
	if err != nil {
		return nil, 0, err
	}
	return s.Bytes(), root, nil
}

// ToBytes archives v. The root value occupies the end of the result.
func ToBytes[T, A any](c archive.Codec[T, A], v T, opts Options) ([]byte, error) {
	b, _, err := serialize(c, v, opts)
	return b, err
}

// Access returns the archived root of buf without copying or decoding it.
func Access[T, A any](c archive.Codec[T, A], buf []byte) (A, error) {
	return archive.AccessRoot(c, buf)
}

// FromBytes rebuilds the live root value of buf. Shared pointers that aliased
// one allocation when archived alias one allocation again.
func FromBytes[T, A any](c archive.Codec[T, A], buf []byte, opts Options) (T, error) {
	a, err := archive.AccessRoot(c, buf)
	if err != nil {
		var zero T
		return zero, err
	}
	return archive.Deserialize(c, a, archive.DeserializerOptions{UnsafeStrings: opts.UnsafeStrings})
}

// Seal archives v into a checksummed frame.
func Seal[T, A any](c archive.Codec[T, A], v T, opts Options) ([]byte, error) {
	b, root, err := serialize(c, v, opts)
	if err != nil {
		return nil, err
	}
	return container.Seal(b, root, container.Options{Compress: opts.Compress})
}

// Open checks a sealed frame and returns its root view along with the archive
// the view reads from. The archive is a fresh buffer owned by the caller.
func Open[T, A any](c archive.Codec[T, A], frame []byte) (A, []byte, error) {
	var zero A
	data, h, err := container.Open(frame)
	if err != nil {
		return zero, nil, err
	}
	a, err := archive.AccessAt(c, data, int(h.RootPos))
	if err != nil {
		return zero, nil, err
	}
	return a, data, nil
}
