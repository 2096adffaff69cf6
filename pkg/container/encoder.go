package container

import (
	"encoding/binary"
	"hash/crc32"
	"math"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zstd"
)

// Options configures Seal.
type Options struct {
	// Compress stores the archive zstd compressed when that makes it smaller.
	Compress bool
}

var (
	encOnce sync.Once
	enc     *zstd.Encoder
	encErr  error
)

func encoder() (*zstd.Encoder, error) {
	encOnce.Do(func() {
		enc, encErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	})
	return enc, encErr
}

func checksum(frame []byte) uint32 {
	// everything but the magic and the CRC field itself
	crc := crc32.ChecksumIEEE(frame[4:20])
	return crc32.Update(crc, crc32.IEEETable, frame[HeaderSize:])
}

// Seal frames data, an archive whose root value sits at root.
func Seal(data []byte, root int, opts Options) ([]byte, error) {
	if uint64(len(data)) > math.MaxUint32 || root < 0 || root > len(data) {
		return nil, errors.Wrapf(ErrTooLarge, "archive of %d bytes with root at %d", len(data), root)
	}
	h := Header{
		Magic:   Magic,
		Version: Version,
		RootPos: uint32(root),
		DataLen: uint32(len(data)),
	}
	payload := data
	if opts.Compress {
		e, err := encoder()
		if err != nil {
			return nil, errors.Wrap(err, "container: zstd encoder")
		}
		if z := e.EncodeAll(data, make([]byte, 0, len(data))); len(z) < len(data) {
			payload = z
			h.Flags |= FlagZstd
		}
	}
	h.StoredLen = uint32(len(payload))

	out := encodeHeader(make([]byte, 0, HeaderSize+len(payload)), h)
	out = append(out, payload...)
	binary.LittleEndian.PutUint32(out[20:], checksum(out))
	return out, nil
}
