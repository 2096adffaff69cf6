package container

import (
	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zstd"
)

// decompress inflates payload, refusing to produce more than limit bytes.
// The limit bounds memory before the decoded length is compared with the
// header.
func decompress(payload []byte, limit uint32) ([]byte, error) {
	d, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(uint64(limit)+1),
	)
	if err != nil {
		return nil, errors.Wrap(err, "container: zstd decoder")
	}
	defer d.Close()
	data, err := d.DecodeAll(payload, make([]byte, 0, limit))
	if errors.Is(err, zstd.ErrDecoderSizeExceeded) {
		return nil, errors.Wrapf(ErrTooLarge, "payload inflates past the %d bytes the header declares", limit)
	}
	if err != nil {
		return nil, errors.Wrap(err, "container: decompress")
	}
	return data, nil
}

// Open checks a frame and returns a fresh copy of the archive it holds, so
// the result never aliases frame.
func Open(frame []byte) ([]byte, Header, error) {
	h, err := ParseHeader(frame)
	if err != nil {
		return nil, h, err
	}
	payload := frame[HeaderSize:]
	if uint64(len(payload)) != uint64(h.StoredLen) {
		return nil, h, errors.Wrapf(ErrTruncated, "payload is %d bytes, header says %d", len(payload), h.StoredLen)
	}
	if got := checksum(frame); got != h.CRC {
		return nil, h, errors.Wrapf(ErrChecksum, "got %#08x, want %#08x", got, h.CRC)
	}

	var data []byte
	if h.Flags&FlagZstd != 0 {
		if data, err = decompress(payload, h.DataLen); err != nil {
			return nil, h, err
		}
	} else {
		data = make([]byte, len(payload))
		copy(data, payload)
	}
	if uint64(len(data)) != uint64(h.DataLen) || h.RootPos > h.DataLen {
		return nil, h, errors.Wrapf(ErrTruncated, "archive is %d bytes, header says %d with root at %d", len(data), h.DataLen, h.RootPos)
	}
	return data, h, nil
}
