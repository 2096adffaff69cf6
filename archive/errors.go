package archive

import "github.com/cockroachdb/errors"

var (
	// ErrArchiveTooLarge is returned when writing would grow the archive past
	// the serializer's MaxSize.
	ErrArchiveTooLarge = errors.New("archive: size limit exceeded")
	// ErrBufferTooShort is returned when a buffer cannot hold the root value.
	ErrBufferTooShort = errors.New("archive: buffer too short for root")
	ErrNilPointer     = errors.New("archive: nil shared pointer")
	// ErrSharedCycle is returned when a shared pointee is reached again while
	// it is still being archived or reconstructed.
	ErrSharedCycle = errors.New("archive: shared pointer cycle")
	// ErrSharedTypeMismatch is returned when one archived pointee is
	// deserialized as two different handle types.
	ErrSharedTypeMismatch = errors.New("archive: shared pointee reconstructed with a different type")
	// ErrDeserializerFinished is returned when a shared pointee is requested
	// after Finish released the registry's standing references.
	ErrDeserializerFinished = errors.New("archive: deserializer already finished")
)
