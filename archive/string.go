package archive

import (
	"unsafe"
)

// ArchivedString is a string stored in an archive.
type ArchivedString struct {
	b []byte
}

// Bytes returns the string's bytes inside the archive buffer.
func (s ArchivedString) Bytes() []byte { return s.b }

func (s ArchivedString) String() string { return string(s.b) }

func (s ArchivedString) Len() int { return len(s.b) }

// UnsafeString returns the string without copying. The result aliases the
// archive buffer, which must not change while the string is in use.
func (s ArchivedString) UnsafeString() string {
	if len(s.b) == 0 {
		return ""
	}
	return unsafe.String(&s.b[0], len(s.b))
}

type stringCodec struct{}

// String returns the pointee codec for strings. The bytes are written as is
// and the pointer metadata holds their length.
func String() UnsizedCodec[string, ArchivedString] { return stringCodec{} }

func (stringCodec) SerializeUnsized(s *Serializer, v string) (int, error) {
	return s.Write(unsafe.Slice(unsafe.StringData(v), len(v)))
}

func (stringCodec) SerializeMetadata(_ *Serializer, v string) (MetadataResolver, error) {
	return Meta(uint32(len(v))), nil
}

func (stringCodec) AccessUnsized(buf []byte, pos int, meta uint32) ArchivedString {
	end := pos + int(meta)
	return ArchivedString{b: buf[pos:end:end]}
}

func (stringCodec) ArchivedSize(meta uint32) int { return int(meta) }

func (stringCodec) DeserializeUnsized(d *Deserializer, a ArchivedString) (string, error) {
	if d.opts.UnsafeStrings {
		return a.UnsafeString(), nil
	}
	return a.String(), nil
}

func (stringCodec) EqualUnsized(a ArchivedString, v string) bool { return a.String() == v }
