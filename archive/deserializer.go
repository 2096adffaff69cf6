package archive

import (
	"github.com/cockroachdb/errors"
)

// DeserializerOptions configures a Deserializer.
type DeserializerOptions struct {
	// UnsafeStrings makes deserialized strings alias the archive buffer
	// instead of copying it. The buffer must then outlive and never change
	// under the returned values.
	UnsafeStrings bool
	// Registry reconciles shared pointees. When nil the deserializer creates
	// a SharedDeserializeMap and owns it; a registry passed in here is owned
	// by the caller, who releases it once every deserializer sharing it is
	// done.
	Registry SharedDeserializeRegistry
}

// Deserializer rebuilds live values from an archive. It is not safe for
// concurrent use. Goroutines rebuilding parts of one archive in parallel each
// take their own Deserializer over a shared SyncSharedDeserializeMap.
type Deserializer struct {
	opts     DeserializerOptions
	registry SharedDeserializeRegistry
	owned    bool
	pending  map[int]struct{}
	finished bool
}

func NewDeserializer(opts DeserializerOptions) *Deserializer {
	d := &Deserializer{
		opts:     opts,
		registry: opts.Registry,
		pending:  make(map[int]struct{}),
	}
	if d.registry == nil {
		d.registry = NewSharedDeserializeMap()
		d.owned = true
	}
	return d
}

// DeserializeShared returns the live allocation for the archived pointee at
// key, calling construct only the first time the key is seen. The registry
// keeps the returned handle as its standing reference; callers Clone it
// before handing it out.
func (d *Deserializer) DeserializeShared(key int, construct func() (SharedPointer, error)) (SharedPointer, error) {
	if d.finished {
		return nil, errors.Wrapf(ErrDeserializerFinished, "archived pointee at %d", key)
	}
	if _, busy := d.pending[key]; busy {
		return nil, errors.Wrapf(ErrSharedCycle, "archived pointee at %d", key)
	}
	return d.registry.DeserializeShared(key, func() (SharedPointer, error) {
		d.pending[key] = struct{}{}
		defer delete(d.pending, key)
		return construct()
	})
}

// Finish drops the standing references of an owned registry. Afterwards each
// reconstructed allocation is held only by the handles returned to the
// caller. Finish is idempotent.
func (d *Deserializer) Finish() {
	if d.finished {
		return
	}
	d.finished = true
	if d.owned {
		d.registry.Release()
	}
}

// Deserialize rebuilds the live value behind a and finishes a fresh
// deserializer.
func Deserialize[T, A any](c Codec[T, A], a A, opts DeserializerOptions) (T, error) {
	d := NewDeserializer(opts)
	defer d.Finish()
	return c.Deserialize(d, a)
}
