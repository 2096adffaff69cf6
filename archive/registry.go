package archive

import (
	"strconv"
	"sync"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// SharedPointer is a live strong handle the deserialization registry can
// hold. shared.Rc and shared.Arc implement it.
type SharedPointer interface {
	DataAddress() unsafe.Pointer
	Release()
}

// SharedSerializeRegistry records where each shared pointee was archived.
//
// SerializeShared returns the recorded position for key, or calls archive,
// records its result and returns it. Lookup and insert for one key happen as
// a single step: archive never runs twice for the same key. A failed archive
// records nothing.
type SharedSerializeRegistry interface {
	SerializeShared(key unsafe.Pointer, archive func() (int, error)) (int, error)
	Reset()
}

// SharedDeserializeRegistry maps archived pointees to the live allocations
// rebuilt for them.
//
// DeserializeShared returns the registered handle for key, or calls
// construct, registers its result and returns it. The registered handle is
// the registry's standing strong reference; Release gives every one of them
// up. A failed construct registers nothing.
type SharedDeserializeRegistry interface {
	DeserializeShared(key int, construct func() (SharedPointer, error)) (SharedPointer, error)
	Release()
}

// SharedSerializeMap is a SharedSerializeRegistry for a single goroutine.
type SharedSerializeMap struct {
	pos map[unsafe.Pointer]int
}

func NewSharedSerializeMap() *SharedSerializeMap {
	return &SharedSerializeMap{pos: make(map[unsafe.Pointer]int)}
}

func (m *SharedSerializeMap) SerializeShared(key unsafe.Pointer, archive func() (int, error)) (int, error) {
	if pos, ok := m.pos[key]; ok {
		return pos, nil
	}
	pos, err := archive()
	if err != nil {
		return 0, err
	}
	m.pos[key] = pos
	return pos, nil
}

func (m *SharedSerializeMap) Len() int { return len(m.pos) }

func (m *SharedSerializeMap) Reset() { clear(m.pos) }

// SyncSharedSerializeMap is a SharedSerializeRegistry safe for concurrent use.
// Concurrent first sightings of one key share a single archive call.
type SyncSharedSerializeMap struct {
	mu    sync.RWMutex
	pos   map[unsafe.Pointer]int
	group singleflight.Group
}

func NewSyncSharedSerializeMap() *SyncSharedSerializeMap {
	return &SyncSharedSerializeMap{pos: make(map[unsafe.Pointer]int)}
}

func (m *SyncSharedSerializeMap) lookup(key unsafe.Pointer) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pos, ok := m.pos[key]
	return pos, ok
}

func (m *SyncSharedSerializeMap) SerializeShared(key unsafe.Pointer, archive func() (int, error)) (int, error) {
	if pos, ok := m.lookup(key); ok {
		return pos, nil
	}
	v, err, _ := m.group.Do(strconv.FormatUint(uint64(uintptr(key)), 16), func() (any, error) {
		// a call that finished between lookup and Do already recorded it
		if pos, ok := m.lookup(key); ok {
			return pos, nil
		}
		pos, err := archive()
		if err != nil {
			return 0, err
		}
		m.mu.Lock()
		m.pos[key] = pos
		m.mu.Unlock()
		return pos, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (m *SyncSharedSerializeMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pos)
}

func (m *SyncSharedSerializeMap) Reset() {
	m.mu.Lock()
	clear(m.pos)
	m.mu.Unlock()
}

// SharedDeserializeMap is a SharedDeserializeRegistry for a single goroutine.
type SharedDeserializeMap struct {
	live map[int]SharedPointer
}

func NewSharedDeserializeMap() *SharedDeserializeMap {
	return &SharedDeserializeMap{live: make(map[int]SharedPointer)}
}

func (m *SharedDeserializeMap) DeserializeShared(key int, construct func() (SharedPointer, error)) (SharedPointer, error) {
	if p, ok := m.live[key]; ok {
		debug("shared pointee reused", zap.Int("key", key))
		return p, nil
	}
	p, err := construct()
	if err != nil {
		return nil, err
	}
	m.live[key] = p
	debug("shared pointee constructed", zap.Int("key", key))
	return p, nil
}

func (m *SharedDeserializeMap) Len() int { return len(m.live) }

func (m *SharedDeserializeMap) Release() {
	for key, p := range m.live {
		p.Release()
		delete(m.live, key)
	}
	debug("deserialize registry released")
}

// SyncSharedDeserializeMap is a SharedDeserializeRegistry safe for concurrent
// use. Concurrent first sightings of one key share a single construct call and
// receive the same handle.
type SyncSharedDeserializeMap struct {
	mu    sync.RWMutex
	live  map[int]SharedPointer
	group singleflight.Group
}

func NewSyncSharedDeserializeMap() *SyncSharedDeserializeMap {
	return &SyncSharedDeserializeMap{live: make(map[int]SharedPointer)}
}

func (m *SyncSharedDeserializeMap) lookup(key int) (SharedPointer, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.live[key]
	return p, ok
}

func (m *SyncSharedDeserializeMap) DeserializeShared(key int, construct func() (SharedPointer, error)) (SharedPointer, error) {
	if p, ok := m.lookup(key); ok {
		return p, nil
	}
	v, err, shared := m.group.Do(strconv.Itoa(key), func() (any, error) {
		if p, ok := m.lookup(key); ok {
			return p, nil
		}
		p, err := construct()
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.live[key] = p
		m.mu.Unlock()
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	debug("shared pointee resolved", zap.Int("key", key), zap.Bool("shared", shared))
	return v.(SharedPointer), nil
}

func (m *SyncSharedDeserializeMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.live)
}

func (m *SyncSharedDeserializeMap) Release() {
	m.mu.Lock()
	live := m.live
	m.live = make(map[int]SharedPointer)
	m.mu.Unlock()
	for _, p := range live {
		p.Release()
	}
	debug("deserialize registry released", zap.Int("entries", len(live)))
}
