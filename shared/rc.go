// Package shared provides reference-counted shared-ownership handles.
//
// Rc and RcWeak count with plain integers and must stay on one goroutine.
// Arc and ArcWeak count atomically and may be cloned, released and upgraded
// from any goroutine.
//
// Every handle is its own value: Clone returns a new handle and Release gives
// up exactly the reference that handle holds. Releasing a handle twice is a
// no-op, so a handle can never free its allocation more than once.
package shared

import "unsafe"

// Dropper is implemented by values that own further handles. Drop runs once,
// when the last strong handle to the value is released.
type Dropper interface {
	Drop()
}

func drop[T any](v *T) {
	if d, ok := any(*v).(Dropper); ok {
		d.Drop()
		return
	}
	if d, ok := any(v).(Dropper); ok {
		d.Drop()
	}
}

type rcBox[T any] struct {
	value  T
	strong int
	weak   int
}

// Rc is a strong handle to a value shared within one goroutine.
type Rc[T any] struct {
	box      *rcBox[T]
	released bool
}

// NewRc allocates v and returns the first strong handle to it.
func NewRc[T any](v T) *Rc[T] {
	return &Rc[T]{box: &rcBox[T]{value: v, strong: 1}}
}

func (r *Rc[T]) live() *rcBox[T] {
	if r.released {
		panic("shared: use of released Rc")
	}
	return r.box
}

// Get returns the shared value.
func (r *Rc[T]) Get() T {
	return r.live().value
}

// Ptr returns a pointer to the shared value inside its allocation.
func (r *Rc[T]) Ptr() *T {
	return &r.live().value
}

// DataAddress identifies the allocation. Handles cloned from one another
// report the same address.
func (r *Rc[T]) DataAddress() unsafe.Pointer {
	return unsafe.Pointer(&r.box.value)
}

// Clone returns a new strong handle to the same allocation.
func (r *Rc[T]) Clone() *Rc[T] {
	b := r.live()
	b.strong++
	return &Rc[T]{box: b}
}

// Release gives up this handle's strong reference. The value is dropped when
// the last strong reference goes away.
func (r *Rc[T]) Release() {
	if r == nil || r.released {
		return
	}
	r.released = true
	b := r.box
	b.strong--
	if b.strong == 0 {
		v := b.value
		var zero T
		b.value = zero
		drop(&v)
	}
}

// Downgrade returns a weak handle to the same allocation.
func (r *Rc[T]) Downgrade() *RcWeak[T] {
	b := r.live()
	b.weak++
	return &RcWeak[T]{box: b}
}

// Is reports whether both handles point at the same allocation.
func (r *Rc[T]) Is(o *Rc[T]) bool {
	return r.box == o.box
}

func (r *Rc[T]) StrongCount() int { return r.box.strong }

func (r *Rc[T]) WeakCount() int { return r.box.weak }

// RcWeak is a non-owning handle to an Rc allocation.
type RcWeak[T any] struct {
	box      *rcBox[T]
	released bool
}

// NewRcWeak returns a weak handle that is not associated with any
// allocation; it never upgrades.
func NewRcWeak[T any]() *RcWeak[T] {
	return &RcWeak[T]{}
}

// Upgrade returns a new strong handle if the value is still alive.
func (w *RcWeak[T]) Upgrade() (*Rc[T], bool) {
	if w == nil || w.released || w.box == nil || w.box.strong == 0 {
		return nil, false
	}
	w.box.strong++
	return &Rc[T]{box: w.box}, true
}

// Release gives up this weak reference.
func (w *RcWeak[T]) Release() {
	if w == nil || w.released || w.box == nil {
		return
	}
	w.released = true
	w.box.weak--
}

func (w *RcWeak[T]) StrongCount() int {
	if w.box == nil {
		return 0
	}
	return w.box.strong
}

func (w *RcWeak[T]) WeakCount() int {
	if w.box == nil {
		return 0
	}
	return w.box.weak
}
