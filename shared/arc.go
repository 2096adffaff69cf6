package shared

import (
	"unsafe"

	"go.uber.org/atomic"
)

type arcBox[T any] struct {
	value  T
	strong atomic.Int64
	weak   atomic.Int64
}

// Arc is a strong handle to a value shared across goroutines.
type Arc[T any] struct {
	box      *arcBox[T]
	released atomic.Bool
}

// NewArc allocates v and returns the first strong handle to it.
func NewArc[T any](v T) *Arc[T] {
	b := &arcBox[T]{value: v}
	b.strong.Store(1)
	return &Arc[T]{box: b}
}

func (a *Arc[T]) live() *arcBox[T] {
	if a.released.Load() {
		panic("shared: use of released Arc")
	}
	return a.box
}

// Get returns the shared value.
func (a *Arc[T]) Get() T {
	return a.live().value
}

// Ptr returns a pointer to the shared value. Callers synchronise writes
// through it themselves.
func (a *Arc[T]) Ptr() *T {
	return &a.live().value
}

// DataAddress identifies the allocation.
func (a *Arc[T]) DataAddress() unsafe.Pointer {
	return unsafe.Pointer(&a.box.value)
}

// Clone returns a new strong handle to the same allocation.
func (a *Arc[T]) Clone() *Arc[T] {
	b := a.live()
	b.strong.Inc()
	return &Arc[T]{box: b}
}

// Release gives up this handle's strong reference. It is safe to call from
// several goroutines; only the first call counts.
func (a *Arc[T]) Release() {
	if a == nil || !a.released.CompareAndSwap(false, true) {
		return
	}
	b := a.box
	if b.strong.Dec() == 0 {
		v := b.value
		var zero T
		b.value = zero
		drop(&v)
	}
}

// Downgrade returns a weak handle to the same allocation.
func (a *Arc[T]) Downgrade() *ArcWeak[T] {
	b := a.live()
	b.weak.Inc()
	return &ArcWeak[T]{box: b}
}

// Is reports whether both handles point at the same allocation.
func (a *Arc[T]) Is(o *Arc[T]) bool {
	return a.box == o.box
}

func (a *Arc[T]) StrongCount() int { return int(a.box.strong.Load()) }

func (a *Arc[T]) WeakCount() int { return int(a.box.weak.Load()) }

// ArcWeak is a non-owning handle to an Arc allocation.
type ArcWeak[T any] struct {
	box      *arcBox[T]
	released atomic.Bool
}

// NewArcWeak returns a weak handle that never upgrades.
func NewArcWeak[T any]() *ArcWeak[T] {
	return &ArcWeak[T]{}
}

// Upgrade returns a new strong handle if the value is still alive. A strong
// count that reached zero is never revived.
func (w *ArcWeak[T]) Upgrade() (*Arc[T], bool) {
	if w == nil || w.box == nil || w.released.Load() {
		return nil, false
	}
	for {
		n := w.box.strong.Load()
		if n == 0 {
			return nil, false
		}
		if w.box.strong.CompareAndSwap(n, n+1) {
			return &Arc[T]{box: w.box}, true
		}
	}
}

// Release gives up this weak reference.
func (w *ArcWeak[T]) Release() {
	if w == nil || w.box == nil || !w.released.CompareAndSwap(false, true) {
		return
	}
	w.box.weak.Dec()
}

func (w *ArcWeak[T]) StrongCount() int {
	if w.box == nil {
		return 0
	}
	return int(w.box.strong.Load())
}

func (w *ArcWeak[T]) WeakCount() int {
	if w.box == nil {
		return 0
	}
	return int(w.box.weak.Load())
}
