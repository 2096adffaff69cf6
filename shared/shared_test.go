package shared

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counted struct {
	drops *int
}

func (c counted) Drop() { *c.drops++ }

type owner struct {
	child *Rc[int]
}

func (o *owner) Drop() { o.child.Release() }

func TestRcCloneRelease(t *testing.T) {
	drops := 0
	a := NewRc(counted{drops: &drops})
	b := a.Clone()
	require.True(t, a.Is(b))
	require.Equal(t, 2, a.StrongCount())

	a.Release()
	a.Release() // second release of the same handle is ignored
	require.Equal(t, 1, b.StrongCount())
	require.Zero(t, drops)

	b.Release()
	require.Equal(t, 0, b.StrongCount())
	require.Equal(t, 1, drops)
	require.Panics(t, func() { b.Get() })
}

func TestRcWeakUpgrade(t *testing.T) {
	a := NewRc(42)
	w := a.Downgrade()
	require.Equal(t, 1, a.WeakCount())

	up, ok := w.Upgrade()
	require.True(t, ok)
	require.True(t, up.Is(a))
	require.Equal(t, 42, up.Get())
	require.Equal(t, 2, a.StrongCount())
	up.Release()

	a.Release()
	_, ok = w.Upgrade()
	require.False(t, ok)
	w.Release()
	require.Zero(t, w.WeakCount())
}

func TestNullWeakNeverUpgrades(t *testing.T) {
	_, ok := NewRcWeak[int]().Upgrade()
	assert.False(t, ok)
	_, ok = NewArcWeak[int]().Upgrade()
	assert.False(t, ok)

	var nilWeak *RcWeak[int]
	_, ok = nilWeak.Upgrade()
	assert.False(t, ok)
}

func TestReleaseNilHandles(t *testing.T) {
	var rw *RcWeak[int32]
	var aw *ArcWeak[int32]
	var r *Rc[int32]
	var a *Arc[int32]
	require.NotPanics(t, func() {
		rw.Release()
		aw.Release()
		r.Release()
		a.Release()
	})
}

func TestRcDropReleasesNestedHandles(t *testing.T) {
	child := NewRc(7)
	w := child.Downgrade()
	parent := NewRc(&owner{child: child})

	parent.Release()
	_, ok := w.Upgrade()
	require.False(t, ok)
}

func TestRcDataAddress(t *testing.T) {
	a := NewRc("x")
	b := a.Clone()
	c := NewRc("x")
	require.Equal(t, a.DataAddress(), b.DataAddress())
	require.NotEqual(t, a.DataAddress(), c.DataAddress())
	require.Same(t, a.Ptr(), b.Ptr())
}

func TestArcConcurrentCloneRelease(t *testing.T) {
	drops := 0
	a := NewArc(counted{drops: &drops})
	w := a.Downgrade()

	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := a.Clone()
			if up, ok := w.Upgrade(); ok {
				up.Release()
			}
			c.Release()
			c.Release()
		}()
	}
	wg.Wait()
	require.Equal(t, 1, a.StrongCount())
	require.Zero(t, drops)

	a.Release()
	require.Equal(t, 1, drops)
	_, ok := w.Upgrade()
	require.False(t, ok)
}

func TestArcWeakCounts(t *testing.T) {
	a := NewArc([]byte("payload"))
	w1 := a.Downgrade()
	w2 := w1
	require.Equal(t, 1, a.WeakCount())
	w1.Release()
	w2.Release()
	require.Zero(t, a.WeakCount())
	require.Equal(t, 1, w1.StrongCount())
	a.Release()
	require.Zero(t, w1.StrongCount())
}
