// Package demo holds a small object graph with shared pointers, used by the
// CLI and the examples.
package demo

import (
	"github.com/rawbytedev/sharc/archive"
	"github.com/rawbytedev/sharc/shared"
)

// Graph has two strong pointers that usually share one value, a weak
// pointer and a label.
type Graph struct {
	A, B  *shared.Rc[int32]
	W     *shared.RcWeak[int32]
	Label string
}

// Sample returns a graph whose A and B share value and whose W points at it
// too.
func Sample(value int32, label string) Graph {
	a := shared.NewRc(value)
	return Graph{A: a, B: a.Clone(), W: a.Downgrade(), Label: label}
}

// Release drops every handle the graph holds.
func (g Graph) Release() {
	g.A.Release()
	g.B.Release()
	g.W.Release()
}

type ArchivedGraph struct {
	A, B  archive.ArchivedRc[int32, int32]
	W     archive.ArchivedRcWeak[int32, int32]
	Label archive.ArchivedBox[string, archive.ArchivedString]
}

type Codec struct {
	rc     archive.RcArchiver[int32, int32]
	weak   archive.RcWeakArchiver[int32, int32]
	label  archive.Codec[string, archive.ArchivedBox[string, archive.ArchivedString]]
	layout archive.Layout
	offs   []int
}

func NewCodec() Codec {
	p := archive.Sized(archive.Primitive[int32]())
	c := Codec{rc: archive.ForRc(p), weak: archive.ForRcWeak(p), label: archive.StringField()}
	c.layout, c.offs = archive.StructLayout(c.rc.Layout(), c.rc.Layout(), c.weak.Layout(), c.label.Layout())
	return c
}

func (c Codec) Layout() archive.Layout { return c.layout }

func (c Codec) Serialize(s *archive.Serializer, g Graph) (archive.Resolver, error) {
	ra, err := c.rc.Serialize(s, g.A)
	if err != nil {
		return nil, err
	}
	rb, err := c.rc.Serialize(s, g.B)
	if err != nil {
		return nil, err
	}
	rw, err := c.weak.Serialize(s, g.W)
	if err != nil {
		return nil, err
	}
	rl, err := c.label.Serialize(s, g.Label)
	if err != nil {
		return nil, err
	}
	return archive.ResolverFunc(func(pos int, out []byte) {
		archive.ResolveField(ra, pos, c.offs[0], c.rc.Layout(), out)
		archive.ResolveField(rb, pos, c.offs[1], c.rc.Layout(), out)
		archive.ResolveField(rw, pos, c.offs[2], c.weak.Layout(), out)
		archive.ResolveField(rl, pos, c.offs[3], c.label.Layout(), out)
	}), nil
}

func (c Codec) Access(buf []byte, pos int) ArchivedGraph {
	return ArchivedGraph{
		A:     c.rc.Access(buf, pos+c.offs[0]),
		B:     c.rc.Access(buf, pos+c.offs[1]),
		W:     c.weak.Access(buf, pos+c.offs[2]),
		Label: c.label.Access(buf, pos+c.offs[3]),
	}
}

func (c Codec) Deserialize(d *archive.Deserializer, a ArchivedGraph) (Graph, error) {
	var g Graph
	var err error
	if g.A, err = c.rc.Deserialize(d, a.A); err != nil {
		return Graph{}, err
	}
	if g.B, err = c.rc.Deserialize(d, a.B); err != nil {
		g.A.Release()
		return Graph{}, err
	}
	if g.W, err = c.weak.Deserialize(d, a.W); err != nil {
		g.A.Release()
		g.B.Release()
		return Graph{}, err
	}
	if g.Label, err = c.label.Deserialize(d, a.Label); err != nil {
		g.Release()
		return Graph{}, err
	}
	return g, nil
}

func (c Codec) Equal(a ArchivedGraph, g Graph) bool {
	return c.rc.Equal(a.A, g.A) && c.rc.Equal(a.B, g.B) &&
		c.weak.Equal(a.W, g.W) && c.label.Equal(a.Label, g.Label)
}

// Pointer describes one archived pointer.
type Pointer struct {
	Pos    int   `yaml:"pos"`
	Target int   `yaml:"target,omitempty"`
	Value  int32 `yaml:"value,omitempty"`
	None   bool  `yaml:"none,omitempty"`
}

// Summary is a printable description of an archived graph.
type Summary struct {
	Size   int     `yaml:"size"`
	Label  string  `yaml:"label"`
	A      Pointer `yaml:"a"`
	B      Pointer `yaml:"b"`
	W      Pointer `yaml:"w"`
	Shared bool    `yaml:"shared"`
}

// Describe summarizes a without deserializing it.
func Describe(a ArchivedGraph, size int) Summary {
	s := Summary{
		Size:  size,
		Label: a.Label.Get().String(),
		A:     Pointer{Pos: a.A.Pos(), Target: a.A.Target(), Value: a.A.Get()},
		B:     Pointer{Pos: a.B.Pos(), Target: a.B.Target(), Value: a.B.Get()},
		W:     Pointer{Pos: a.W.Pos(), None: true},
	}
	if up, ok := a.W.Upgrade(); ok {
		s.W = Pointer{Pos: a.W.Pos(), Target: up.Target(), Value: up.Get()}
	}
	s.Shared = s.A.Target == s.B.Target
	return s
}
