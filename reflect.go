package sharc

import (
	"bytes"
	"reflect"
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/rawbytedev/sharc/archive"
	"github.com/rawbytedev/sharc/internal/common"
	"github.com/rawbytedev/sharc/relptr"
)

var (
	ErrNotStruct   = errors.New("sharc: expected struct")
	ErrUnsupported = errors.New("sharc: unsupported field type")
)

type fieldKind uint8

const (
	fieldFixed fieldKind = iota
	fieldString
	fieldSlice
)

type fieldInfo struct {
	idx  int
	kind fieldKind
	// elem is the primitive kind of a fixed field or of a slice's elements.
	elem reflect.Kind
	size int
	off  int
}

type fieldPlan struct {
	layout archive.Layout
	fields []fieldInfo
}

var (
	plansMu sync.RWMutex
	plans   = make(map[reflect.Type]*fieldPlan)
)

func getPlan(t reflect.Type) (*fieldPlan, error) {
	plansMu.RLock()
	if plan, ok := plans[t]; ok {
		plansMu.RUnlock()
		return plan, nil
	}
	plansMu.RUnlock()

	plansMu.Lock()
	defer plansMu.Unlock()

	// Double-check
	if plan, ok := plans[t]; ok {
		return plan, nil
	}
	if t.Kind() != reflect.Struct {
		return nil, errors.Wrapf(ErrNotStruct, "got %s", t)
	}

	plan := &fieldPlan{}
	var layouts []archive.Layout
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		fi := fieldInfo{idx: i}
		var l archive.Layout
		switch k := sf.Type.Kind(); {
		case common.IsFixedKind(k):
			fi.kind, fi.elem, fi.size = fieldFixed, k, common.FixedSize(k)
			l = archive.Layout{Size: fi.size, Align: fi.size}
		case k == reflect.String:
			fi.kind = fieldString
			l = archive.Layout{Size: relptr.Size, Align: relptr.Align}
		case k == reflect.Slice && common.IsFixedKind(sf.Type.Elem().Kind()):
			ek := sf.Type.Elem().Kind()
			fi.kind, fi.elem, fi.size = fieldSlice, ek, common.FixedSize(ek)
			l = archive.Layout{Size: relptr.Size, Align: relptr.Align}
		default:
			return nil, errors.Wrapf(ErrUnsupported, "field %s.%s of type %s", t, sf.Name, sf.Type)
		}
		plan.fields = append(plan.fields, fi)
		layouts = append(layouts, l)
	}
	layout, offs := archive.StructLayout(layouts...)
	for i := range plan.fields {
		plan.fields[i].off = offs[i]
	}
	plan.layout = layout

	plans[t] = plan
	return plan, nil
}

// reflectCodec archives a struct of fixed-width fields, strings and slices of
// fixed-width values. Fixed fields are stored inline; strings and slices are
// written out of line behind relative pointers. Unexported fields are skipped.
type reflectCodec[T any] struct {
	plan *fieldPlan
}

// Reflect builds a codec for the struct type T. The archived form is read
// back as a T.
func Reflect[T any]() (archive.Codec[T, T], error) {
	plan, err := getPlan(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	return reflectCodec[T]{plan: plan}, nil
}

func (c reflectCodec[T]) Layout() archive.Layout { return c.plan.layout }

type outOfLine struct {
	target int
	meta   uint32
}

func (c reflectCodec[T]) Serialize(s *archive.Serializer, v T) (archive.Resolver, error) {
	rv := reflect.ValueOf(&v).Elem()
	ptrs := make([]outOfLine, len(c.plan.fields))
	for i, fi := range c.plan.fields {
		fv := rv.Field(fi.idx)
		switch fi.kind {
		case fieldString:
			str := fv.String()
			pos, err := s.Write(unsafe.Slice(unsafe.StringData(str), len(str)))
			if err != nil {
				return nil, err
			}
			ptrs[i] = outOfLine{target: pos, meta: uint32(len(str))}
		case fieldSlice:
			n := fv.Len()
			body := make([]byte, n*fi.size)
			for j := 0; j < n; j++ {
				common.PutFixed(body[j*fi.size:], fv.Index(j))
			}
			if _, err := s.Align(fi.size); err != nil {
				return nil, err
			}
			pos, err := s.Write(body)
			if err != nil {
				return nil, err
			}
			ptrs[i] = outOfLine{target: pos, meta: uint32(n)}
		}
	}
	return archive.ResolverFunc(func(pos int, out []byte) {
		for i, fi := range c.plan.fields {
			if fi.kind == fieldFixed {
				common.PutFixed(out[fi.off:], rv.Field(fi.idx))
				continue
			}
			relptr.Emplace(pos+fi.off, ptrs[i].target, ptrs[i].meta, out[fi.off:fi.off+relptr.Size])
		}
	}), nil
}

func (c reflectCodec[T]) Access(buf []byte, pos int) T {
	var out T
	rv := reflect.ValueOf(&out).Elem()
	for _, fi := range c.plan.fields {
		fv := rv.Field(fi.idx)
		at := pos + fi.off
		switch fi.kind {
		case fieldFixed:
			common.SetFixed(fv, buf[at:at+fi.size], fi.elem)
		case fieldString:
			p := relptr.At(buf, at)
			fv.SetString(string(buf[p.Target() : p.Target()+int(p.Metadata())]))
		case fieldSlice:
			p := relptr.At(buf, at)
			n := int(p.Metadata())
			if n == 0 {
				continue
			}
			sv := reflect.MakeSlice(fv.Type(), n, n)
			for j := 0; j < n; j++ {
				b := buf[p.Target()+j*fi.size:]
				common.SetFixed(sv.Index(j), b[:fi.size], fi.elem)
			}
			fv.Set(sv)
		}
	}
	return out
}

func (c reflectCodec[T]) Deserialize(_ *archive.Deserializer, a T) (T, error) { return a, nil }

// Equal compares field by field. Fixed fields compare by their archived bits
// and empty slices equal nil ones.
func (c reflectCodec[T]) Equal(a T, v T) bool {
	av := reflect.ValueOf(&a).Elem()
	vv := reflect.ValueOf(&v).Elem()
	var x, y [8]byte
	for _, fi := range c.plan.fields {
		af, vf := av.Field(fi.idx), vv.Field(fi.idx)
		switch fi.kind {
		case fieldFixed:
			x, y = [8]byte{}, [8]byte{}
			common.PutFixed(x[:], af)
			common.PutFixed(y[:], vf)
			if x != y {
				return false
			}
		case fieldString:
			if af.String() != vf.String() {
				return false
			}
		case fieldSlice:
			if af.Len() != vf.Len() {
				return false
			}
			for j := 0; j < af.Len(); j++ {
				common.PutFixed(x[:], af.Index(j))
				common.PutFixed(y[:], vf.Index(j))
				if !bytes.Equal(x[:fi.size], y[:fi.size]) {
					return false
				}
			}
		}
	}
	return true
}
