package lower

import (
	"testing"

	"github.com/wippyai/listgen/errors"
	"github.com/wippyai/listgen/internal/hostrt"
	"github.com/wippyai/listgen/layout"
)

func TestAllocateList(t *testing.T) {
	tests := []struct {
		name   string
		mode   AllocMode
		header int32
	}{
		{"clone", Clone, 1},
		{"in place", InPlace, 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := compile(t, func(s *Session) {
				f := s.NewFunc("alloc", Signature{Params: []layout.Layout{layout.Usize}, Result: i64List})
				f.FinishList(f.AllocateList(tc.mode, layout.I64, f.Param(0)))
				export(s, "alloc", f)
			})
			ptr, n := hostrt.Unpack(g.call("alloc", 3))
			if n != 3 {
				t.Fatalf("len = %d, want 3", n)
			}
			if ptr%8 != 0 {
				t.Errorf("data %d not aligned for i64", ptr)
			}
			if got := g.refcount(ptr); got != tc.header {
				t.Errorf("header = %d, want %d", got, tc.header)
			}
			if !g.rt.IsLive(ptr - 8) {
				t.Error("allocation does not start one header extra before the data")
			}
		})
	}
}

func TestListGetUnsafe(t *testing.T) {
	boxes := layout.NewList(boxI64)
	g := compile(t, func(s *Session) {
		f := s.NewFunc("get", Signature{Params: []layout.Layout{i64List, layout.Usize}, Result: layout.I64})
		f.FinishValue(f.ListGetUnsafe(i64List, f.ParamList(0), f.Param(1)))
		export(s, "get", f)

		b := s.NewFunc("get_box", Signature{Params: []layout.Layout{boxes, layout.Usize}, Result: boxI64})
		b.FinishValue(b.ListGetUnsafe(boxes, b.ParamList(0), b.Param(1)))
		export(s, "get_box", b)
	})

	if got := int64(g.call("get", g.list(7, 8, 9), 2)); got != 9 {
		t.Errorf("get = %d, want 9", got)
	}

	b0, b1 := g.box(10), g.box(11)
	l := g.rt.NewList(g.mod, 4, 4, u32Bytes(b0), u32Bytes(b1))
	if got := uint32(g.call("get_box", l, 1)); got != b1 {
		t.Fatalf("get_box = %d, want %d", got, b1)
	}
	if g.refcount(b1) != 2 || g.refcount(b0) != 1 {
		t.Errorf("refcounts = %d, %d; want 1, 2", g.refcount(b0), g.refcount(b1))
	}
}

func TestBoundsCheck(t *testing.T) {
	g := compile(t, func(s *Session) {
		f := s.NewFunc("in_bounds", Signature{Params: []layout.Layout{layout.Usize, i64List}, Result: layout.Bool})
		f.FinishValue(f.BoundsCheck(f.Param(0), f.ParamList(1)))
		export(s, "in_bounds", f)
	})
	l := g.list(1, 2)
	for i, want := range []uint64{1, 1, 0, 0} {
		if got := g.call("in_bounds", uint64(i), l); got != want {
			t.Errorf("in_bounds(%d) = %d, want %d", i, got, want)
		}
	}
}

func TestListPrepend(t *testing.T) {
	g := compile(t, func(s *Session) {
		f := s.NewFunc("prepend", Signature{Params: []layout.Layout{i64List, layout.I64}, Result: i64List})
		f.FinishList(f.ListPrepend(Clone, f.ParamList(0), f.Param(1)))
		export(s, "prepend", f)
	})
	in := g.list(2, 3)
	out := g.call("prepend", in, 1)
	if got := g.ints(out); !equalInts(got, []int64{1, 2, 3}) {
		t.Errorf("prepend = %v", got)
	}
	ptr, _ := hostrt.Unpack(out)
	if g.refcount(ptr) != 1 {
		t.Errorf("header = %d, want 1", g.refcount(ptr))
	}
	if got := g.ints(in); !equalInts(got, []int64{2, 3}) {
		t.Errorf("input changed to %v", got)
	}
	if got := g.ints(g.call("prepend", 0, 5)); !equalInts(got, []int64{5}) {
		t.Errorf("prepend to empty = %v", got)
	}
}

func TestListPrependInPlaceIsReleasedOnce(t *testing.T) {
	unique := layout.NewUniqueList(layout.I64)
	g := compile(t, func(s *Session) {
		f := s.NewFunc("prepend_drop", Signature{Params: []layout.Layout{i64List, layout.I64}})
		out := f.ListPrepend(InPlace, f.ParamList(0), f.Param(1))
		s.rc.Dec(f, f.ListValue(unique, out))
		f.Finish()
		export(s, "prepend_drop", f)
	})

	in := g.list(2, 3)
	ptr, _ := hostrt.Unpack(in)
	g.call("prepend_drop", in, 1)
	if st := g.rt.Stats(); st.Allocs != 2 || st.Frees != 1 || st.BadFrees != 0 {
		t.Errorf("stats = %+v, want the prepended list freed", st)
	}
	if g.rt.Live() != 1 || !g.rt.IsLive(ptr-8) {
		t.Errorf("live = %d, want only the input list", g.rt.Live())
	}
}

func TestListPrependRefcountedIsUnimplemented(t *testing.T) {
	boxes := layout.NewList(boxI64)
	e := lowerError(t, func(s *Session) {
		f := s.NewFunc("prepend", Signature{Params: []layout.Layout{boxes, boxI64}, Result: boxes})
		f.FinishList(f.ListPrepend(Clone, f.ParamList(0), f.Param(1)))
	})
	if e.Kind != errors.KindUnimplemented || e.Op != "list_prepend" {
		t.Errorf("error = %v", e)
	}
	if !e.Internal() {
		t.Error("unimplemented errors are internal")
	}
}

func TestStructFields(t *testing.T) {
	pair := layout.NewStruct(layout.U8, layout.I64)
	g := compile(t, func(s *Session) {
		f := s.NewFunc("second", Signature{Params: []layout.Layout{layout.U8, layout.I64}, Result: layout.I64})
		v := f.BuildStruct(pair, f.Param(0), f.Param(1))
		f.FinishValue(f.StructField(v, 1))
		export(s, "second", f)
	})
	if got := int64(g.call("second", 1, uint64(0xFFFFFFFFFFFFFFFB))); got != -5 {
		t.Errorf("second = %d, want -5", got)
	}
}

func TestBuildStructFieldMismatch(t *testing.T) {
	e := lowerError(t, func(s *Session) {
		f := s.NewFunc("bad", Signature{})
		f.BuildStruct(layout.NewStruct(layout.I64), f.Const(1, layout.U8))
	})
	if e.Kind != errors.KindInvariant {
		t.Errorf("kind = %s", e.Kind)
	}
}

func u32Bytes(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}
