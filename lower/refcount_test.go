package lower

import (
	"testing"

	"github.com/wippyai/listgen/errors"
	"github.com/wippyai/listgen/internal/hostrt"
	"github.com/wippyai/listgen/layout"
	"github.com/wippyai/listgen/rtabi"
)

// release drops one reference to a list argument.
func release(s *Session, name string, l layout.Layout) {
	f := s.NewFunc(name, Signature{Params: []layout.Layout{l}})
	s.rc.Dec(f, f.ListValue(l, f.ParamList(0)))
	f.Finish()
	export(s, name, f)
}

func TestDecFreesLastReference(t *testing.T) {
	g := compile(t, func(s *Session) {
		release(s, "release", i64List)
	})

	v := g.list(1, 2)
	ptr, _ := hostrt.Unpack(v)
	hostrt.SetRefcount(g.mod, ptr, 2)
	g.call("release", v)
	if g.refcount(ptr) != 1 || !g.rt.IsLive(ptr-8) {
		t.Fatalf("shared list: refcount = %d, live = %v", g.refcount(ptr), g.rt.IsLive(ptr-8))
	}
	g.call("release", v)
	if g.rt.IsLive(ptr - 8) {
		t.Error("last reference did not free the list")
	}
	if st := g.rt.Stats(); st.Frees != 1 || st.BadFrees != 0 {
		t.Errorf("stats = %+v", st)
	}

	g.call("release", 0)
	if g.rt.Stats().BadFrees != 0 {
		t.Error("releasing the empty list freed memory")
	}
}

func TestDecReleasesElements(t *testing.T) {
	boxes := layout.NewList(boxI64)
	g := compile(t, func(s *Session) {
		release(s, "release", boxes)
	})

	shared, owned := g.box(1), g.box(2)
	hostrt.SetRefcount(g.mod, shared, 3)
	l := g.rt.NewList(g.mod, 4, 4, u32Bytes(shared), u32Bytes(owned))
	ptr, _ := hostrt.Unpack(l)

	g.call("release", l)
	if g.rt.IsLive(ptr-4) || g.rt.IsLive(owned-8) {
		t.Error("list or its last-owner element still live")
	}
	if g.refcount(shared) != 2 {
		t.Errorf("shared element refcount = %d, want 2", g.refcount(shared))
	}
	if st := g.rt.Stats(); st.Frees != 2 || st.BadFrees != 0 {
		t.Errorf("stats = %+v", st)
	}
}

func TestDecUniqueAlwaysFrees(t *testing.T) {
	unique := layout.NewUniqueList(layout.I64)
	g := compile(t, func(s *Session) {
		release(s, "release", unique)
	})
	v := g.list(1)
	ptr, _ := hostrt.Unpack(v)
	hostrt.SetRefcount(g.mod, ptr, 5)
	g.call("release", v)
	if g.rt.IsLive(ptr - 8) {
		t.Error("unique list not freed")
	}
}

func TestIncThroughStructAndUnion(t *testing.T) {
	rec := layout.NewStruct(layout.I64, boxI64)
	opt := layout.Union{Payloads: []layout.Layout{layout.NewStruct(), boxI64}}
	g := compile(t, func(s *Session) {
		f := s.NewFunc("inc_rec", Signature{Params: []layout.Layout{layout.I64, boxI64}})
		s.rc.Inc(f, f.BuildStruct(rec, f.Param(0), f.Param(1)), f.Usize(2))
		f.Finish()
		export(s, "inc_rec", f)

		u := s.NewFunc("inc_some", Signature{Params: []layout.Layout{opt}})
		s.rc.Inc(u, u.Param(0), u.Usize(1))
		u.Finish()
		export(s, "inc_some", u)
	})

	b := g.box(7)
	g.call("inc_rec", 1, uint64(b))
	if g.refcount(b) != 3 {
		t.Errorf("refcount = %d, want 3", g.refcount(b))
	}

	some := g.rt.NewBox(g.mod, 4, append(u32Bytes(b), 0, 0, 0, 1))
	none := g.rt.NewBox(g.mod, 4, append(u32Bytes(b), 0, 0, 0, 0))
	g.call("inc_some", uint64(none))
	if g.refcount(b) != 3 {
		t.Errorf("empty payload incremented: refcount = %d", g.refcount(b))
	}
	g.call("inc_some", uint64(some))
	if g.refcount(b) != 4 {
		t.Errorf("refcount = %d, want 4", g.refcount(b))
	}
}

func TestWrapperMemoization(t *testing.T) {
	s := newSession(t)
	err := s.Lower(func() {
		a := s.Wrapper(rtabi.CallbackDec, i64List)
		b := s.Wrapper(rtabi.CallbackDec, layout.NewList(layout.I64))
		if a != b {
			t.Error("equal layouts produced distinct wrappers")
		}
		if c := s.Wrapper(rtabi.CallbackInc, i64List); c == a {
			t.Error("different kinds share a wrapper")
		}
		if d := s.Wrapper(rtabi.CallbackDec, layout.NewUniqueList(layout.I64)); d == a {
			t.Error("unique and refcounted lists share a wrapper")
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	ws := s.Wrappers()
	if len(ws) != 3 {
		t.Fatalf("got %d wrappers, want 3", len(ws))
	}
	for i, w := range ws {
		if w.Slot != uint32(i+1) {
			t.Errorf("wrapper %s in slot %d, want %d", w.Name, w.Slot, i+1)
		}
	}
}

func TestRecursiveWrappers(t *testing.T) {
	nested := layout.NewList(layout.NewList(boxI64))
	g := compile(t, func(s *Session) {
		release(s, "release", nested)
	})
	b := g.box(1)
	inner := g.rt.NewList(g.mod, 4, 4, u32Bytes(b))
	outer := g.rt.NewList(g.mod, 4, 8, hostrt.Elem(inner))
	g.call("release", outer)
	if g.rt.Live() != 0 {
		t.Errorf("%d allocations still live", g.rt.Live())
	}
}

func TestEqualityWrappers(t *testing.T) {
	wide := layout.I128
	g := compile(t, func(s *Session) {
		f := s.NewFunc("eq128", Signature{Params: []layout.Layout{wide, wide}, Result: layout.Bool})
		w := s.Wrapper(rtabi.CallbackEq, wide)
		a, b := f.Param(0), f.Param(1)
		r := f.Const(0, layout.Bool)
		f.Emitter().LocalGet(a.Local).LocalGet(b.Local).Call(w.Index).LocalSet(r.Local)
		f.FinishValue(r)
		export(s, "eq128", f)
	})
	mk := func(lo, hi uint64) uint32 {
		return g.rt.NewBox(g.mod, 16, append(hostrt.Elem(lo), hostrt.Elem(hi)...))
	}
	if g.call("eq128", uint64(mk(1, 2)), uint64(mk(1, 2))) != 1 {
		t.Error("equal 128-bit values compare unequal")
	}
	if g.call("eq128", uint64(mk(1, 2)), uint64(mk(1, 3))) != 0 {
		t.Error("high halves ignored")
	}
}

func TestWrapperKindsFromLambdas(t *testing.T) {
	e := lowerError(t, func(s *Session) {
		s.Wrapper(rtabi.CallbackCaller, layout.I64)
	})
	if e.Kind != errors.KindInvariant {
		t.Errorf("kind = %s", e.Kind)
	}

	e = lowerError(t, func(s *Session) {
		s.CompareWrapper(addLambda(s, "add2", 2))
	})
	if e.Kind != errors.KindInvariant || e.Op != "compare_wrapper" {
		t.Errorf("error = %v", e)
	}
}

func TestPointerEquality(t *testing.T) {
	g := compile(t, func(s *Session) {
		s.Wrapper(rtabi.CallbackEq, layout.Pointer{})
	})
	if g.mod.ExportedFunction(rtabi.FuncPointerName(1)) == nil {
		t.Error("pointer equality wrapper missing")
	}
}
