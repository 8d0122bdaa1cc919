package lower

import (
	"slices"
	"testing"

	"github.com/wippyai/listgen/errors"
	"github.com/wippyai/listgen/layout"
	"github.com/wippyai/listgen/rtabi"
)

func TestNewSessionStackTop(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"defaults", Options{}, false},
		{"inside reserved area", Options{StackTop: ReservedBytes}, true},
		{"beyond memory", Options{MemoryPages: 1, StackTop: 2 * pageSize}, true},
		{"end of first page", Options{MemoryPages: 1, StackTop: pageSize}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSession(tc.opts)
			if (err != nil) != tc.wantErr {
				t.Errorf("NewSession() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestSessionImportsEveryEntry(t *testing.T) {
	s := newSession(t)
	for _, e := range rtabi.Entries() {
		if _, ok := s.RuntimeImport(e); !ok {
			t.Errorf("entry %s not imported", e)
		}
	}
	if _, ok := s.RuntimeImport(rtabi.ListWalkBackwardsUntil); ok {
		t.Error("unavailable entry imported")
	}
}

func TestEncodeRejectsUnfinished(t *testing.T) {
	s := newSession(t)
	s.NewFunc("open", Signature{})
	_, err := s.Encode()
	e, ok := err.(*errors.Error)
	if !ok || e.Kind != errors.KindNotFinished {
		t.Fatalf("Encode() error = %v, want not finished", err)
	}
}

func TestExportDuplicate(t *testing.T) {
	s := newSession(t)
	f := s.NewFunc("f", Signature{})
	f.Finish()
	if err := s.Export("f", f); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if err := s.Export("f", f); err == nil {
		t.Error("duplicate export accepted")
	}
}

func TestFinishTwiceIsFatal(t *testing.T) {
	e := lowerError(t, func(s *Session) {
		f := s.NewFunc("f", Signature{})
		f.Finish()
		f.Finish()
	})
	if e.Kind != errors.KindInvariant {
		t.Errorf("kind = %s, want invariant", e.Kind)
	}
}

func TestFinishResultMismatch(t *testing.T) {
	e := lowerError(t, func(s *Session) {
		f := s.NewFunc("f", Signature{Result: layout.I64})
		f.FinishValue(f.Const(1, layout.U8))
	})
	if e.Kind != errors.KindInvariant || e.Op != "finish" {
		t.Errorf("error = %v", e)
	}
}

func TestBoundaryRoundTrip(t *testing.T) {
	g := compile(t, func(s *Session) {
		id := s.NewFunc("id", Signature{Params: []layout.Layout{i64List}, Result: i64List})
		l := id.ParamList(0)
		id.FinishList(id.BoundaryToList(id.ListToBoundary(l)))
		export(s, "id", id)

		n := s.NewFunc("len", Signature{Params: []layout.Layout{i64List}, Result: layout.Usize})
		n.FinishValue(n.ListLen(n.ParamList(0)))
		export(s, "len", n)
	})

	v := g.list(4, 5, 6)
	if got := g.call("id", v); got != v {
		t.Errorf("id = %#x, want %#x", got, v)
	}
	if got := g.call("len", v); got != 3 {
		t.Errorf("len = %d, want 3", got)
	}
	if got := g.call("len", 0); got != 0 {
		t.Errorf("len(empty) = %d", got)
	}
}

func TestEmptyListIsCanonical(t *testing.T) {
	g := compile(t, func(s *Session) {
		f := s.NewFunc("empty", Signature{Result: i64List})
		f.FinishList(f.EmptyList())
		export(s, "empty", f)

		p := s.NewFunc("poly", Signature{Result: layout.EmptyList{}})
		p.FinishList(p.EmptyPolymorphicList())
		export(s, "poly", p)
	})
	if got := g.call("empty"); got != 0 {
		t.Errorf("empty = %#x, want 0", got)
	}
	if got := g.call("poly"); got != 0 {
		t.Errorf("poly = %#x, want 0", got)
	}
	if g.rt.Stats().Allocs != 0 {
		t.Errorf("empty lists allocated %d buffers", g.rt.Stats().Allocs)
	}
}

func TestWrappersExportFunctionPointers(t *testing.T) {
	g := compile(t, func(s *Session) {
		w := s.Wrapper(rtabi.CallbackDec, i64List)
		if w.Slot == 0 {
			errors.Fatal(errors.Invariant("test", nil, "wrapper in null slot"))
		}
	})
	if g.mod.ExportedFunction(rtabi.FuncPointerName(1)) == nil {
		t.Error("slot 1 not exported")
	}
}

func TestWrapperSignatures(t *testing.T) {
	type built struct {
		w     *Wrapper
		arity int
	}
	var ws []built
	g := compile(t, func(s *Session) {
		ws = []built{
			{s.Wrapper(rtabi.CallbackInc, boxI64), 0},
			{s.Wrapper(rtabi.CallbackIncN, boxI64), 0},
			{s.Wrapper(rtabi.CallbackDec, i64List), 0},
			{s.Wrapper(rtabi.CallbackEq, layout.I64), 0},
			{s.CallerWrapper(addLambda(s, "add2", 2)), 2},
			{s.CompareWrapper(compareLambda(s)), 0},
		}
	})
	for _, b := range ws {
		t.Run(b.w.Kind.String(), func(t *testing.T) {
			fn := g.mod.ExportedFunction(rtabi.FuncPointerName(b.w.Slot))
			if fn == nil {
				t.Fatalf("slot %d not exported", b.w.Slot)
			}
			params, results := b.w.Kind.Signature(b.arity)
			def := fn.Definition()
			if !slices.Equal(def.ParamTypes(), params) || !slices.Equal(def.ResultTypes(), results) {
				t.Errorf("%s = %v -> %v, want %v -> %v", b.w.Name, def.ParamTypes(), def.ResultTypes(), params, results)
			}
		})
	}
}

func TestWithoutFunctionPointerExports(t *testing.T) {
	opts := DefaultOptions()
	opts.ExportFunctionPointers = false
	s, err := NewSession(opts)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Lower(func() { s.Wrapper(rtabi.CallbackInc, boxI64) }); err != nil {
		t.Fatal(err)
	}
	g := instantiate(t, s)
	if g.mod.ExportedFunction(rtabi.FuncPointerName(1)) != nil {
		t.Error("slot exported")
	}
}
