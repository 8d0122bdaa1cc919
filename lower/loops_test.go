package lower

import (
	"testing"

	"github.com/wippyai/listgen/errors"
	"github.com/wippyai/listgen/internal/wasm"
	"github.com/wippyai/listgen/layout"
)

// digits records visited indices as decimal digits, so the result shows
// both the visit order and the number of visits.
func digits(s *Session, name string, loop func(f *Func, end Value, body func(i Value))) {
	f := s.NewFunc(name, Signature{Params: []layout.Layout{layout.Usize}, Result: layout.Usize})
	acc := f.Usize(0)
	loop(f, f.Param(0), func(i Value) {
		f.Emitter().LocalGet(acc.Local).I32Const(10).I32Mul().
			LocalGet(i.Local).I32Const(1).I32Add().
			I32Add().LocalSet(acc.Local)
	})
	f.FinishValue(acc)
	export(s, name, f)
}

func TestIndexLoops(t *testing.T) {
	g := compile(t, func(s *Session) {
		digits(s, "up", (*Func).IncrementingIndexLoop)
		digits(s, "down", (*Func).DecrementingIndexLoop)
	})
	tests := []struct {
		fn   string
		n    uint64
		want uint64
	}{
		{"up", 0, 0},
		{"up", 1, 1},
		{"up", 3, 123},
		{"down", 0, 0},
		{"down", 1, 1},
		{"down", 4, 4321},
	}
	for _, tc := range tests {
		if got := g.call(tc.fn, tc.n); got != tc.want {
			t.Errorf("%s(%d) = %d, want %d", tc.fn, tc.n, got, tc.want)
		}
	}
}

func TestElemLoops(t *testing.T) {
	g := compile(t, func(s *Session) {
		for _, dir := range []struct {
			name string
			loop func(f *Func, elem layout.Layout, l List, body func(i, v Value))
		}{
			{"fold_up", (*Func).IncrementingElemLoop},
			{"fold_down", (*Func).DecrementingElemLoop},
		} {
			f := s.NewFunc(dir.name, Signature{Params: []layout.Layout{i64List}, Result: layout.I64})
			acc := f.Const(0, layout.I64)
			dir.loop(f, layout.I64, f.ParamList(0), func(_, v Value) {
				f.Emitter().LocalGet(acc.Local).I64Const(1).I64Shl().
					LocalGet(v.Local).Op(wasm.OpI64Add).LocalSet(acc.Local)
			})
			f.FinishValue(acc)
			export(s, dir.name, f)
		}
	})
	l := g.list(1, 2, 3)
	if got := g.call("fold_up", l); got != 11 {
		t.Errorf("fold_up = %d, want 11", got)
	}
	if got := g.call("fold_down", l); got != 17 {
		t.Errorf("fold_down = %d, want 17", got)
	}
	if got := g.call("fold_up", 0); got != 0 {
		t.Errorf("fold_up(empty) = %d", got)
	}
}

func TestLoopRestoresStackPerIteration(t *testing.T) {
	g := compile(t, func(s *Session) {
		f := s.NewFunc("spill", Signature{Params: []layout.Layout{layout.Usize}, Result: layout.Usize})
		f.IncrementingIndexLoop(f.Param(0), func(Value) {
			slot := f.Alloca(4096, 8)
			f.Emitter().LocalGet(slot.Local).I32Const(7).I32Store(2, 0)
		})
		f.FinishValue(f.Usize(1))
		export(s, "spill", f)
	})
	// 100 iterations of 4 KiB would overrun the 64 KiB stack without
	// the per-iteration restore.
	if got := g.call("spill", 100); got != 1 {
		t.Errorf("spill = %d", got)
	}
	sp := g.mod.ExportedGlobal("__stack_pointer")
	if sp == nil || sp.Get() != uint64(DefaultOptions().StackTop) {
		t.Error("stack pointer not restored on return")
	}
}

func TestLoopBoundMustBePointerSized(t *testing.T) {
	e := lowerError(t, func(s *Session) {
		f := s.NewFunc("bad", Signature{Params: []layout.Layout{layout.I64}})
		f.IncrementingIndexLoop(f.Param(0), func(Value) {})
	})
	if e.Kind != errors.KindInvariant {
		t.Errorf("kind = %s", e.Kind)
	}
}

func TestBuildPhi2(t *testing.T) {
	g := compile(t, func(s *Session) {
		f := s.NewFunc("pick", Signature{Params: []layout.Layout{layout.Bool, layout.I64, layout.I64}, Result: layout.I64})
		v := f.BuildPhi2(f.Param(0),
			func() Value { return f.Param(1) },
			func() Value { return f.Param(2) })
		f.FinishValue(v)
		export(s, "pick", f)

		pair := layout.NewStruct(layout.I64, layout.I64)
		p := s.NewFunc("pick_field", Signature{Params: []layout.Layout{layout.Bool, layout.I64, layout.I64}, Result: layout.I64})
		st := p.BuildStruct(pair, p.Param(1), p.Param(2))
		w := p.BuildPhi2(p.Param(0),
			func() Value { return p.StructField(st, 0) },
			func() Value { return p.StructField(st, 1) })
		p.FinishValue(w)
		export(s, "pick_field", p)
	})
	if got := g.call("pick", 1, 10, 20); got != 10 {
		t.Errorf("pick(true) = %d", got)
	}
	if got := g.call("pick", 0, 10, 20); got != 20 {
		t.Errorf("pick(false) = %d", got)
	}
	if got := g.call("pick_field", 0, 10, 20); got != 20 {
		t.Errorf("pick_field(false) = %d", got)
	}
}

func TestBuildPhi2Mismatch(t *testing.T) {
	e := lowerError(t, func(s *Session) {
		f := s.NewFunc("pick", Signature{Params: []layout.Layout{layout.Bool}, Result: layout.I64})
		f.BuildPhi2(f.Param(0),
			func() Value { return f.Const(1, layout.I64) },
			func() Value { return f.Const(1, layout.U8) })
	})
	if e.Kind != errors.KindInvariant || e.Op != "phi2" {
		t.Errorf("error = %v", e)
	}
}
