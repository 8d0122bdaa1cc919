package lower

import (
	"context"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/listgen/errors"
	"github.com/wippyai/listgen/internal/hostrt"
	"github.com/wippyai/listgen/internal/wasm"
	"github.com/wippyai/listgen/layout"
)

// guest is an instantiated module produced by a session.
type guest struct {
	t   *testing.T
	ctx context.Context
	rt  *hostrt.Runtime
	mod api.Module
}

func newSession(t *testing.T) *Session {
	t.Helper()
	s, err := NewSession(DefaultOptions())
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	return s
}

// compile lowers build into a fresh session and instantiates the result
// against the host runtime.
func compile(t *testing.T, build func(s *Session)) *guest {
	t.Helper()
	s := newSession(t)
	if err := s.Lower(func() { build(s) }); err != nil {
		t.Fatalf("Lower() error = %v", err)
	}
	return instantiate(t, s)
}

func instantiate(t *testing.T, s *Session) *guest {
	t.Helper()
	bin, err := s.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	t.Cleanup(func() { rt.Close(ctx) })
	host := hostrt.New(nil)
	if err := host.Register(ctx, rt); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	mod, err := rt.Instantiate(ctx, bin)
	if err != nil {
		t.Fatalf("Instantiate() error = %v", err)
	}
	return &guest{t: t, ctx: ctx, rt: host, mod: mod}
}

// lowerError lowers build and returns the fatal error it raised.
func lowerError(t *testing.T, build func(s *Session)) *errors.Error {
	t.Helper()
	s := newSession(t)
	err := s.Lower(func() { build(s) })
	if err == nil {
		t.Fatal("Lower() succeeded, want a fatal error")
	}
	e, ok := err.(*errors.Error)
	if !ok {
		t.Fatalf("Lower() error type %T, want *errors.Error", err)
	}
	return e
}

func export(s *Session, name string, f *Func) {
	if err := s.Export(name, f); err != nil {
		errors.Fatal(errors.Wrap(errors.PhaseLower, errors.KindInvalidInput, err, "export "+name))
	}
}

func (g *guest) call(name string, args ...uint64) uint64 {
	g.t.Helper()
	fn := g.mod.ExportedFunction(name)
	if fn == nil {
		g.t.Fatalf("export %s not found", name)
	}
	res, err := fn.Call(g.ctx, args...)
	if err != nil {
		g.t.Fatalf("%s() error = %v", name, err)
	}
	if len(res) == 0 {
		return 0
	}
	// upper bits of an i32 result are undefined
	if fn.Definition().ResultTypes()[0] == api.ValueTypeI32 {
		return uint64(api.DecodeU32(res[0]))
	}
	return res[0]
}

func (g *guest) list(vs ...int64) uint64 {
	return g.rt.I64List(g.mod, vs...)
}

func (g *guest) ints(v uint64) []int64 {
	return hostrt.ReadI64s(g.mod, v)
}

func (g *guest) box(v int64) uint32 {
	return g.rt.NewBox(g.mod, 8, hostrt.I64(v)[0])
}

func (g *guest) refcount(ptr uint32) int32 {
	return hostrt.Refcount(g.mod, ptr)
}

func equalInts(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var (
	i64List = layout.NewList(layout.I64)
	boxI64  = layout.NewBox(layout.I64)
)

// Lambdas used as callbacks. Each emits its body directly.

func addLambda(s *Session, name string, n int) Lambda {
	args := make([]layout.Layout, n)
	for i := range args {
		args[i] = layout.I64
	}
	f := s.NewLambda(name, args, layout.I64, nil)
	r := f.Const(0, layout.I64)
	for i := range n {
		f.Emitter().LocalGet(r.Local).LocalGet(f.Param(i).Local).Op(wasm.OpI64Add).LocalSet(r.Local)
	}
	f.FinishValue(r)
	return f.Lambda()
}

// compareLambda orders i64 values ascending.
func compareLambda(s *Session) Lambda {
	f := s.NewLambda("compare", []layout.Layout{layout.I64, layout.I64}, layout.U8, nil)
	a, b := f.Param(0), f.Param(1)
	r := f.Const(0, layout.U8)
	e := f.Emitter()
	e.LocalGet(a.Local).LocalGet(b.Local).Op(wasm.OpI64LtS).If(wasm.BlockVoid)
	e.I32Const(2).LocalSet(r.Local)
	e.End()
	e.LocalGet(a.Local).LocalGet(b.Local).Op(wasm.OpI64GtS).If(wasm.BlockVoid)
	e.I32Const(1).LocalSet(r.Local)
	e.End()
	f.FinishValue(r)
	return f.Lambda()
}

// greaterLambda returns x > n.
func greaterLambda(s *Session, n int64) Lambda {
	f := s.NewLambda("greater", []layout.Layout{layout.I64}, layout.Bool, nil)
	r := f.Const(0, layout.Bool)
	f.Emitter().LocalGet(f.Param(0).Local).I64Const(n).Op(wasm.OpI64GtS).LocalSet(r.Local)
	f.FinishValue(r)
	return f.Lambda()
}

// parityLambda returns Ok x for even x and Err x for odd x.
func parityLambda(s *Session, result layout.Union) Lambda {
	f := s.NewLambda("parity", []layout.Layout{layout.I64}, result, nil)
	x := f.Param(0)
	slot := f.Alloca(result.Size(), result.Align())
	f.store(slot.Local, 0, x)
	tag := f.Const(0, layout.U8)
	f.Emitter().LocalGet(x.Local).I64Const(1).I64And().I64Eqz().LocalSet(tag.Local)
	f.store(slot.Local, result.TagOffset(), tag)
	f.FinishValue(Value{Local: slot.Local, Layout: result})
	return f.Lambda()
}
