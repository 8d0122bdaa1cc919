package lower

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/listgen/errors"
	"github.com/wippyai/listgen/internal/codegen"
	"github.com/wippyai/listgen/internal/wasm"
	"github.com/wippyai/listgen/layout"
)

// scoped emits body. If body reserved stack memory, the stack pointer is
// restored after it, so memory reserved in a loop iteration does not
// accumulate.
func (f *Func) scoped(body func()) {
	outer := f.e
	f.e = codegen.NewEmitter()
	before := f.allocas
	body()
	inner := f.e
	f.e = outer

	if f.allocas == before {
		f.e.Raw(inner.Bytes()...)
		return
	}
	save := f.NewLocal(api.ValueTypeI32)
	f.e.GlobalGet(f.s.sp).LocalSet(save)
	f.e.Raw(inner.Bytes()...)
	f.e.LocalGet(save).GlobalSet(f.s.sp)
}

func (f *Func) checkIndex(op string, v Value) {
	if valueType(v.Layout) != api.ValueTypeI32 || v.Indirect() {
		errors.Fatal(errors.Invariant(op, v.Layout, "loop bound must be pointer sized"))
	}
}

// IncrementingIndexLoop runs body for i = 0 .. end-1. The body is not
// entered when end is zero.
func (f *Func) IncrementingIndexLoop(end Value, body func(i Value)) {
	f.checkIndex("incrementing_index_loop", end)
	i := f.NewLocal(api.ValueTypeI32)
	f.e.I32Const(0).LocalSet(i)
	f.e.Block(wasm.BlockVoid)
	f.e.LocalGet(end.Local).I32Eqz().BrIf(0)
	f.e.Loop(wasm.BlockVoid)
	f.scoped(func() { body(Value{Local: i, Layout: usize}) })
	f.e.LocalGet(i).I32Const(1).I32Add().LocalTee(i).
		LocalGet(end.Local).I32LtU().
		BrIf(0)
	f.e.End()
	f.e.End()
}

// DecrementingIndexLoop runs body for i = end-1 down to 0.
func (f *Func) DecrementingIndexLoop(end Value, body func(i Value)) {
	f.checkIndex("decrementing_index_loop", end)
	i := f.NewLocal(api.ValueTypeI32)
	f.e.LocalGet(end.Local).LocalSet(i)
	f.e.Block(wasm.BlockVoid)
	f.e.LocalGet(i).I32Eqz().BrIf(0)
	f.e.Loop(wasm.BlockVoid)
	f.e.LocalGet(i).I32Const(1).I32Sub().LocalSet(i)
	f.scoped(func() { body(Value{Local: i, Layout: usize}) })
	f.e.LocalGet(i).BrIf(0)
	f.e.End()
	f.e.End()
}

// IncrementingElemLoop runs body over the elements of l front to back.
// Indirect elements are views into the list buffer.
func (f *Func) IncrementingElemLoop(elem layout.Layout, l List, body func(i, v Value)) {
	stride := layout.Stride(elem)
	f.IncrementingIndexLoop(f.ListLen(l), func(i Value) {
		addr := f.elemAddr(l.Ptr, i.Local, stride)
		body(i, f.loadView(addr, 0, elem))
	})
}

// DecrementingElemLoop runs body over the elements of l back to front.
func (f *Func) DecrementingElemLoop(elem layout.Layout, l List, body func(i, v Value)) {
	stride := layout.Stride(elem)
	f.DecrementingIndexLoop(f.ListLen(l), func(i Value) {
		addr := f.elemAddr(l.Ptr, i.Local, stride)
		body(i, f.loadView(addr, 0, elem))
	})
}

// BuildPhi2 selects between the values produced by two branches. Both
// branches must produce the same layout in the same representation.
func (f *Func) BuildPhi2(cond Value, then, els func() Value) Value {
	if valueType(cond.Layout) != api.ValueTypeI32 || cond.Indirect() {
		errors.Fatal(errors.Invariant("phi2", cond.Layout, "condition must be a boolean"))
	}
	f.e.LocalGet(cond.Local).If(wasm.BlockVoid)
	a := then()
	r := f.NewLocal(valueType(a.Layout))
	f.e.LocalGet(a.Local).LocalSet(r)
	f.e.Else()
	b := els()
	if !layout.Equal(a.Layout, b.Layout) || a.Indirect() != b.Indirect() {
		errors.Fatal(errors.Invariant("phi2", b.Layout, "branches disagree: then produced %s", a.Layout))
	}
	f.e.LocalGet(b.Local).LocalSet(r)
	f.e.End()
	return Value{Local: r, Layout: a.Layout}
}
