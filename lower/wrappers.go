package lower

import (
	"slices"
	"strconv"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/listgen/errors"
	"github.com/wippyai/listgen/internal/wasm"
	"github.com/wippyai/listgen/layout"
	"github.com/wippyai/listgen/rtabi"
)

// Wrapper is a synthesized function with a function table slot. The
// runtime receives Slot as the function pointer.
type Wrapper struct {
	Kind   rtabi.CallbackKind
	Layout layout.Layout
	Name   string
	Index  uint32
	Slot   uint32
}

type wrapperKey struct {
	kind  rtabi.CallbackKind
	key   string
	extra string
}

// Wrapper returns the inc, inc_n, dec or eq wrapper for values of l,
// creating it on first use. Every wrapper takes pointers to values.
func (s *Session) Wrapper(kind rtabi.CallbackKind, l layout.Layout) *Wrapper {
	var sig Signature
	switch kind {
	case rtabi.CallbackInc, rtabi.CallbackDec:
		sig.Params = []layout.Layout{opaque}
	case rtabi.CallbackIncN:
		sig.Params = []layout.Layout{opaque, usize}
	case rtabi.CallbackEq:
		sig.Params = []layout.Layout{opaque, opaque}
		sig.Result = boolean
	default:
		errors.Fatal(errors.Invariant("wrapper", l, "%s wrappers are built from lambdas", kind))
	}

	name := kind.String() + "(" + l.Key() + ")"
	return s.synthesize(wrapperKey{kind: kind, key: l.Key()}, kind, l, name, sig, func(f *Func) {
		v := f.loadView(f.Param(0).Local, 0, l)
		switch kind {
		case rtabi.CallbackInc:
			s.rc.Inc(f, v, f.Usize(1))
			f.Finish()
		case rtabi.CallbackIncN:
			s.rc.Inc(f, v, f.Param(1))
			f.Finish()
		case rtabi.CallbackDec:
			s.rc.Dec(f, v)
			f.Finish()
		case rtabi.CallbackEq:
			w := f.loadView(f.Param(1).Local, 0, l)
			f.FinishValue(f.equal(v, w))
		}
	})
}

// CallerWrapper returns the wrapper that applies lam to arguments passed
// by pointer and writes the result through the final pointer.
func (s *Session) CallerWrapper(lam Lambda) *Wrapper {
	params := make([]layout.Layout, len(lam.Args)+2)
	for i := range params {
		params[i] = opaque
	}
	name := "caller(" + lam.Name + ")"
	key := wrapperKey{kind: rtabi.CallbackCaller, key: lam.Ret.Key(), extra: strconv.FormatUint(uint64(lam.Index), 10)}
	return s.synthesize(key, rtabi.CallbackCaller, lam.Ret, name, Signature{Params: params}, func(f *Func) {
		args := make([]Value, 0, len(lam.Args)+1)
		for i, a := range lam.Args {
			args = append(args, f.loadView(f.Param(i+1).Local, 0, a))
		}
		if lam.Captures != nil {
			args = append(args, f.loadView(f.Param(0).Local, 0, lam.Captures))
		}
		out := f.Param(len(lam.Args) + 1)
		f.callLambda(lam, args, &out)
		f.Finish()
	})
}

// CompareWrapper returns the wrapper that orders two values with lam.
func (s *Session) CompareWrapper(lam Lambda) *Wrapper {
	if len(lam.Args) != 2 || !layout.Equal(lam.Args[0], lam.Args[1]) || !layout.Equal(lam.Ret, layout.U8) {
		errors.Fatal(errors.Invariant("compare_wrapper", lam.Ret,
			"%s must take two values of one layout and return an ordering", lam.Name))
	}
	elem := lam.Args[0]
	name := "compare(" + lam.Name + ")"
	key := wrapperKey{kind: rtabi.CallbackCompare, key: elem.Key(), extra: strconv.FormatUint(uint64(lam.Index), 10)}
	sig := Signature{Params: []layout.Layout{opaque, opaque, opaque}, Result: layout.U8}
	return s.synthesize(key, rtabi.CallbackCompare, elem, name, sig, func(f *Func) {
		args := []Value{
			f.loadView(f.Param(1).Local, 0, elem),
			f.loadView(f.Param(2).Local, 0, elem),
		}
		if lam.Captures != nil {
			args = append(args, f.loadView(f.Param(0).Local, 0, lam.Captures))
		}
		f.FinishValue(f.callLambda(lam, args, nil))
	})
}

// synthesize returns the cached wrapper for key or builds it. The cache
// entry is stored before build runs, so a body that needs the wrapper of
// its own layout resolves to the function being built.
func (s *Session) synthesize(key wrapperKey, kind rtabi.CallbackKind, l layout.Layout, name string, sig Signature, build func(f *Func)) *Wrapper {
	if w, ok := s.wrappers[key]; ok {
		return w
	}
	f := s.NewFunc(name, sig)
	params, results := kind.Signature(len(sig.Params) - 2)
	if ft, _ := s.mod.FuncType(f.index); !slices.Equal(ft.Params, params) || !slices.Equal(ft.Results, results) {
		errors.Fatal(errors.Invariant("wrapper", l, "%s does not have the %s callback signature", name, kind))
	}
	w := &Wrapper{Kind: kind, Layout: l, Name: name, Index: f.index}
	w.Slot = s.mod.AddTableEntry(f.index)
	s.wrappers[key] = w
	s.synth = append(s.synth, w)
	if s.opts.ExportFunctionPointers {
		s.mod.Export(rtabi.FuncPointerName(w.Slot), wasm.KindFunc, f.index)
	}
	s.log.Debug("wrapper synthesized",
		zap.String("kind", kind.String()),
		zap.String("layout", l.String()),
		zap.Uint32("index", w.Index),
		zap.Uint32("slot", w.Slot))
	build(f)
	return w
}

// callLambda calls lam with args. A direct result is returned, or stored
// through out when out is not nil. An indirect result is always written
// through out.
func (f *Func) callLambda(lam Lambda, args []Value, out *Value) Value {
	for _, a := range args {
		f.e.LocalGet(a.Local)
	}
	if isIndirect(lam.Ret) {
		if out == nil {
			errors.Fatal(errors.Invariant("call_lambda", lam.Ret, "%s needs an output pointer", lam.Name))
		}
		f.e.LocalGet(out.Local).Call(lam.Index)
		return Value{Local: out.Local, Layout: lam.Ret}
	}
	r := f.local(lam.Ret)
	f.e.Call(lam.Index).LocalSet(r)
	v := Value{Local: r, Layout: lam.Ret}
	if out != nil {
		f.store(out.Local, 0, v)
	}
	return v
}

// equal compares two values of the same layout structurally.
func (f *Func) equal(a, b Value) Value {
	r := f.local(boolean)
	switch l := a.Layout.(type) {
	case layout.Scalar:
		if l.Width > 8 {
			f.e.LocalGet(a.Local).I64Load(3, 0).LocalGet(b.Local).I64Load(3, 0).I64Eq()
			f.e.LocalGet(a.Local).I64Load(3, 8).LocalGet(b.Local).I64Load(3, 8).I64Eq()
			f.e.I32And().LocalSet(r)
			break
		}
		f.e.LocalGet(a.Local).LocalGet(b.Local)
		switch valueType(l) {
		case api.ValueTypeI64:
			f.e.I64Eq()
		case api.ValueTypeF32:
			f.e.F32Eq()
		case api.ValueTypeF64:
			f.e.F64Eq()
		default:
			f.e.I32Eq()
		}
		f.e.LocalSet(r)
	case layout.Pointer:
		f.e.LocalGet(a.Local).LocalGet(b.Local).I32Eq().LocalSet(r)
	case layout.EmptyList:
		f.e.I32Const(1).LocalSet(r)
	case layout.Boxed:
		eq := f.s.Wrapper(rtabi.CallbackEq, l.Inner)
		f.e.LocalGet(a.Local).LocalGet(b.Local).Call(eq.Index).LocalSet(r)
	case layout.List:
		la, lb := f.LoadList(a), f.LoadList(b)
		eq := f.s.Wrapper(rtabi.CallbackEq, l.Elem)
		stride := layout.Stride(l.Elem)
		f.e.LocalGet(la.Len).LocalGet(lb.Len).I32Eq().LocalSet(r)
		f.e.LocalGet(r).If(wasm.BlockVoid)
		f.IncrementingIndexLoop(f.ListLen(la), func(i Value) {
			ea := f.elemAddr(la.Ptr, i.Local, stride)
			eb := f.elemAddr(lb.Ptr, i.Local, stride)
			f.e.LocalGet(r).LocalGet(ea).LocalGet(eb).Call(eq.Index).I32And().LocalSet(r)
		})
		f.e.End()
	case layout.Struct:
		f.e.I32Const(1).LocalSet(r)
		for i := range l.Fields {
			fe := f.equal(f.StructField(a, i), f.StructField(b, i))
			f.e.LocalGet(r).LocalGet(fe.Local).I32And().LocalSet(r)
		}
	case layout.Union:
		ta, tb := f.unionTag(a), f.unionTag(b)
		f.e.LocalGet(ta).LocalGet(tb).I32Eq().LocalSet(r)
		for i, p := range l.Payloads {
			f.e.LocalGet(r).If(wasm.BlockVoid)
			f.ifTag(ta, i, func() {
				pe := f.equal(f.loadView(a.Local, 0, p), f.loadView(b.Local, 0, p))
				f.e.LocalGet(pe.Local).LocalSet(r)
			})
			f.e.End()
		}
	default:
		errors.Fatal(errors.Unimplemented("eq", a.Layout, "no equality for this layout"))
	}
	return Value{Local: r, Layout: boolean}
}
