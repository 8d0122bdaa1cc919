package lower

import (
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/listgen/errors"
	"github.com/wippyai/listgen/internal/codegen"
	"github.com/wippyai/listgen/internal/wasm"
	"github.com/wippyai/listgen/layout"
)

type paramForm uint8

const (
	formValue paramForm = iota
	formBoundary
	formCaptures
	formOut
)

type funcParam struct {
	layout layout.Layout
	form   paramForm
}

// Lambda describes a function that can be turned into a callback.
type Lambda struct {
	Index    uint32
	Name     string
	Args     []layout.Layout
	Ret      layout.Layout
	Captures layout.Layout
}

// Func is a function under construction. Code is appended to its emitter
// in order; the stack pointer prologue and epilogue are added by Finish
// when the body allocated stack memory.
type Func struct {
	s     *Session
	name  string
	index uint32

	params         []funcParam
	lists          map[int]List
	result         layout.Layout
	out            int
	boundaryResult bool
	lambda         *Lambda

	locals   []api.ValueType
	e        *codegen.Emitter
	allocas  int
	spSave   uint32
	hasSave  bool
	finished bool
}

func (s *Session) newFunc(name string, args []layout.Layout, captures, ret layout.Layout, top bool) *Func {
	f := &Func{
		s:      s,
		name:   name,
		result: ret,
		out:    -1,
		lists:  make(map[int]List),
		e:      codegen.NewEmitter(),
	}

	var params, results []api.ValueType
	for _, l := range args {
		form, vt := formValue, valueType(l)
		if top && layout.IsListLike(l) {
			form, vt = formBoundary, api.ValueTypeI64
		}
		f.params = append(f.params, funcParam{layout: l, form: form})
		params = append(params, vt)
	}
	if captures != nil {
		f.params = append(f.params, funcParam{layout: captures, form: formCaptures})
		params = append(params, valueType(captures))
	}
	if ret != nil {
		switch {
		case top && layout.IsListLike(ret):
			f.boundaryResult = true
			results = []api.ValueType{api.ValueTypeI64}
		case isIndirect(ret):
			f.out = len(f.params)
			f.params = append(f.params, funcParam{layout: opaque, form: formOut})
			params = append(params, api.ValueTypeI32)
		default:
			results = []api.ValueType{valueType(ret)}
		}
	}

	f.index = s.mod.AddFunc(name, wasm.FuncType{Params: params, Results: results})
	s.funcs = append(s.funcs, f)

	for i, p := range f.params {
		if p.form == formBoundary {
			f.lists[i] = f.BoundaryToList(Value{Local: uint32(i), Layout: boundary})
		}
	}
	return f
}

func (f *Func) Name() string              { return f.name }
func (f *Func) Index() uint32             { return f.index }
func (f *Func) Session() *Session         { return f.s }
func (f *Func) Emitter() *codegen.Emitter { return f.e }

func (f *Func) param(i int, op string) funcParam {
	if i < 0 || i >= len(f.params) {
		errors.Fatal(errors.Invariant(op, nil, "%s has no parameter %d", f.name, i))
	}
	return f.params[i]
}

// Param returns argument i.
func (f *Func) Param(i int) Value {
	p := f.param(i, "param")
	if p.form != formValue {
		errors.Fatal(errors.Invariant("param", p.layout, "parameter %d of %s is not a plain value", i, f.name))
	}
	return Value{Local: uint32(i), Layout: p.layout}
}

// ParamList returns a top-level list argument, already unpacked from
// its boundary form.
func (f *Func) ParamList(i int) List {
	p := f.param(i, "param_list")
	if p.form != formBoundary {
		errors.Fatal(errors.Invariant("param_list", p.layout, "parameter %d of %s is not a list", i, f.name))
	}
	return f.lists[i]
}

// Captures returns the captured environment of a lambda.
func (f *Func) Captures() Value {
	for i, p := range f.params {
		if p.form == formCaptures {
			return Value{Local: uint32(i), Layout: p.layout}
		}
	}
	errors.Fatal(errors.Invariant("captures", nil, "%s has no captures", f.name))
	return Value{}
}

// Lambda returns the callback description of a function created with
// NewLambda.
func (f *Func) Lambda() Lambda {
	if f.lambda == nil {
		errors.Fatal(errors.Invariant("lambda", nil, "%s is not a lambda", f.name))
	}
	return *f.lambda
}

// NewLocal declares a local of type t.
func (f *Func) NewLocal(t api.ValueType) uint32 {
	idx := uint32(len(f.params) + len(f.locals))
	f.locals = append(f.locals, t)
	return idx
}

func (f *Func) local(l layout.Layout) uint32 {
	return f.NewLocal(valueType(l))
}

// Const materializes a direct scalar constant.
func (f *Func) Const(v int64, l layout.Layout) Value {
	if isIndirect(l) {
		errors.Fatal(errors.Invariant("const", l, "constants must be direct values"))
	}
	r := f.local(l)
	switch valueType(l) {
	case api.ValueTypeI64:
		f.e.I64Const(v)
	case api.ValueTypeF32:
		f.e.F32Const(float32(v))
	case api.ValueTypeF64:
		f.e.F64Const(float64(v))
	default:
		f.e.I32Const(int32(v))
	}
	f.e.LocalSet(r)
	return Value{Local: r, Layout: l}
}

// Usize materializes a pointer-sized integer constant.
func (f *Func) Usize(v uint32) Value {
	return f.Const(int64(int32(v)), usize)
}

// Alloca reserves size bytes on the shadow stack. The memory is released
// when the function returns, or at the end of the loop iteration that
// reserved it.
func (f *Func) Alloca(size, align uint32) Value {
	if align == 0 {
		align = 1
	}
	if !f.hasSave {
		f.spSave = f.NewLocal(api.ValueTypeI32)
		f.hasSave = true
	}
	f.allocas++
	r := f.NewLocal(api.ValueTypeI32)
	f.e.GlobalGet(f.s.sp).
		I32Const(int32(size)).I32Sub().
		I32Const(-int32(align)).I32And().
		LocalTee(r).
		GlobalSet(f.s.sp)
	return Value{Local: r, Layout: opaque}
}

// Finish completes a function without a result.
func (f *Func) Finish() {
	if f.result != nil {
		errors.Fatal(errors.Invariant("finish", f.result, "%s must return a value", f.name))
	}
	f.finish(nil)
}

// FinishValue completes a function returning v.
func (f *Func) FinishValue(v Value) {
	switch {
	case f.result == nil:
		errors.Fatal(errors.Invariant("finish", v.Layout, "%s returns nothing", f.name))
	case f.boundaryResult:
		errors.Fatal(errors.Invariant("finish", v.Layout, "%s returns a list; use FinishList", f.name))
	case !layout.Equal(v.Layout, f.result):
		errors.Fatal(errors.Invariant("finish", v.Layout, "%s returns %s", f.name, f.result))
	}
	if f.out >= 0 {
		f.store(uint32(f.out), 0, v)
		f.finish(nil)
		return
	}
	f.finish(&v)
}

// FinishList completes a function returning a list.
func (f *Func) FinishList(l List) {
	if !f.boundaryResult {
		if f.result != nil && layout.IsListLike(f.result) {
			f.FinishValue(f.ListValue(f.result, l))
			return
		}
		errors.Fatal(errors.Invariant("finish", f.result, "%s does not return a list", f.name))
	}
	b := f.ListToBoundary(l)
	f.finish(&b)
}

func (f *Func) finish(result *Value) {
	if f.finished {
		errors.Fatal(errors.Invariant("finish", nil, "%s finished twice", f.name))
	}
	body := codegen.NewEmitter()
	if f.hasSave {
		body.GlobalGet(f.s.sp).LocalSet(f.spSave)
	}
	body.Raw(f.e.Bytes()...)
	if f.hasSave {
		body.LocalGet(f.spSave).GlobalSet(f.s.sp)
	}
	if result != nil {
		body.LocalGet(result.Local)
	}
	body.End()
	f.s.mod.SetBody(f.index, f.locals, body.Bytes())
	f.finished = true
	f.s.log.Debug("function finished",
		zap.String("name", f.name),
		zap.Uint32("index", f.index),
		zap.Int("locals", len(f.locals)),
		zap.Int("size", body.Len()))
}
