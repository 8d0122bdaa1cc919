package lower

import (
	"github.com/wippyai/listgen/errors"
	"github.com/wippyai/listgen/layout"
	"github.com/wippyai/listgen/rtabi"
)

// Callback is the group of runtime arguments that describe a closure:
// the caller function pointer, a pointer to the captured data, the inc_n
// wrapper for the captures and the ownership flag of the data.
type Callback struct {
	Caller      Value
	Data        Value
	IncNData    Value
	DataIsOwned Value

	Lambda Lambda
}

// Callback builds a transform callback for lam. captures is the zero
// Value when lam captures nothing.
func (f *Func) Callback(lam Lambda, captures Value) Callback {
	return f.closure(lam, f.s.CallerWrapper(lam), captures)
}

// Comparator builds a sort callback for lam.
func (f *Func) Comparator(lam Lambda, captures Value) Callback {
	return f.closure(lam, f.s.CompareWrapper(lam), captures)
}

func (f *Func) closure(lam Lambda, w *Wrapper, captures Value) Callback {
	cb := Callback{Lambda: lam, Caller: f.funcPointer(w)}
	switch {
	case lam.Captures == nil && captures.Layout == nil:
		cb.Data = f.nullPointer()
		cb.IncNData = f.nullPointer()
	case lam.Captures == nil || captures.Layout == nil || !layout.Equal(lam.Captures, captures.Layout):
		errors.Fatal(errors.Invariant("callback", captures.Layout,
			"captures of %s do not match %v", lam.Name, lam.Captures))
	default:
		cb.Data = f.ElementAsOpaque(captures)
		cb.IncNData = f.nullPointer()
		if layout.IsRefcounted(lam.Captures) {
			cb.IncNData = f.funcPointer(f.s.Wrapper(rtabi.CallbackIncN, lam.Captures))
		}
	}
	cb.DataIsOwned = f.Const(0, boolean)
	return cb
}

func (cb Callback) args() []Value {
	return []Value{cb.Caller, cb.Data, cb.IncNData, cb.DataIsOwned}
}

// expect checks that the callback takes args and, when ret is not nil,
// returns ret.
func (cb Callback) expect(op string, ret layout.Layout, args ...layout.Layout) {
	lam := cb.Lambda
	ok := len(lam.Args) == len(args)
	for i := 0; ok && i < len(args); i++ {
		ok = layout.Equal(lam.Args[i], args[i])
	}
	if ok && ret != nil {
		ok = layout.Equal(lam.Ret, ret)
	}
	if !ok {
		errors.Fatal(errors.Invariant(op, lam.Ret, "callback %s has the wrong signature", lam.Name))
	}
}

func (f *Func) funcPointer(w *Wrapper) Value {
	return f.AsOpaque(f.Usize(w.Slot))
}

func (f *Func) nullPointer() Value {
	return f.AsOpaque(f.Usize(0))
}
