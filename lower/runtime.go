package lower

import (
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/listgen/errors"
	"github.com/wippyai/listgen/rtabi"
)

// callRuntime emits a call to a runtime entry. Arguments are checked
// against the entry's wasm signature.
func (f *Func) callRuntime(op string, e rtabi.Entry, args ...Value) Value {
	idx, ok := f.s.runtime[e]
	if !ok {
		errors.Fatal(errors.Unimplemented(op, nil, "runtime entry %s is not available", e))
	}
	sig := e.Signature()
	if len(args) != len(sig.Params) {
		errors.Fatal(errors.Invariant(op, nil, "%s takes %d arguments, got %d", e, len(sig.Params), len(args)))
	}
	for i, a := range args {
		if want := sig.Params[i].Kind.ValueType(); valueType(a.Layout) != want {
			errors.Fatal(errors.Invariant(op, a.Layout, "argument %s of %s must be %s",
				sig.Params[i].Name, e, api.ValueTypeName(want)))
		}
		f.e.LocalGet(a.Local)
	}
	f.e.Call(idx)
	f.s.log.Debug("runtime call",
		zap.String("op", op),
		zap.String("entry", e.Name()),
		zap.String("func", f.name))

	var r Value
	switch sig.Result {
	case rtabi.None:
		return Value{}
	case rtabi.List:
		r = Value{Local: f.NewLocal(api.ValueTypeI64), Layout: boundary}
	case rtabi.Bool:
		r = Value{Local: f.local(boolean), Layout: boolean}
	default:
		r = Value{Local: f.local(opaque), Layout: opaque}
	}
	f.e.LocalSet(r.Local)
	return r
}

func (f *Func) callRuntimeList(op string, e rtabi.Entry, args ...Value) List {
	return f.BoundaryToList(f.callRuntime(op, e, args...))
}
