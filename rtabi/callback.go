package rtabi

import "github.com/tetratelabs/wazero/api"

// CallbackKind is the shape of a function pointer handed to the runtime.
type CallbackKind uint8

const (
	// CallbackInc increments the value at a pointer: (ptr).
	CallbackInc CallbackKind = iota
	// CallbackIncN increments the value at a pointer n times: (ptr, n).
	CallbackIncN
	// CallbackDec decrements the value at a pointer: (ptr).
	CallbackDec
	// CallbackEq compares the values at two pointers: (a, b) -> bool.
	CallbackEq
	// CallbackCaller applies a closure: (data, arg_1..arg_n, out).
	CallbackCaller
	// CallbackCompare orders two values: (data, a, b) -> Ordering.
	CallbackCompare
)

var callbackKindNames = [...]string{
	CallbackInc:     "inc",
	CallbackIncN:    "inc_n",
	CallbackDec:     "dec",
	CallbackEq:      "eq",
	CallbackCaller:  "caller",
	CallbackCompare: "compare",
}

func (k CallbackKind) String() string {
	if int(k) < len(callbackKindNames) {
		return callbackKindNames[k]
	}
	return "unknown"
}

// Signature returns the wasm params and results of a callback. arity is
// the number of element arguments and only matters for CallbackCaller.
func (k CallbackKind) Signature(arity int) (params, results []api.ValueType) {
	i32 := api.ValueTypeI32
	switch k {
	case CallbackInc, CallbackDec:
		return []api.ValueType{i32}, nil
	case CallbackIncN:
		return []api.ValueType{i32, i32}, nil
	case CallbackEq:
		return []api.ValueType{i32, i32}, []api.ValueType{i32}
	case CallbackCaller:
		params = make([]api.ValueType, arity+2)
		for i := range params {
			params[i] = i32
		}
		return params, nil
	case CallbackCompare:
		return []api.ValueType{i32, i32, i32}, []api.ValueType{i32}
	}
	return nil, nil
}
