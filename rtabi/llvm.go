package rtabi

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
)

// Declarations returns an LLVM module declaring every runtime entry and
// the allocator with their wasm32 types. Entry symbols are named
// "<module>.<entry>", e.g. "roc_builtins.list.map".
func Declarations() *ir.Module {
	m := ir.NewModule()
	m.TargetTriple = "wasm32-unknown-unknown"

	m.NewFunc(AllocName, types.I32,
		ir.NewParam("size", types.I32),
		ir.NewParam("align", types.I32))
	m.NewFunc(DeallocName, types.Void,
		ir.NewParam("ptr", types.I32),
		ir.NewParam("align", types.I32))

	for _, e := range Entries() {
		sig := e.Signature()
		params := make([]*ir.Param, len(sig.Params))
		for i, p := range sig.Params {
			params[i] = ir.NewParam(p.Name, llvmType(p.Kind))
		}
		m.NewFunc(RuntimeModule+"."+e.Name(), llvmType(sig.Result), params...)
	}
	return m
}

func llvmType(k ParamKind) types.Type {
	switch k {
	case None:
		return types.Void
	case List:
		return types.I64
	}
	return types.I32
}
