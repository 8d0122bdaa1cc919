// Package lower emits WebAssembly for the list builtins.
//
// A Session owns one module under construction. Functions are built with
// a Func cursor: values live in locals, lists are a pair of i32 locals and
// cross call boundaries packed into one i64. Builtins either lower to a
// call into the list runtime, imported from the "roc_builtins" module, or
// are emitted inline (allocation, element access, prepend).
//
// The runtime receives closures as function pointers into the module's
// table. The session synthesizes these wrappers on demand, one per
// (kind, layout) pair:
//
//	s, _ := lower.NewSession(lower.DefaultOptions())
//	double := s.NewLambda("double", []layout.Layout{layout.I64}, layout.I64, nil)
//	// ... emit the body of double ...
//	f := s.NewFunc("map_double", lower.Signature{
//		Params: []layout.Layout{layout.NewList(layout.I64)},
//		Result: layout.NewList(layout.I64),
//	})
//	cb := f.Callback(double.Lambda(), lower.Value{})
//	f.FinishList(f.ListMap(layout.NewList(layout.I64), f.ParamList(0), cb))
//
// Shapes that earlier compiler phases should have ruled out abort the
// compilation unit with a fatal error; Session.Lower converts it back to an
// error value.
package lower
