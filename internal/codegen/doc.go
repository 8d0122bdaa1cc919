// Package codegen provides a fluent emitter for WebAssembly bytecode.
//
// Each method appends one instruction with its immediates and returns the
// emitter, so straight-line sequences read top to bottom:
//
//	e := codegen.NewEmitter()
//	e.LocalGet(0).I32Const(1).I32Add().LocalSet(0)
//
// The emitter does not validate stack effects; callers keep track of what
// they push.
package codegen
