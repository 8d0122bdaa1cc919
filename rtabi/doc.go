// Package rtabi is the manifest of the precompiled list runtime.
//
// The runtime is a layout-agnostic algorithm library imported from the
// module "roc_builtins". Each Entry names one algorithm and fixes its
// parameter order; lowering code calls entries exactly as listed here and
// hosts implement them against the same table.
//
// Parameters are wasm32 values. A list travels as one i64 whose low 32
// bits are the data pointer and whose high 32 bits are the length. Every
// other parameter is an i32: pointers, sizes, alignments, booleans and
// function pointers (table slots).
//
// Callbacks handed to the runtime follow the signatures of CallbackKind.
// Declarations renders the whole manifest as LLVM IR declarations.
package rtabi
