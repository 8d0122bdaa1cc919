// Package wasm is a minimal WebAssembly core module model and binary
// encoder.
//
// It covers exactly what generated list code needs: function types,
// function/global imports, defined functions, one funcref table filled by
// an active element segment, one memory, mutable globals and exports.
// Value types are wazero's api.ValueType, whose byte values are the
// binary encodings.
package wasm
