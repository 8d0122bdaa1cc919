// Package hostrt implements the list runtime and the allocator as wazero
// host modules, so modules produced by package lower can be executed
// without a compiled runtime library.
//
// The runtime follows the calling convention of package rtabi. Lists
// handed to it are borrowed: outputs are always fresh buffers with a
// count of one, and inputs are never released. Callbacks are invoked
// through the guest's "__fnptr_<slot>" exports.
package hostrt
