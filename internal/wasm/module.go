package wasm

import (
	"strings"

	"github.com/tetratelabs/wazero/api"
)

// FuncType is a function signature.
type FuncType struct {
	Params  []api.ValueType
	Results []api.ValueType
}

func (t FuncType) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range t.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(api.ValueTypeName(p))
	}
	b.WriteString(") -> (")
	for i, r := range t.Results {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(api.ValueTypeName(r))
	}
	b.WriteByte(')')
	return b.String()
}

func (t FuncType) equal(o FuncType) bool {
	if len(t.Params) != len(o.Params) || len(t.Results) != len(o.Results) {
		return false
	}
	for i := range t.Params {
		if t.Params[i] != o.Params[i] {
			return false
		}
	}
	for i := range t.Results {
		if t.Results[i] != o.Results[i] {
			return false
		}
	}
	return true
}

// Import is an imported function.
type Import struct {
	Module  string
	Name    string
	TypeIdx uint32
}

// Func is a defined function. Code holds the complete body expression
// including the final end opcode.
type Func struct {
	Name    string
	TypeIdx uint32
	Locals  []api.ValueType
	Code    []byte
	done    bool
}

// Global is a module-defined global with a constant initializer.
type Global struct {
	Type    api.ValueType
	Mutable bool
	Init    int64
}

// Export describes an exported item.
type Export struct {
	Name string
	Kind byte
	Idx  uint32
}

// Module is a WebAssembly core module under construction. Function
// indices are assigned imports first, so every import must be added
// before the first defined function.
type Module struct {
	Types   []FuncType
	Imports []Import
	Funcs   []*Func
	Globals []Global
	Exports []Export

	// Table holds function indices by slot. Slot 0 is the null pointer
	// and is never filled.
	Table []uint32

	MemoryPages uint32
}

// NewModule returns an empty module with the given minimum memory size.
func NewModule(memoryPages uint32) *Module {
	return &Module{MemoryPages: memoryPages}
}

// TypeIndex returns the index of t, adding it if needed.
func (m *Module) TypeIndex(t FuncType) uint32 {
	for i, existing := range m.Types {
		if existing.equal(t) {
			return uint32(i)
		}
	}
	m.Types = append(m.Types, t)
	return uint32(len(m.Types) - 1)
}

// ImportFunc adds a function import and returns its function index.
func (m *Module) ImportFunc(module, name string, t FuncType) (uint32, bool) {
	if len(m.Funcs) > 0 {
		return 0, false
	}
	m.Imports = append(m.Imports, Import{Module: module, Name: name, TypeIdx: m.TypeIndex(t)})
	return uint32(len(m.Imports) - 1), true
}

// AddFunc declares a function and returns its index. The body is
// provided later with SetBody.
func (m *Module) AddFunc(name string, t FuncType) uint32 {
	m.Funcs = append(m.Funcs, &Func{Name: name, TypeIdx: m.TypeIndex(t)})
	return uint32(len(m.Imports) + len(m.Funcs) - 1)
}

// Func returns the defined function with index idx, or nil for imports
// and unknown indices.
func (m *Module) Func(idx uint32) *Func {
	i := int(idx) - len(m.Imports)
	if i < 0 || i >= len(m.Funcs) {
		return nil
	}
	return m.Funcs[i]
}

// FuncType returns the signature of the function with index idx.
func (m *Module) FuncType(idx uint32) (FuncType, bool) {
	if int(idx) < len(m.Imports) {
		return m.Types[m.Imports[idx].TypeIdx], true
	}
	if f := m.Func(idx); f != nil {
		return m.Types[f.TypeIdx], true
	}
	return FuncType{}, false
}

// SetBody completes the function with index idx.
func (m *Module) SetBody(idx uint32, locals []api.ValueType, code []byte) bool {
	f := m.Func(idx)
	if f == nil {
		return false
	}
	f.Locals = locals
	f.Code = code
	f.done = true
	return true
}

// AddGlobal adds a global and returns its index.
func (m *Module) AddGlobal(g Global) uint32 {
	m.Globals = append(m.Globals, g)
	return uint32(len(m.Globals) - 1)
}

// AddTableEntry places a function in the next free table slot.
func (m *Module) AddTableEntry(funcIdx uint32) uint32 {
	m.Table = append(m.Table, funcIdx)
	return uint32(len(m.Table))
}

// Export adds an export.
func (m *Module) Export(name string, kind byte, idx uint32) {
	m.Exports = append(m.Exports, Export{Name: name, Kind: kind, Idx: idx})
}

// HasExport reports whether name is already exported.
func (m *Module) HasExport(name string) bool {
	for _, e := range m.Exports {
		if e.Name == name {
			return true
		}
	}
	return false
}
