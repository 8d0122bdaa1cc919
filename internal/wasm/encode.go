package wasm

import (
	"encoding/binary"

	"github.com/tetratelabs/wazero/api"
	"github.com/wippyai/listgen/errors"
)

// Encode encodes the module to WebAssembly binary format. Every defined
// function must have a body.
func (m *Module) Encode() ([]byte, error) {
	for _, f := range m.Funcs {
		if !f.done {
			return nil, errors.NotFinished(f.Name)
		}
	}

	out := binary.LittleEndian.AppendUint32(nil, Magic)
	out = binary.LittleEndian.AppendUint32(out, Version)

	if len(m.Types) > 0 {
		sec := AppendULEB128(nil, uint32(len(m.Types)))
		for _, t := range m.Types {
			sec = append(sec, FuncTypeByte)
			sec = appendValTypes(sec, t.Params)
			sec = appendValTypes(sec, t.Results)
		}
		out = appendSection(out, SectionType, sec)
	}

	if len(m.Imports) > 0 {
		sec := AppendULEB128(nil, uint32(len(m.Imports)))
		for _, imp := range m.Imports {
			sec = AppendName(sec, imp.Module)
			sec = AppendName(sec, imp.Name)
			sec = append(sec, KindFunc)
			sec = AppendULEB128(sec, imp.TypeIdx)
		}
		out = appendSection(out, SectionImport, sec)
	}

	if len(m.Funcs) > 0 {
		sec := AppendULEB128(nil, uint32(len(m.Funcs)))
		for _, f := range m.Funcs {
			sec = AppendULEB128(sec, f.TypeIdx)
		}
		out = appendSection(out, SectionFunction, sec)
	}

	// The table always exists so call_indirect validates; slot 0 stays null.
	tableSize := uint32(len(m.Table) + 1)
	sec := AppendULEB128(nil, 1)
	sec = append(sec, FuncRef, 0x00)
	sec = AppendULEB128(sec, tableSize)
	out = appendSection(out, SectionTable, sec)

	sec = AppendULEB128(nil, 1)
	sec = append(sec, 0x00)
	sec = AppendULEB128(sec, m.MemoryPages)
	out = appendSection(out, SectionMemory, sec)

	if len(m.Globals) > 0 {
		sec = AppendULEB128(nil, uint32(len(m.Globals)))
		for _, g := range m.Globals {
			sec = append(sec, g.Type)
			if g.Mutable {
				sec = append(sec, 0x01)
			} else {
				sec = append(sec, 0x00)
			}
			sec = appendConstExpr(sec, g.Type, g.Init)
		}
		out = appendSection(out, SectionGlobal, sec)
	}

	if len(m.Exports) > 0 {
		sec = AppendULEB128(nil, uint32(len(m.Exports)))
		for _, e := range m.Exports {
			sec = AppendName(sec, e.Name)
			sec = append(sec, e.Kind)
			sec = AppendULEB128(sec, e.Idx)
		}
		out = appendSection(out, SectionExport, sec)
	}

	if len(m.Table) > 0 {
		sec = AppendULEB128(nil, 1)
		sec = AppendULEB128(sec, 0) // active, table 0
		sec = append(sec, OpI32Const)
		sec = AppendSLEB128(sec, int32(1))
		sec = append(sec, OpEnd)
		sec = AppendULEB128(sec, uint32(len(m.Table)))
		for _, idx := range m.Table {
			sec = AppendULEB128(sec, idx)
		}
		out = appendSection(out, SectionElement, sec)
	}

	if len(m.Funcs) > 0 {
		sec = AppendULEB128(nil, uint32(len(m.Funcs)))
		for _, f := range m.Funcs {
			body := appendLocals(nil, f.Locals)
			body = append(body, f.Code...)
			sec = AppendULEB128(sec, uint32(len(body)))
			sec = append(sec, body...)
		}
		out = appendSection(out, SectionCode, sec)
	}

	return out, nil
}

func appendSection(out []byte, id byte, data []byte) []byte {
	out = append(out, id)
	out = AppendULEB128(out, uint32(len(data)))
	return append(out, data...)
}

func appendValTypes(buf []byte, types []api.ValueType) []byte {
	buf = AppendULEB128(buf, uint32(len(types)))
	return append(buf, types...)
}

// appendLocals writes local declarations as runs of equal types.
func appendLocals(buf []byte, locals []api.ValueType) []byte {
	type run struct {
		count uint32
		typ   api.ValueType
	}
	var runs []run
	for _, l := range locals {
		if n := len(runs); n > 0 && runs[n-1].typ == l {
			runs[n-1].count++
			continue
		}
		runs = append(runs, run{count: 1, typ: l})
	}
	buf = AppendULEB128(buf, uint32(len(runs)))
	for _, r := range runs {
		buf = AppendULEB128(buf, r.count)
		buf = append(buf, r.typ)
	}
	return buf
}

func appendConstExpr(buf []byte, t api.ValueType, v int64) []byte {
	switch t {
	case api.ValueTypeI64:
		buf = append(buf, OpI64Const)
		buf = AppendSLEB128(buf, v)
	case api.ValueTypeF32:
		buf = append(buf, OpF32Const)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(v))
	case api.ValueTypeF64:
		buf = append(buf, OpF64Const)
		buf = binary.LittleEndian.AppendUint64(buf, uint64(v))
	default:
		buf = append(buf, OpI32Const)
		buf = AppendSLEB128(buf, int32(v))
	}
	return append(buf, OpEnd)
}
