package codegen

import (
	"encoding/binary"
	"math"

	"github.com/wippyai/listgen/internal/wasm"
)

// Emitter accumulates WebAssembly bytecode.
type Emitter struct {
	buf []byte
}

// NewEmitter returns an empty emitter.
func NewEmitter() *Emitter {
	return &Emitter{buf: make([]byte, 0, 256)}
}

// Len returns the number of bytes emitted.
func (e *Emitter) Len() int { return len(e.buf) }

// Bytes returns the emitted bytes. The slice aliases the emitter buffer.
func (e *Emitter) Bytes() []byte { return e.buf }

// Copy returns an independent copy of the emitted bytes.
func (e *Emitter) Copy() []byte {
	out := make([]byte, len(e.buf))
	copy(out, e.buf)
	return out
}

// Reset discards everything emitted so far.
func (e *Emitter) Reset() { e.buf = e.buf[:0] }

// Raw appends bytes verbatim.
func (e *Emitter) Raw(b ...byte) *Emitter {
	e.buf = append(e.buf, b...)
	return e
}

// Op appends a single opcode with no immediates.
func (e *Emitter) Op(op byte) *Emitter {
	e.buf = append(e.buf, op)
	return e
}

func (e *Emitter) opU32(op byte, v uint32) *Emitter {
	e.buf = append(e.buf, op)
	e.buf = wasm.AppendULEB128(e.buf, v)
	return e
}

// Constants

func (e *Emitter) I32Const(v int32) *Emitter {
	e.buf = append(e.buf, wasm.OpI32Const)
	e.buf = wasm.AppendSLEB128(e.buf, v)
	return e
}

func (e *Emitter) I64Const(v int64) *Emitter {
	e.buf = append(e.buf, wasm.OpI64Const)
	e.buf = wasm.AppendSLEB128(e.buf, v)
	return e
}

func (e *Emitter) F32Const(v float32) *Emitter {
	e.buf = append(e.buf, wasm.OpF32Const)
	e.buf = binary.LittleEndian.AppendUint32(e.buf, math.Float32bits(v))
	return e
}

func (e *Emitter) F64Const(v float64) *Emitter {
	e.buf = append(e.buf, wasm.OpF64Const)
	e.buf = binary.LittleEndian.AppendUint64(e.buf, math.Float64bits(v))
	return e
}

// Control flow

func (e *Emitter) Block(bt byte) *Emitter { return e.Raw(wasm.OpBlock, bt) }
func (e *Emitter) Loop(bt byte) *Emitter  { return e.Raw(wasm.OpLoop, bt) }
func (e *Emitter) If(bt byte) *Emitter    { return e.Raw(wasm.OpIf, bt) }
func (e *Emitter) Else() *Emitter         { return e.Op(wasm.OpElse) }
func (e *Emitter) End() *Emitter          { return e.Op(wasm.OpEnd) }
func (e *Emitter) Br(depth uint32) *Emitter {
	return e.opU32(wasm.OpBr, depth)
}
func (e *Emitter) BrIf(depth uint32) *Emitter {
	return e.opU32(wasm.OpBrIf, depth)
}
func (e *Emitter) Return() *Emitter      { return e.Op(wasm.OpReturn) }
func (e *Emitter) Unreachable() *Emitter { return e.Op(wasm.OpUnreachable) }
func (e *Emitter) Nop() *Emitter         { return e.Op(wasm.OpNop) }
func (e *Emitter) Drop() *Emitter        { return e.Op(wasm.OpDrop) }
func (e *Emitter) Select() *Emitter      { return e.Op(wasm.OpSelect) }

func (e *Emitter) Call(funcIdx uint32) *Emitter {
	return e.opU32(wasm.OpCall, funcIdx)
}

func (e *Emitter) CallIndirect(typeIdx, tableIdx uint32) *Emitter {
	e.opU32(wasm.OpCallIndirect, typeIdx)
	e.buf = wasm.AppendULEB128(e.buf, tableIdx)
	return e
}

// Variables

func (e *Emitter) LocalGet(idx uint32) *Emitter  { return e.opU32(wasm.OpLocalGet, idx) }
func (e *Emitter) LocalSet(idx uint32) *Emitter  { return e.opU32(wasm.OpLocalSet, idx) }
func (e *Emitter) LocalTee(idx uint32) *Emitter  { return e.opU32(wasm.OpLocalTee, idx) }
func (e *Emitter) GlobalGet(idx uint32) *Emitter { return e.opU32(wasm.OpGlobalGet, idx) }
func (e *Emitter) GlobalSet(idx uint32) *Emitter { return e.opU32(wasm.OpGlobalSet, idx) }

// Memory

// MemOp appends a load or store with its memarg. align is log2 of the
// alignment in bytes.
func (e *Emitter) MemOp(op byte, align, offset uint32) *Emitter {
	e.opU32(op, align)
	e.buf = wasm.AppendULEB128(e.buf, offset)
	return e
}

func (e *Emitter) I32Load(align, offset uint32) *Emitter {
	return e.MemOp(wasm.OpI32Load, align, offset)
}

func (e *Emitter) I64Load(align, offset uint32) *Emitter {
	return e.MemOp(wasm.OpI64Load, align, offset)
}

func (e *Emitter) I32Load8U(offset uint32) *Emitter {
	return e.MemOp(wasm.OpI32Load8U, 0, offset)
}

func (e *Emitter) I32Store(align, offset uint32) *Emitter {
	return e.MemOp(wasm.OpI32Store, align, offset)
}

func (e *Emitter) I64Store(align, offset uint32) *Emitter {
	return e.MemOp(wasm.OpI64Store, align, offset)
}

func (e *Emitter) I32Store8(offset uint32) *Emitter {
	return e.MemOp(wasm.OpI32Store8, 0, offset)
}

func (e *Emitter) MemorySize() *Emitter { return e.Raw(wasm.OpMemorySize, 0x00) }

// MemoryCopy copies [src, src+n) to dst; operands are dst, src, n.
func (e *Emitter) MemoryCopy() *Emitter {
	e.buf = append(e.buf, wasm.OpPrefixMisc)
	e.buf = wasm.AppendULEB128(e.buf, wasm.MiscMemCopy)
	e.buf = append(e.buf, 0x00, 0x00)
	return e
}

// MemoryFill sets n bytes at dst to a value; operands are dst, value, n.
func (e *Emitter) MemoryFill() *Emitter {
	e.buf = append(e.buf, wasm.OpPrefixMisc)
	e.buf = wasm.AppendULEB128(e.buf, wasm.MiscMemFill)
	e.buf = append(e.buf, 0x00)
	return e
}

// Numeric

func (e *Emitter) I32Eqz() *Emitter  { return e.Op(wasm.OpI32Eqz) }
func (e *Emitter) I32Eq() *Emitter   { return e.Op(wasm.OpI32Eq) }
func (e *Emitter) I32Ne() *Emitter   { return e.Op(wasm.OpI32Ne) }
func (e *Emitter) I32LtU() *Emitter  { return e.Op(wasm.OpI32LtU) }
func (e *Emitter) I32GeU() *Emitter  { return e.Op(wasm.OpI32GeU) }
func (e *Emitter) I32Add() *Emitter  { return e.Op(wasm.OpI32Add) }
func (e *Emitter) I32Sub() *Emitter  { return e.Op(wasm.OpI32Sub) }
func (e *Emitter) I32Mul() *Emitter  { return e.Op(wasm.OpI32Mul) }
func (e *Emitter) I32And() *Emitter  { return e.Op(wasm.OpI32And) }
func (e *Emitter) I32Or() *Emitter   { return e.Op(wasm.OpI32Or) }
func (e *Emitter) I32Shl() *Emitter  { return e.Op(wasm.OpI32Shl) }
func (e *Emitter) I32ShrU() *Emitter { return e.Op(wasm.OpI32ShrU) }

func (e *Emitter) I64Eqz() *Emitter  { return e.Op(wasm.OpI64Eqz) }
func (e *Emitter) I64Eq() *Emitter   { return e.Op(wasm.OpI64Eq) }
func (e *Emitter) I64And() *Emitter  { return e.Op(wasm.OpI64And) }
func (e *Emitter) I64Or() *Emitter   { return e.Op(wasm.OpI64Or) }
func (e *Emitter) I64Shl() *Emitter  { return e.Op(wasm.OpI64Shl) }
func (e *Emitter) I64ShrU() *Emitter { return e.Op(wasm.OpI64ShrU) }

func (e *Emitter) F32Eq() *Emitter { return e.Op(wasm.OpF32Eq) }
func (e *Emitter) F64Eq() *Emitter { return e.Op(wasm.OpF64Eq) }

func (e *Emitter) I32WrapI64() *Emitter    { return e.Op(wasm.OpI32WrapI64) }
func (e *Emitter) I64ExtendI32U() *Emitter { return e.Op(wasm.OpI64ExtendI32U) }
