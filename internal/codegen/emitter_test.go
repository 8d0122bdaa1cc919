package codegen

import (
	"bytes"
	"testing"

	"github.com/wippyai/listgen/internal/wasm"
)

func TestEmitter_NewAndBytes(t *testing.T) {
	e := NewEmitter()
	if e.Len() != 0 {
		t.Errorf("new emitter should be empty, got len %d", e.Len())
	}

	e.I32Const(42)
	if !bytes.Equal(e.Bytes(), []byte{wasm.OpI32Const, 42}) {
		t.Errorf("got % x", e.Bytes())
	}
}

func TestEmitter_Reset(t *testing.T) {
	e := NewEmitter()
	e.I32Const(42).I32Const(100)
	if e.Len() == 0 {
		t.Fatal("emitter should have content before reset")
	}

	e.Reset()
	if e.Len() != 0 {
		t.Errorf("emitter should be empty after reset, got len %d", e.Len())
	}
}

func TestEmitter_Copy(t *testing.T) {
	e := NewEmitter()
	e.I32Const(42)

	snapshot := e.Copy()
	e.I32Const(100)

	if len(snapshot) == e.Len() {
		t.Error("Copy should be independent of further emitter operations")
	}
}

func TestEmitter_Encodings(t *testing.T) {
	tests := []struct {
		name string
		emit func(e *Emitter)
		want []byte
	}{
		{"i32.const -1", func(e *Emitter) { e.I32Const(-1) }, []byte{0x41, 0x7f}},
		{"i32.const 128", func(e *Emitter) { e.I32Const(128) }, []byte{0x41, 0x80, 0x01}},
		{"i64.const 32", func(e *Emitter) { e.I64Const(32) }, []byte{0x42, 0x20}},
		{"f32.const 1", func(e *Emitter) { e.F32Const(1) }, []byte{0x43, 0x00, 0x00, 0x80, 0x3f}},
		{"block void", func(e *Emitter) { e.Block(wasm.BlockVoid).End() }, []byte{0x02, 0x40, 0x0b}},
		{"loop br_if", func(e *Emitter) { e.Loop(wasm.BlockVoid).BrIf(0).End() }, []byte{0x03, 0x40, 0x0d, 0x00, 0x0b}},
		{"if else", func(e *Emitter) { e.If(wasm.BlockVoid).Else().End() }, []byte{0x04, 0x40, 0x05, 0x0b}},
		{"call", func(e *Emitter) { e.Call(300) }, []byte{0x10, 0xac, 0x02}},
		{"call_indirect", func(e *Emitter) { e.CallIndirect(3, 0) }, []byte{0x11, 0x03, 0x00}},
		{"locals", func(e *Emitter) { e.LocalGet(1).LocalSet(2).LocalTee(3) }, []byte{0x20, 1, 0x21, 2, 0x22, 3}},
		{"globals", func(e *Emitter) { e.GlobalGet(0).GlobalSet(0) }, []byte{0x23, 0, 0x24, 0}},
		{"i32.load", func(e *Emitter) { e.I32Load(2, 4) }, []byte{0x28, 0x02, 0x04}},
		{"i64.store", func(e *Emitter) { e.I64Store(3, 0) }, []byte{0x37, 0x03, 0x00}},
		{"load8_u", func(e *Emitter) { e.I32Load8U(7) }, []byte{0x2d, 0x00, 0x07}},
		{"memory.copy", func(e *Emitter) { e.MemoryCopy() }, []byte{0xfc, 0x0a, 0x00, 0x00}},
		{"memory.fill", func(e *Emitter) { e.MemoryFill() }, []byte{0xfc, 0x0b, 0x00}},
		{"marshal", func(e *Emitter) { e.I64ExtendI32U().I64Const(32).I64Shl().I64Or() }, []byte{0xad, 0x42, 0x20, 0x86, 0x84}},
		{"wrap", func(e *Emitter) { e.I64ShrU().I32WrapI64() }, []byte{0x88, 0xa7}},
		{"compare", func(e *Emitter) { e.I32LtU().I32Eqz().I32Ne() }, []byte{0x49, 0x45, 0x47}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := NewEmitter()
			tc.emit(e)
			if !bytes.Equal(e.Bytes(), tc.want) {
				t.Errorf("got % x, want % x", e.Bytes(), tc.want)
			}
		})
	}
}
