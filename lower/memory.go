package lower

import (
	"github.com/wippyai/listgen/internal/wasm"
	"github.com/wippyai/listgen/layout"
)

func log2(n uint32) uint32 {
	r := uint32(0)
	for n > 1 {
		n >>= 1
		r++
	}
	return r
}

func loadOp(l layout.Layout) (byte, uint32) {
	s, ok := l.(layout.Scalar)
	if !ok {
		return wasm.OpI32Load, 2
	}
	switch s.Width {
	case 1:
		if s.Signed {
			return wasm.OpI32Load8S, 0
		}
		return wasm.OpI32Load8U, 0
	case 2:
		if s.Signed {
			return wasm.OpI32Load16S, 1
		}
		return wasm.OpI32Load16U, 1
	case 4:
		if s.Float {
			return wasm.OpF32Load, 2
		}
		return wasm.OpI32Load, 2
	}
	if s.Float {
		return wasm.OpF64Load, 3
	}
	return wasm.OpI64Load, 3
}

func storeOp(l layout.Layout) (byte, uint32) {
	s, ok := l.(layout.Scalar)
	if !ok {
		return wasm.OpI32Store, 2
	}
	switch s.Width {
	case 1:
		return wasm.OpI32Store8, 0
	case 2:
		return wasm.OpI32Store16, 1
	case 4:
		if s.Float {
			return wasm.OpF32Store, 2
		}
		return wasm.OpI32Store, 2
	}
	if s.Float {
		return wasm.OpF64Store, 3
	}
	return wasm.OpI64Store, 3
}

// loadView reads a value of l at addr+offset. Indirect values are views
// of the memory they live in.
func (f *Func) loadView(addr, offset uint32, l layout.Layout) Value {
	if isIndirect(l) {
		if offset == 0 {
			return Value{Local: addr, Layout: l}
		}
		r := f.local(opaque)
		f.pushAddr(addr, offset)
		f.e.LocalSet(r)
		return Value{Local: r, Layout: l}
	}
	op, align := loadOp(l)
	r := f.local(l)
	f.e.LocalGet(addr).MemOp(op, align, offset).LocalSet(r)
	return Value{Local: r, Layout: l}
}

// loadCopy is like loadView but copies indirect values into a fresh
// stack slot.
func (f *Func) loadCopy(addr, offset uint32, l layout.Layout) Value {
	if !isIndirect(l) {
		return f.loadView(addr, offset, l)
	}
	slot := f.Alloca(l.Size(), l.Align())
	f.copyBytes(slot.Local, 0, addr, offset, l.Size())
	return Value{Local: slot.Local, Layout: l}
}

func (f *Func) store(addr, offset uint32, v Value) {
	if v.Indirect() {
		f.copyBytes(addr, offset, v.Local, 0, v.Layout.Size())
		return
	}
	op, align := storeOp(v.Layout)
	f.e.LocalGet(addr).LocalGet(v.Local).MemOp(op, align, offset)
}

func (f *Func) copyBytes(dst, dstOff, src, srcOff, size uint32) {
	if size == 0 {
		return
	}
	f.pushAddr(dst, dstOff)
	f.pushAddr(src, srcOff)
	f.e.I32Const(int32(size)).MemoryCopy()
}

func (f *Func) pushAddr(base, offset uint32) {
	f.e.LocalGet(base)
	if offset != 0 {
		f.e.I32Const(int32(offset)).I32Add()
	}
}

// elemAddr computes base + index*stride into a new local.
func (f *Func) elemAddr(base, index, stride uint32) uint32 {
	r := f.local(opaque)
	f.e.LocalGet(base).LocalGet(index)
	if stride != 1 {
		f.e.I32Const(int32(stride)).I32Mul()
	}
	f.e.I32Add().LocalSet(r)
	return r
}
