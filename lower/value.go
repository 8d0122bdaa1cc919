package lower

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/listgen/layout"
)

// List is a list value held in code as two i32 locals.
type List struct {
	Ptr uint32
	Len uint32
}

const (
	listWidth     = 2 * layout.PointerSize
	boundaryWidth = 8
)

// A list crosses call boundaries reinterpreted as one i64. Both
// declarations fail to compile unless the widths are equal.
var (
	_ [listWidth - boundaryWidth]struct{}
	_ [boundaryWidth - listWidth]struct{}
)

// Value is a local holding a value of some layout. Scalars up to 8 bytes,
// pointers and boxes are held directly. Everything else is held
// indirectly: the local is the i32 address of the value's bytes.
type Value struct {
	Local  uint32
	Layout layout.Layout
}

// Indirect reports whether the local holds an address.
func (v Value) Indirect() bool {
	return isIndirect(v.Layout)
}

// Layouts of internal values.
var (
	usize    layout.Layout = layout.Usize
	boolean  layout.Layout = layout.Bool
	opaque   layout.Layout = layout.Pointer{}
	boundary layout.Layout = layout.U64
)

func isIndirect(l layout.Layout) bool {
	switch t := l.(type) {
	case layout.Scalar:
		return t.Width > 8
	case layout.Pointer, layout.Boxed:
		return false
	}
	return true
}

// valueType returns the wasm type of a local holding a value of l.
func valueType(l layout.Layout) api.ValueType {
	if s, ok := l.(layout.Scalar); ok && s.Width <= 8 {
		switch {
		case s.Float && s.Width == 4:
			return api.ValueTypeF32
		case s.Float:
			return api.ValueTypeF64
		case s.Width == 8:
			return api.ValueTypeI64
		}
	}
	return api.ValueTypeI32
}
