package lower

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/listgen/errors"
	"github.com/wippyai/listgen/layout"
)

// ListToBoundary packs a list into the i64 it crosses calls as: the
// pointer in the low 32 bits and the length in the high 32 bits.
func (f *Func) ListToBoundary(l List) Value {
	r := f.NewLocal(api.ValueTypeI64)
	f.e.LocalGet(l.Ptr).I64ExtendI32U().
		LocalGet(l.Len).I64ExtendI32U().
		I64Const(32).I64Shl().
		I64Or().
		LocalSet(r)
	return Value{Local: r, Layout: boundary}
}

// BoundaryToList unpacks a boundary i64 into a list.
func (f *Func) BoundaryToList(v Value) List {
	if !layout.Equal(v.Layout, boundary) {
		errors.Fatal(errors.Invariant("boundary_to_list", v.Layout, "expected the list boundary type"))
	}
	l := List{Ptr: f.NewLocal(api.ValueTypeI32), Len: f.NewLocal(api.ValueTypeI32)}
	f.e.LocalGet(v.Local).I32WrapI64().LocalSet(l.Ptr)
	f.e.LocalGet(v.Local).I64Const(32).I64ShrU().I32WrapI64().LocalSet(l.Len)
	return l
}

// ElementAsOpaque spills v into a stack slot and returns its address.
func (f *Func) ElementAsOpaque(v Value) Value {
	slot := f.Alloca(v.Layout.Size(), v.Layout.Align())
	f.store(slot.Local, 0, v)
	return slot
}

// AsOpaque reinterprets a pointer-sized value as an opaque pointer.
func (f *Func) AsOpaque(v Value) Value {
	if valueType(v.Layout) != api.ValueTypeI32 {
		errors.Fatal(errors.Invariant("as_opaque", v.Layout, "value is not pointer sized"))
	}
	return Value{Local: v.Local, Layout: opaque}
}

// ListValue spills l into a stack slot holding a value of listLayout.
func (f *Func) ListValue(listLayout layout.Layout, l List) Value {
	if !layout.IsListLike(listLayout) {
		errors.Fatal(errors.Invariant("list_value", listLayout, "not a list layout"))
	}
	slot := f.Alloca(listLayout.Size(), listLayout.Align())
	f.WriteList(slot, l)
	return Value{Local: slot.Local, Layout: listLayout}
}
