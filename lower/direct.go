package lower

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/listgen/errors"
	"github.com/wippyai/listgen/internal/wasm"
	"github.com/wippyai/listgen/layout"
	"github.com/wippyai/listgen/rtabi"
)

// AllocMode selects how AllocateList treats the refcount header.
type AllocMode uint8

const (
	// InPlace is for uniquely owned lists. The header holds the element
	// count and is never read as a reference count, since a unique buffer
	// is freed on its first decrement.
	InPlace AllocMode = iota
	// Clone sets the header to a count of one.
	Clone
)

// headerExtra is the number of bytes reserved in front of list data. It
// holds the refcount word and keeps the data aligned for elem.
func headerExtra(elem layout.Layout) uint32 {
	return max(rtabi.HeaderSize, elem.Align())
}

// AllocateList allocates a buffer for count elements of elem.
func (f *Func) AllocateList(mode AllocMode, elem layout.Layout, count Value) List {
	f.checkIndex("allocate_list", count)
	extra := headerExtra(elem)
	stride := layout.Stride(elem)

	raw := f.local(opaque)
	f.e.LocalGet(count.Local)
	if stride != 1 {
		f.e.I32Const(int32(stride)).I32Mul()
	}
	f.e.I32Const(int32(extra)).I32Add().
		I32Const(int32(extra)).
		Call(f.s.alloc).
		LocalSet(raw)

	l := List{Ptr: f.local(opaque), Len: f.local(usize)}
	f.e.LocalGet(raw).I32Const(int32(extra)).I32Add().LocalSet(l.Ptr)
	f.e.LocalGet(count.Local).LocalSet(l.Len)
	f.e.LocalGet(raw)
	if mode == Clone {
		f.e.I32Const(rtabi.RefcountOne)
	} else {
		f.e.LocalGet(count.Local)
	}
	f.e.I32Store(2, extra-rtabi.HeaderSize)
	return l
}

// ListGetUnsafe reads element index of l without a bounds check. The
// caller receives its own reference: refcounted elements are incremented.
func (f *Func) ListGetUnsafe(listLayout layout.Layout, l List, index Value) Value {
	elem, ok := layout.ElemOf(listLayout)
	if !ok {
		errors.Fatal(errors.Invariant("list_get_unsafe", listLayout, "not a list layout"))
	}
	f.checkIndex("list_get_unsafe", index)
	addr := f.elemAddr(l.Ptr, index.Local, layout.Stride(elem))
	v := f.loadCopy(addr, 0, elem)
	if layout.IsRefcounted(elem) {
		f.s.rc.Inc(f, v, f.Usize(1))
	}
	return v
}

// BoundsCheck returns index < len(l).
func (f *Func) BoundsCheck(index Value, l List) Value {
	f.checkIndex("bounds_check", index)
	r := f.local(boolean)
	f.e.LocalGet(index.Local).LocalGet(l.Len).I32LtU().LocalSet(r)
	return Value{Local: r, Layout: boolean}
}

// ListLen returns the length of l.
func (f *Func) ListLen(l List) Value {
	return Value{Local: l.Len, Layout: usize}
}

// LoadListPtr returns the data pointer of l.
func (f *Func) LoadListPtr(l List) Value {
	return Value{Local: l.Ptr, Layout: opaque}
}

// LoadList reads a list stored in memory.
func (f *Func) LoadList(v Value) List {
	if !layout.IsListLike(v.Layout) {
		errors.Fatal(errors.Invariant("load_list", v.Layout, "not a list layout"))
	}
	return List{
		Ptr: f.loadView(v.Local, 0, opaque).Local,
		Len: f.loadView(v.Local, layout.PointerSize, usize).Local,
	}
}

// WriteList stores l at addr.
func (f *Func) WriteList(addr Value, l List) {
	f.store(addr.Local, 0, Value{Local: l.Ptr, Layout: opaque})
	f.store(addr.Local, layout.PointerSize, Value{Local: l.Len, Layout: usize})
}

// StoreList builds a list from a data pointer and a length.
func (f *Func) StoreList(ptr, length Value) List {
	f.checkIndex("store_list", ptr)
	f.checkIndex("store_list", length)
	l := List{Ptr: f.local(opaque), Len: f.local(usize)}
	f.e.LocalGet(ptr.Local).LocalSet(l.Ptr)
	f.e.LocalGet(length.Local).LocalSet(l.Len)
	return l
}

// EmptyList returns a list with a null pointer and zero length.
func (f *Func) EmptyList() List {
	l := List{Ptr: f.local(opaque), Len: f.local(usize)}
	f.e.I32Const(0).LocalSet(l.Ptr)
	f.e.I32Const(0).LocalSet(l.Len)
	return l
}

// EmptyPolymorphicList returns the empty list of a statically empty list
// layout. Its representation equals EmptyList.
func (f *Func) EmptyPolymorphicList() List {
	return f.EmptyList()
}

// ListPrepend returns a new list holding elem followed by the elements of
// l. The elements of l are copied bytewise, so elem must be safe to copy.
// l itself is left alive.
func (f *Func) ListPrepend(mode AllocMode, l List, elem Value) List {
	if !layout.SafeToMemcpy(elem.Layout) {
		errors.Fatal(errors.Unimplemented("list_prepend", elem.Layout,
			"prepending elements that own heap memory"))
	}
	stride := layout.Stride(elem.Layout)

	n := f.local(usize)
	f.e.LocalGet(l.Len).I32Const(1).I32Add().LocalSet(n)
	out := f.AllocateList(mode, elem.Layout, Value{Local: n, Layout: usize})
	f.store(out.Ptr, 0, elem)

	if stride > 0 {
		f.e.LocalGet(out.Ptr).I32Const(int32(stride)).I32Add().
			LocalGet(l.Ptr).
			LocalGet(l.Len).I32Const(int32(stride)).I32Mul().
			MemoryCopy()
	}
	return out
}

// StructField returns field i of a struct value. The field is a view of
// the struct's memory.
func (f *Func) StructField(v Value, i int) Value {
	st, ok := v.Layout.(layout.Struct)
	if !ok {
		errors.Fatal(errors.Invariant("struct_field", v.Layout, "not a struct layout"))
	}
	if i < 0 || i >= len(st.Fields) {
		errors.Fatal(errors.Invariant("struct_field", v.Layout, "no field %d", i))
	}
	return f.loadView(v.Local, st.Offsets()[i], st.Fields[i])
}

// BuildStruct allocates a struct on the stack and stores fields into it.
func (f *Func) BuildStruct(st layout.Struct, fields ...Value) Value {
	if len(fields) != len(st.Fields) {
		errors.Fatal(errors.Invariant("build_struct", st, "got %d fields", len(fields)))
	}
	slot := f.Alloca(st.Size(), st.Align())
	for i, off := range st.Offsets() {
		if !layout.Equal(fields[i].Layout, st.Fields[i]) {
			errors.Fatal(errors.Invariant("build_struct", fields[i].Layout, "field %d must be %s", i, st.Fields[i]))
		}
		f.store(slot.Local, off, fields[i])
	}
	return Value{Local: slot.Local, Layout: st}
}

// unionTag reads the tag byte of a union value.
func (f *Func) unionTag(v Value) uint32 {
	u := v.Layout.(layout.Union)
	r := f.NewLocal(api.ValueTypeI32)
	f.e.LocalGet(v.Local).MemOp(wasm.OpI32Load8U, 0, u.TagOffset()).LocalSet(r)
	return r
}

// ifTag emits body guarded by tag == value.
func (f *Func) ifTag(tag uint32, value int, body func()) {
	f.e.LocalGet(tag).I32Const(int32(value)).I32Eq().If(wasm.BlockVoid)
	body()
	f.e.End()
}
