package lower

import (
	"github.com/wippyai/listgen/internal/wasm"
	"github.com/wippyai/listgen/layout"
	"github.com/wippyai/listgen/rtabi"
)

// Refcounter emits code that adjusts reference counts.
type Refcounter interface {
	// Inc adds n references to v. n is a pointer-sized value.
	Inc(f *Func, v Value, n Value)
	// Dec drops one reference to v and frees it when it was the last.
	Dec(f *Func, v Value)
}

// HeaderRefcounter keeps the count in the word in front of the data of
// every heap buffer. Unique buffers carry no count and are freed on
// their first decrement.
type HeaderRefcounter struct{}

func (h HeaderRefcounter) Inc(f *Func, v Value, n Value) {
	switch l := v.Layout.(type) {
	case layout.List:
		if l.Mode == layout.Refcounted {
			h.incHeader(f, f.LoadList(v).Ptr, n)
		}
	case layout.Boxed:
		if l.Mode == layout.Refcounted {
			h.incHeader(f, v.Local, n)
		}
	case layout.Struct:
		for i, field := range l.Fields {
			if layout.IsRefcounted(field) {
				h.Inc(f, f.StructField(v, i), n)
			}
		}
	case layout.Union:
		f.forPayloads(v, l, layout.IsRefcounted, func(p Value) { h.Inc(f, p, n) })
	}
}

func (h HeaderRefcounter) Dec(f *Func, v Value) {
	switch l := v.Layout.(type) {
	case layout.List:
		list := f.LoadList(v)
		h.release(f, list.Ptr, l.Mode, l.Elem, func() {
			if !layout.OwnsHeap(l.Elem) {
				return
			}
			dec := f.s.Wrapper(rtabi.CallbackDec, l.Elem)
			stride := layout.Stride(l.Elem)
			f.DecrementingIndexLoop(f.ListLen(list), func(i Value) {
				f.e.LocalGet(f.elemAddr(list.Ptr, i.Local, stride)).Call(dec.Index)
			})
		})
	case layout.Boxed:
		h.release(f, v.Local, l.Mode, l.Inner, func() {
			if layout.OwnsHeap(l.Inner) {
				dec := f.s.Wrapper(rtabi.CallbackDec, l.Inner)
				f.e.LocalGet(v.Local).Call(dec.Index)
			}
		})
	case layout.Struct:
		for i, field := range l.Fields {
			if layout.OwnsHeap(field) {
				h.Dec(f, f.StructField(v, i))
			}
		}
	case layout.Union:
		f.forPayloads(v, l, layout.OwnsHeap, func(p Value) { h.Dec(f, p) })
	}
}

func (HeaderRefcounter) incHeader(f *Func, ptr uint32, n Value) {
	hdr := f.local(opaque)
	f.e.LocalGet(ptr).If(wasm.BlockVoid)
	f.e.LocalGet(ptr).I32Const(rtabi.HeaderSize).I32Sub().LocalTee(hdr).
		LocalGet(hdr).I32Load(2, 0).
		LocalGet(n.Local).I32Add().
		I32Store(2, 0)
	f.e.End()
}

// release drops one reference to the buffer whose data starts at ptr.
// drop runs before the buffer is returned to the allocator.
func (HeaderRefcounter) release(f *Func, ptr uint32, mode layout.Mode, elem layout.Layout, drop func()) {
	extra := headerExtra(elem)
	free := func() {
		drop()
		f.e.LocalGet(ptr).I32Const(int32(extra)).I32Sub().
			I32Const(int32(extra)).
			Call(f.s.dealloc)
	}

	f.e.LocalGet(ptr).If(wasm.BlockVoid)
	if mode == layout.Unique {
		free()
		f.e.End()
		return
	}
	hdr, count := f.local(opaque), f.local(usize)
	f.e.LocalGet(ptr).I32Const(rtabi.HeaderSize).I32Sub().LocalTee(hdr).
		I32Load(2, 0).LocalTee(count).
		I32Const(rtabi.RefcountOne).I32Eq().
		If(wasm.BlockVoid)
	free()
	f.e.Else()
	f.e.LocalGet(hdr).LocalGet(count).I32Const(1).I32Sub().I32Store(2, 0)
	f.e.End()
	f.e.End()
}

// forPayloads runs fn on the active payload of a union, for payloads
// matching pred.
func (f *Func) forPayloads(v Value, u layout.Union, pred func(layout.Layout) bool, fn func(p Value)) {
	tag := f.unionTag(v)
	for i, p := range u.Payloads {
		if !pred(p) {
			continue
		}
		f.ifTag(tag, i, func() { fn(f.loadView(v.Local, 0, p)) })
	}
}
