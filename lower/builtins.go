package lower

import (
	"go.uber.org/zap"

	"github.com/wippyai/listgen/errors"
	"github.com/wippyai/listgen/layout"
	"github.com/wippyai/listgen/rtabi"
)

// listElem returns the element layout of a list layout. The second
// result is false for a statically empty list.
func listElem(op string, l layout.Layout) (layout.Layout, bool) {
	switch t := l.(type) {
	case layout.List:
		return t.Elem, true
	case layout.EmptyList:
		return nil, false
	}
	errors.Fatal(errors.Invariant(op, l, "expected a list layout"))
	return nil, false
}

func (f *Func) staticEmpty(op string) List {
	f.s.log.Debug("static empty short-circuit", zap.String("op", op), zap.String("func", f.name))
	return f.EmptyList()
}

func (f *Func) align(l layout.Layout) Value { return f.Usize(l.Align()) }
func (f *Func) width(l layout.Layout) Value { return f.Usize(layout.Stride(l)) }

func (f *Func) wrapperPointer(kind rtabi.CallbackKind, l layout.Layout) Value {
	return f.funcPointer(f.s.Wrapper(kind, l))
}

// borrow takes a reference on behalf of the runtime, which stores the
// element it is handed.
func (f *Func) borrow(elem Value) {
	if layout.IsRefcounted(elem.Layout) {
		f.s.rc.Inc(f, elem, f.Usize(1))
	}
}

// ListSingle returns [elem].
func (f *Func) ListSingle(elem Value) List {
	f.borrow(elem)
	ptr := f.ElementAsOpaque(elem)
	return f.callRuntimeList("list_single", rtabi.ListSingle,
		f.align(elem.Layout), ptr, f.width(elem.Layout))
}

// ListRepeat returns count copies of elem.
func (f *Func) ListRepeat(count, elem Value) List {
	f.checkIndex("list_repeat", count)
	ptr := f.ElementAsOpaque(elem)
	return f.callRuntimeList("list_repeat", rtabi.ListRepeat,
		count, f.align(elem.Layout), ptr, f.width(elem.Layout),
		f.wrapperPointer(rtabi.CallbackIncN, elem.Layout))
}

// ListJoin concatenates the lists of a list of lists.
func (f *Func) ListJoin(outer layout.Layout, l List) List {
	if _, ok := outer.(layout.EmptyList); ok {
		return f.staticEmpty("list_join")
	}
	if !layout.IsListOfLists(outer) {
		errors.Fatal(errors.Invariant("list_join", outer, "expected a list of lists"))
	}
	inner, ok := layout.ElemOf(outer.(layout.List).Elem)
	if !ok {
		return f.staticEmpty("list_join")
	}
	return f.callRuntimeList("list_join", rtabi.ListJoin,
		f.ListToBoundary(l), f.align(inner), f.width(inner))
}

// ListReverse returns l back to front.
func (f *Func) ListReverse(listLayout layout.Layout, l List) List {
	elem, ok := listElem("list_reverse", listLayout)
	if !ok {
		// never dereferenced
		elem = layout.I64
	}
	return f.callRuntimeList("list_reverse", rtabi.ListReverse,
		f.ListToBoundary(l), f.align(elem), f.width(elem))
}

// ListAppend returns l followed by elem.
func (f *Func) ListAppend(l List, elem Value) List {
	f.borrow(elem)
	ptr := f.ElementAsOpaque(elem)
	return f.callRuntimeList("list_append", rtabi.ListAppend,
		f.ListToBoundary(l), f.align(elem.Layout), ptr, f.width(elem.Layout))
}

// ListDrop returns l without its first count elements.
func (f *Func) ListDrop(listLayout layout.Layout, l List, count Value) List {
	elem, ok := listElem("list_drop", listLayout)
	if !ok {
		errors.Fatal(errors.Invariant("list_drop", listLayout, "drop needs an element layout"))
	}
	f.checkIndex("list_drop", count)
	return f.callRuntimeList("list_drop", rtabi.ListDrop,
		f.ListToBoundary(l), f.align(elem), f.width(elem), count,
		f.wrapperPointer(rtabi.CallbackDec, elem))
}

// ListSet replaces element index of l with elem. The runtime releases the
// replaced element.
func (f *Func) ListSet(listLayout layout.Layout, l List, index, elem Value) List {
	want, ok := listElem("list_set", listLayout)
	if !ok || !layout.Equal(want, elem.Layout) {
		errors.Fatal(errors.Invariant("list_set", listLayout, "cannot store %s", elem.Layout))
	}
	f.checkIndex("list_set", index)
	f.borrow(elem)
	ptr := f.ElementAsOpaque(elem)
	bytes := f.callRuntime("list_set", rtabi.ListSet,
		f.LoadListPtr(l), f.ListLen(l), f.align(elem.Layout), index, ptr, f.width(elem.Layout),
		f.wrapperPointer(rtabi.CallbackDec, elem.Layout))
	return f.StoreList(bytes, f.ListLen(l))
}

// ListContains reports whether l holds an element equal to elem.
func (f *Func) ListContains(listLayout layout.Layout, l List, elem Value) Value {
	if _, ok := listElem("list_contains", listLayout); !ok {
		f.s.log.Debug("static empty short-circuit", zap.String("op", "list_contains"))
		return f.Const(0, boolean)
	}
	ptr := f.ElementAsOpaque(elem)
	return f.callRuntime("list_contains", rtabi.ListContains,
		f.ListToBoundary(l), ptr, f.width(elem.Layout),
		f.wrapperPointer(rtabi.CallbackEq, elem.Layout))
}

// ListKeepIf returns the elements of l for which cb returns true.
func (f *Func) ListKeepIf(listLayout layout.Layout, l List, cb Callback) List {
	elem, ok := listElem("list_keep_if", listLayout)
	if !ok {
		return f.staticEmpty("list_keep_if")
	}
	cb.expect("list_keep_if", boolean, elem)
	args := append([]Value{f.ListToBoundary(l)}, cb.args()...)
	args = append(args, f.align(elem), f.width(elem),
		f.wrapperPointer(rtabi.CallbackInc, elem),
		f.wrapperPointer(rtabi.CallbackDec, elem))
	return f.callRuntimeList("list_keep_if", rtabi.ListKeepIf, args...)
}

// ListKeepOks maps l with cb and keeps the Ok payloads.
func (f *Func) ListKeepOks(listLayout layout.Layout, l List, cb Callback) List {
	return f.keepResult("list_keep_oks", rtabi.ListKeepOks, layout.ResultOk, listLayout, l, cb)
}

// ListKeepErrs maps l with cb and keeps the Err payloads.
func (f *Func) ListKeepErrs(listLayout layout.Layout, l List, cb Callback) List {
	return f.keepResult("list_keep_errs", rtabi.ListKeepErrs, layout.ResultErr, listLayout, l, cb)
}

func (f *Func) keepResult(op string, e rtabi.Entry, keep uint8, listLayout layout.Layout, l List, cb Callback) List {
	before, ok := listElem(op, listLayout)
	if !ok {
		return f.staticEmpty(op)
	}
	result, isUnion := cb.Lambda.Ret.(layout.Union)
	if !isUnion || len(result.Payloads) != 2 {
		errors.Fatal(errors.Invariant(op, cb.Lambda.Ret, "callback must return a result"))
	}
	cb.expect(op, nil, before)
	after := result.Payloads[keep]

	args := append([]Value{f.ListToBoundary(l)}, cb.args()...)
	args = append(args, f.align(after), f.width(before), f.width(result), f.width(after),
		f.wrapperPointer(rtabi.CallbackDec, result))
	return f.callRuntimeList(op, e, args...)
}

// ListSortWith sorts l with the comparator cmp.
func (f *Func) ListSortWith(listLayout layout.Layout, l List, cmp Callback) List {
	elem, ok := listElem("list_sort_with", listLayout)
	if !ok {
		return f.staticEmpty("list_sort_with")
	}
	cmp.expect("list_sort_with", layout.U8, elem, elem)
	return f.callRuntimeList("list_sort_with", rtabi.ListSortWith,
		f.ListToBoundary(l), cmp.Caller, cmp.Data, cmp.IncNData, cmp.DataIsOwned,
		f.align(elem), f.width(elem))
}

// ListMapWithIndex maps l with cb, which receives the index first.
func (f *Func) ListMapWithIndex(listLayout layout.Layout, l List, cb Callback) List {
	elem, ok := listElem("list_map_with_index", listLayout)
	if !ok {
		return f.staticEmpty("list_map_with_index")
	}
	cb.expect("list_map_with_index", nil, usize, elem)
	return f.mapOne("list_map_with_index", rtabi.ListMapWithIndex, elem, l, cb)
}

// ListMap maps l with cb.
func (f *Func) ListMap(listLayout layout.Layout, l List, cb Callback) List {
	elem, ok := listElem("list_map", listLayout)
	if !ok {
		return f.staticEmpty("list_map")
	}
	cb.expect("list_map", nil, elem)
	return f.mapOne("list_map", rtabi.ListMap, elem, l, cb)
}

func (f *Func) mapOne(op string, e rtabi.Entry, elem layout.Layout, l List, cb Callback) List {
	after := cb.Lambda.Ret
	args := append([]Value{f.ListToBoundary(l)}, cb.args()...)
	args = append(args, f.align(after), f.width(elem), f.width(after))
	return f.callRuntimeList(op, e, args...)
}

// ListMap2 maps two lists pairwise. The result is as long as the shorter
// list.
func (f *Func) ListMap2(layout1 layout.Layout, l1 List, layout2 layout.Layout, l2 List, cb Callback) List {
	e1, ok1 := listElem("list_map2", layout1)
	e2, ok2 := listElem("list_map2", layout2)
	if !ok1 || !ok2 {
		return f.staticEmpty("list_map2")
	}
	cb.expect("list_map2", nil, e1, e2)
	ret := cb.Lambda.Ret

	args := []Value{f.ListToBoundary(l1), f.ListToBoundary(l2)}
	args = append(args, cb.args()...)
	args = append(args, f.align(ret), f.width(e1), f.width(e2), f.width(ret),
		f.wrapperPointer(rtabi.CallbackDec, e1),
		f.wrapperPointer(rtabi.CallbackDec, e2))
	return f.callRuntimeList("list_map2", rtabi.ListMap2, args...)
}

// ListMap3 maps three lists element-wise.
func (f *Func) ListMap3(layout1 layout.Layout, l1 List, layout2 layout.Layout, l2 List, layout3 layout.Layout, l3 List, cb Callback) List {
	e1, ok1 := listElem("list_map3", layout1)
	e2, ok2 := listElem("list_map3", layout2)
	e3, ok3 := listElem("list_map3", layout3)
	if !ok1 || !ok2 || !ok3 {
		return f.staticEmpty("list_map3")
	}
	cb.expect("list_map3", nil, e1, e2, e3)
	ret := cb.Lambda.Ret

	args := []Value{f.ListToBoundary(l1), f.ListToBoundary(l2), f.ListToBoundary(l3)}
	args = append(args, cb.args()...)
	args = append(args, f.align(ret), f.width(e1), f.width(e2), f.width(e3), f.width(ret),
		f.wrapperPointer(rtabi.CallbackDec, e1),
		f.wrapperPointer(rtabi.CallbackDec, e2),
		f.wrapperPointer(rtabi.CallbackDec, e3))
	return f.callRuntimeList("list_map3", rtabi.ListMap3, args...)
}

// ListConcat returns l1 followed by l2.
func (f *Func) ListConcat(listLayout layout.Layout, l1, l2 List) List {
	elem, ok := listElem("list_concat", listLayout)
	if !ok {
		return f.staticEmpty("list_concat")
	}
	return f.callRuntimeList("list_concat", rtabi.ListConcat,
		f.ListToBoundary(l1), f.ListToBoundary(l2), f.align(elem), f.width(elem))
}

// ListWalk folds l front to back. cb receives the element and the
// accumulator.
func (f *Func) ListWalk(listLayout layout.Layout, l List, cb Callback, init Value) Value {
	return f.walk("list_walk", rtabi.ListWalk, listLayout, l, cb, init)
}

// ListWalkBackwards folds l back to front.
func (f *Func) ListWalkBackwards(listLayout layout.Layout, l List, cb Callback, init Value) Value {
	return f.walk("list_walk_backwards", rtabi.ListWalkBackwards, listLayout, l, cb, init)
}

// ListWalkUntil folds l front to back until cb returns a Stop step. The
// step is the struct {acc, tag}.
func (f *Func) ListWalkUntil(listLayout layout.Layout, l List, cb Callback, init Value) Value {
	return f.walk("list_walk_until", rtabi.ListWalkUntil, listLayout, l, cb, init)
}

// ListWalkBackwardsUntil has no runtime support.
func (f *Func) ListWalkBackwardsUntil(listLayout layout.Layout, _ List, _ Callback, _ Value) Value {
	errors.Fatal(errors.Unimplemented("list_walk_backwards_until", listLayout,
		"the runtime has no backwards walk-until"))
	return Value{}
}

// WalkStep returns the layout of a walk-until step for accumulator acc.
func WalkStep(acc layout.Layout) layout.Struct {
	return layout.NewStruct(acc, layout.U8)
}

func (f *Func) walk(op string, e rtabi.Entry, listLayout layout.Layout, l List, cb Callback, init Value) Value {
	acc := init.Layout
	elem, ok := listElem(op, listLayout)
	if !ok {
		f.s.log.Debug("static empty short-circuit", zap.String("op", op))
		return init
	}
	until := e == rtabi.ListWalkUntil
	if until {
		cb.expect(op, WalkStep(acc), elem, acc)
	} else {
		cb.expect(op, acc, elem, acc)
	}

	def := f.ElementAsOpaque(init)
	out := f.Alloca(layout.Stride(acc), acc.Align())
	args := append([]Value{f.ListToBoundary(l)}, cb.args()...)
	args = append(args, def, f.align(elem), f.width(elem), f.width(acc))
	if until {
		args = append(args, f.wrapperPointer(rtabi.CallbackDec, elem))
	}
	args = append(args, out)
	f.callRuntime(op, e, args...)
	return f.loadView(out.Local, 0, acc)
}

// ListRange returns the integers from low up to, but excluding, high.
func (f *Func) ListRange(low, high Value) List {
	s, ok := low.Layout.(layout.Scalar)
	if !ok || s.Float || !layout.Equal(low.Layout, high.Layout) {
		errors.Fatal(errors.Invariant("list_range", low.Layout, "range bounds must be integers of one width"))
	}
	w, ok := rtabi.IntWidthFor(s.Width, s.Signed)
	if !ok {
		errors.Fatal(errors.Invariant("list_range", low.Layout, "no integer width code"))
	}
	lo := f.ElementAsOpaque(low)
	hi := f.ElementAsOpaque(high)
	return f.callRuntimeList("list_range", rtabi.ListRange, f.Usize(uint32(w)), lo, hi)
}
