package main

import (
	"sort"
	"strings"

	"github.com/wippyai/listgen/errors"
	"github.com/wippyai/listgen/internal/wasm"
	"github.com/wippyai/listgen/layout"
	"github.com/wippyai/listgen/lower"
	"github.com/wippyai/listgen/rtabi"
)

// op is a list builtin the generator can emit as a standalone export.
type op struct {
	name   string
	doc    string
	params func(elem layout.Layout) []layout.Layout
	result func(elem layout.Layout) layout.Layout
	build  func(f *lower.Func, elem layout.Layout)
	// integer ops need an integer scalar element.
	integer bool
}

func listOf(elem layout.Layout) layout.Layout { return layout.NewList(elem) }

func sig(params ...func(layout.Layout) layout.Layout) func(layout.Layout) []layout.Layout {
	return func(elem layout.Layout) []layout.Layout {
		out := make([]layout.Layout, len(params))
		for i, p := range params {
			out[i] = p(elem)
		}
		return out
	}
}

func elemOf(elem layout.Layout) layout.Layout   { return elem }
func usizeOf(layout.Layout) layout.Layout       { return layout.Usize }
func boolOf(layout.Layout) layout.Layout        { return layout.Bool }
func nestedOf(elem layout.Layout) layout.Layout { return listOf(listOf(elem)) }

// elemParam returns element argument i. List elements cross the export
// boundary packed like any other top-level list.
func elemParam(f *lower.Func, i int, elem layout.Layout) lower.Value {
	if layout.IsListLike(elem) {
		return f.ListValue(elem, f.ParamList(i))
	}
	return f.Param(i)
}

var ops = map[string]op{
	"single": {
		doc:    "[x]",
		params: sig(elemOf),
		result: listOf,
		build: func(f *lower.Func, elem layout.Layout) {
			f.FinishList(f.ListSingle(elemParam(f, 0, elem)))
		},
	},
	"repeat": {
		doc:    "n copies of x",
		params: sig(usizeOf, elemOf),
		result: listOf,
		build: func(f *lower.Func, elem layout.Layout) {
			f.FinishList(f.ListRepeat(f.Param(0), elemParam(f, 1, elem)))
		},
	},
	"reverse": {
		doc:    "list back to front",
		params: sig(listOf),
		result: listOf,
		build: func(f *lower.Func, elem layout.Layout) {
			f.FinishList(f.ListReverse(listOf(elem), f.ParamList(0)))
		},
	},
	"append": {
		doc:    "list followed by x",
		params: sig(listOf, elemOf),
		result: listOf,
		build: func(f *lower.Func, elem layout.Layout) {
			f.FinishList(f.ListAppend(f.ParamList(0), elemParam(f, 1, elem)))
		},
	},
	"prepend": {
		doc:    "x followed by list",
		params: sig(listOf, elemOf),
		result: listOf,
		build: func(f *lower.Func, elem layout.Layout) {
			f.FinishList(f.ListPrepend(lower.Clone, f.ParamList(0), elemParam(f, 1, elem)))
		},
	},
	"drop": {
		doc:    "list without its first n elements",
		params: sig(listOf, usizeOf),
		result: listOf,
		build: func(f *lower.Func, elem layout.Layout) {
			f.FinishList(f.ListDrop(listOf(elem), f.ParamList(0), f.Param(1)))
		},
	},
	"set": {
		doc:    "list with element i replaced by x",
		params: sig(listOf, usizeOf, elemOf),
		result: listOf,
		build: func(f *lower.Func, elem layout.Layout) {
			l := f.ParamList(0)
			i := f.Param(1)
			// out of range indices leave the list unchanged
			inRange := f.BoundsCheck(i, l)
			out := f.BuildPhi2(inRange,
				func() lower.Value { return f.ListValue(listOf(elem), f.ListSet(listOf(elem), l, i, elemParam(f, 2, elem))) },
				func() lower.Value { return f.ListValue(listOf(elem), l) })
			f.FinishList(f.LoadList(out))
		},
	},
	"contains": {
		doc:    "whether list holds x",
		params: sig(listOf, elemOf),
		result: boolOf,
		build: func(f *lower.Func, elem layout.Layout) {
			f.FinishValue(f.ListContains(listOf(elem), f.ParamList(0), elemParam(f, 1, elem)))
		},
	},
	"concat": {
		doc:    "two lists joined",
		params: sig(listOf, listOf),
		result: listOf,
		build: func(f *lower.Func, elem layout.Layout) {
			f.FinishList(f.ListConcat(listOf(elem), f.ParamList(0), f.ParamList(1)))
		},
	},
	"join": {
		doc:    "a list of lists flattened",
		params: sig(nestedOf),
		result: listOf,
		build: func(f *lower.Func, elem layout.Layout) {
			f.FinishList(f.ListJoin(nestedOf(elem), f.ParamList(0)))
		},
	},
	"len": {
		doc:    "number of elements",
		params: sig(listOf),
		result: usizeOf,
		build: func(f *lower.Func, _ layout.Layout) {
			f.FinishValue(f.ListLen(f.ParamList(0)))
		},
	},
	"sort": {
		doc:     "list in ascending order",
		params:  sig(listOf),
		result:  listOf,
		integer: true,
		build: func(f *lower.Func, elem layout.Layout) {
			cmp := f.Comparator(ascending(f.Session(), elem.(layout.Scalar)), lower.Value{})
			f.FinishList(f.ListSortWith(listOf(elem), f.ParamList(0), cmp))
		},
	},
	"map": {
		doc:    "list mapped through the identity",
		params: sig(listOf),
		result: listOf,
		build: func(f *lower.Func, elem layout.Layout) {
			cb := f.Callback(identity(f.Session(), elem), lower.Value{})
			f.FinishList(f.ListMap(listOf(elem), f.ParamList(0), cb))
		},
	},
	"keep_if": {
		doc:    "list filtered by an always-true predicate",
		params: sig(listOf),
		result: listOf,
		build: func(f *lower.Func, elem layout.Layout) {
			cb := f.Callback(always(f.Session(), elem), lower.Value{})
			f.FinishList(f.ListKeepIf(listOf(elem), f.ParamList(0), cb))
		},
	},
	"walk": {
		doc:    "element count computed by a fold",
		params: sig(listOf),
		result: usizeOf,
		build: func(f *lower.Func, elem layout.Layout) {
			cb := f.Callback(counter(f.Session(), elem), lower.Value{})
			f.FinishValue(f.ListWalk(listOf(elem), f.ParamList(0), cb, f.Usize(0)))
		},
	},
	"range": {
		doc:     "integers from low up to high",
		params:  sig(elemOf, elemOf),
		result:  listOf,
		integer: true,
		build: func(f *lower.Func, _ layout.Layout) {
			f.FinishList(f.ListRange(f.Param(0), f.Param(1)))
		},
	},
}

func opNames() []string {
	names := make([]string, 0, len(ops))
	for name := range ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupOp(name string) (op, error) {
	o, ok := ops[name]
	if !ok {
		return op{}, errors.NotFound(errors.PhaseParse, "op", name)
	}
	o.name = name
	return o, nil
}

// signature renders o for elem, e.g. "append(list(i64), i64) -> list(i64)".
func (o op) signature(elem layout.Layout) string {
	params := o.params(elem)
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.String()
	}
	return o.name + "(" + strings.Join(parts, ", ") + ") -> " + o.result(elem).String()
}

func (o op) check(elem layout.Layout) error {
	if !o.integer {
		return nil
	}
	if s, ok := elem.(layout.Scalar); !ok || s.Float || s.Width > 8 {
		return errors.InvalidInput(errors.PhaseParse, o.name+" needs an integer element of at most 64 bits, got "+elem.String())
	}
	return nil
}

// generate lowers o for elem into a module exporting it under o's name.
func generate(o op, elem layout.Layout, opts lower.Options) ([]byte, error) {
	if err := o.check(elem); err != nil {
		return nil, err
	}
	s, err := lower.NewSession(opts)
	if err != nil {
		return nil, err
	}
	err = s.Lower(func() {
		f := s.NewFunc(o.name, lower.Signature{Params: o.params(elem), Result: o.result(elem)})
		o.build(f, elem)
		if err := s.Export(o.name, f); err != nil {
			errors.Fatal(errors.Wrap(errors.PhaseLower, errors.KindInvalidInput, err, "export "+o.name))
		}
	})
	if err != nil {
		return nil, err
	}
	return s.Encode()
}

func ascending(s *lower.Session, elem layout.Scalar) lower.Lambda {
	f := s.NewLambda("ascending", []layout.Layout{elem, elem}, layout.U8, nil)
	a, b := f.Param(0), f.Param(1)
	lt, gt := wasm.OpI32LtU, wasm.OpI32GtU
	switch {
	case elem.Width == 8 && elem.Signed:
		lt, gt = wasm.OpI64LtS, wasm.OpI64GtS
	case elem.Width == 8:
		lt, gt = wasm.OpI64LtU, wasm.OpI64GtU
	case elem.Signed:
		lt, gt = wasm.OpI32LtS, wasm.OpI32GtS
	}

	r := f.Const(int64(rtabi.EQ), layout.U8)
	e := f.Emitter()
	e.LocalGet(a.Local).LocalGet(b.Local).Op(lt).If(wasm.BlockVoid)
	e.I32Const(int32(rtabi.LT)).LocalSet(r.Local)
	e.End()
	e.LocalGet(a.Local).LocalGet(b.Local).Op(gt).If(wasm.BlockVoid)
	e.I32Const(int32(rtabi.GT)).LocalSet(r.Local)
	e.End()
	f.FinishValue(r)
	return f.Lambda()
}

func identity(s *lower.Session, elem layout.Layout) lower.Lambda {
	f := s.NewLambda("identity", []layout.Layout{elem}, elem, nil)
	f.FinishValue(f.Param(0))
	return f.Lambda()
}

func always(s *lower.Session, elem layout.Layout) lower.Lambda {
	f := s.NewLambda("always", []layout.Layout{elem}, layout.Bool, nil)
	f.FinishValue(f.Const(1, layout.Bool))
	return f.Lambda()
}

func counter(s *lower.Session, elem layout.Layout) lower.Lambda {
	f := s.NewLambda("count", []layout.Layout{elem, layout.Usize}, layout.Usize, nil)
	r := f.Usize(0)
	f.Emitter().LocalGet(f.Param(1).Local).I32Const(1).I32Add().LocalSet(r.Local)
	f.FinishValue(r)
	return f.Lambda()
}
