package rtabi

// Entry is a runtime algorithm.
type Entry uint8

const (
	ListSingle Entry = iota
	ListRepeat
	ListJoin
	ListReverse
	ListAppend
	ListDrop
	ListSet
	ListContains
	ListKeepIf
	ListKeepOks
	ListKeepErrs
	ListSortWith
	ListMapWithIndex
	ListMap
	ListMap2
	ListMap3
	ListConcat
	ListWalk
	ListWalkBackwards
	ListWalkUntil
	ListRange
	// ListWalkBackwardsUntil has no runtime implementation.
	ListWalkBackwardsUntil

	entryCount
)

type entryInfo struct {
	name        string
	sig         Signature
	unavailable bool
}

func p(name string, kind ParamKind) Param { return Param{Name: name, Kind: kind} }

var callbackParams = []Param{
	p("caller", FnPtr),
	p("data", Ptr),
	p("inc_n_data", FnPtr),
	p("data_is_owned", Bool),
}

func withCallback(head []Param, tail ...Param) []Param {
	params := make([]Param, 0, len(head)+len(callbackParams)+len(tail))
	params = append(params, head...)
	params = append(params, callbackParams...)
	return append(params, tail...)
}

var entries = [entryCount]entryInfo{
	ListSingle: {name: "list.single", sig: Signature{
		Params: []Param{p("align", Usize), p("elem", Ptr), p("width", Usize)},
		Result: List,
	}},
	ListRepeat: {name: "list.repeat", sig: Signature{
		Params: []Param{p("count", Usize), p("align", Usize), p("elem", Ptr), p("width", Usize), p("inc_n", FnPtr)},
		Result: List,
	}},
	ListJoin: {name: "list.join", sig: Signature{
		Params: []Param{p("list", List), p("align", Usize), p("width", Usize)},
		Result: List,
	}},
	ListReverse: {name: "list.reverse", sig: Signature{
		Params: []Param{p("list", List), p("align", Usize), p("width", Usize)},
		Result: List,
	}},
	ListAppend: {name: "list.append", sig: Signature{
		Params: []Param{p("list", List), p("align", Usize), p("elem", Ptr), p("width", Usize)},
		Result: List,
	}},
	ListDrop: {name: "list.drop", sig: Signature{
		Params: []Param{p("list", List), p("align", Usize), p("width", Usize), p("count", Usize), p("dec", FnPtr)},
		Result: List,
	}},
	ListSet: {name: "list.set", sig: Signature{
		Params: []Param{
			p("bytes", Ptr), p("length", Usize), p("align", Usize), p("index", Usize),
			p("elem", Ptr), p("width", Usize), p("dec", FnPtr),
		},
		Result: Ptr,
	}},
	ListContains: {name: "list.contains", sig: Signature{
		Params: []Param{p("list", List), p("elem", Ptr), p("width", Usize), p("eq", FnPtr)},
		Result: Bool,
	}},
	ListKeepIf: {name: "list.keep_if", sig: Signature{
		Params: withCallback([]Param{p("list", List)},
			p("align", Usize), p("width", Usize), p("inc", FnPtr), p("dec", FnPtr)),
		Result: List,
	}},
	ListKeepOks: {name: "list.keep_oks", sig: Signature{
		Params: withCallback([]Param{p("list", List)},
			p("align", Usize), p("before_width", Usize), p("result_width", Usize), p("after_width", Usize),
			p("dec_result", FnPtr)),
		Result: List,
	}},
	ListKeepErrs: {name: "list.keep_errs", sig: Signature{
		Params: withCallback([]Param{p("list", List)},
			p("align", Usize), p("before_width", Usize), p("result_width", Usize), p("after_width", Usize),
			p("dec_result", FnPtr)),
		Result: List,
	}},
	ListSortWith: {name: "list.sort_with", sig: Signature{
		Params: []Param{
			p("list", List), p("compare", FnPtr), p("data", Ptr), p("inc_n_data", FnPtr),
			p("data_is_owned", Bool), p("align", Usize), p("width", Usize),
		},
		Result: List,
	}},
	ListMapWithIndex: {name: "list.map_with_index", sig: Signature{
		Params: withCallback([]Param{p("list", List)},
			p("align", Usize), p("old_width", Usize), p("new_width", Usize)),
		Result: List,
	}},
	ListMap: {name: "list.map", sig: Signature{
		Params: withCallback([]Param{p("list", List)},
			p("align", Usize), p("old_width", Usize), p("new_width", Usize)),
		Result: List,
	}},
	ListMap2: {name: "list.map2", sig: Signature{
		Params: withCallback([]Param{p("list1", List), p("list2", List)},
			p("align", Usize), p("width1", Usize), p("width2", Usize), p("result_width", Usize),
			p("dec1", FnPtr), p("dec2", FnPtr)),
		Result: List,
	}},
	ListMap3: {name: "list.map3", sig: Signature{
		Params: withCallback([]Param{p("list1", List), p("list2", List), p("list3", List)},
			p("align", Usize), p("width1", Usize), p("width2", Usize), p("width3", Usize),
			p("result_width", Usize), p("dec1", FnPtr), p("dec2", FnPtr), p("dec3", FnPtr)),
		Result: List,
	}},
	ListConcat: {name: "list.concat", sig: Signature{
		Params: []Param{p("list1", List), p("list2", List), p("align", Usize), p("width", Usize)},
		Result: List,
	}},
	ListWalk: {name: "list.walk", sig: Signature{
		Params: withCallback([]Param{p("list", List)},
			p("default", Ptr), p("align", Usize), p("elem_width", Usize), p("acc_width", Usize), p("result", Ptr)),
	}},
	ListWalkBackwards: {name: "list.walk_backwards", sig: Signature{
		Params: withCallback([]Param{p("list", List)},
			p("default", Ptr), p("align", Usize), p("elem_width", Usize), p("acc_width", Usize), p("result", Ptr)),
	}},
	ListWalkUntil: {name: "list.walk_until", sig: Signature{
		Params: withCallback([]Param{p("list", List)},
			p("default", Ptr), p("align", Usize), p("elem_width", Usize), p("acc_width", Usize),
			p("dec", FnPtr), p("result", Ptr)),
	}},
	ListRange: {name: "list.range", sig: Signature{
		Params: []Param{p("int_width", Usize), p("low", Ptr), p("high", Ptr)},
		Result: List,
	}},
	ListWalkBackwardsUntil: {name: "list.walk_backwards_until", unavailable: true, sig: Signature{
		Params: withCallback([]Param{p("list", List)},
			p("default", Ptr), p("align", Usize), p("elem_width", Usize), p("acc_width", Usize),
			p("dec", FnPtr), p("result", Ptr)),
	}},
}

// Name returns the import name of e.
func (e Entry) Name() string {
	if e >= entryCount {
		return "list.unknown"
	}
	return entries[e].name
}

func (e Entry) String() string { return e.Name() }

// Signature returns the parameter list of e.
func (e Entry) Signature() Signature {
	return entries[e].sig
}

// Available reports whether the runtime implements e.
func (e Entry) Available() bool {
	return e < entryCount && !entries[e].unavailable
}

// Entries returns every entry the runtime implements, in ABI order.
func Entries() []Entry {
	out := make([]Entry, 0, entryCount)
	for e := Entry(0); e < entryCount; e++ {
		if e.Available() {
			out = append(out, e)
		}
	}
	return out
}

// Lookup finds an entry by import name.
func Lookup(name string) (Entry, bool) {
	for e := Entry(0); e < entryCount; e++ {
		if entries[e].name == name {
			return e, true
		}
	}
	return 0, false
}
