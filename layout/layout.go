package layout

import (
	"strconv"
	"strings"
)

// PointerSize is the width of a pointer on wasm32.
const PointerSize = 4

// Kind identifies a layout variant.
type Kind uint8

const (
	KindScalar Kind = iota
	KindPointer
	KindStruct
	KindBoxed
	KindList
	KindEmptyList
	KindUnion
)

var kindNames = [...]string{
	KindScalar:    "scalar",
	KindPointer:   "pointer",
	KindStruct:    "struct",
	KindBoxed:     "boxed",
	KindList:      "list",
	KindEmptyList: "empty_list",
	KindUnion:     "union",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Mode is the memory discipline of a heap-backed layout.
type Mode uint8

const (
	// Refcounted buffers carry a reference count header and may be shared.
	Refcounted Mode = iota
	// Unique buffers have exactly one owner and are never shared.
	Unique
)

func (m Mode) String() string {
	if m == Unique {
		return "unique"
	}
	return "refcounted"
}

// Layout is the shape of a value in linear memory.
type Layout interface {
	Kind() Kind
	Size() uint32
	Align() uint32
	// Key is a structural identity. Equal keys mean equal layouts.
	Key() string
	String() string

	layout()
}

// Scalar is an integer or float of 1, 2, 4, 8 or 16 bytes.
type Scalar struct {
	Width  uint32
	Signed bool
	Float  bool
}

var (
	U8   = Scalar{Width: 1}
	U16  = Scalar{Width: 2}
	U32  = Scalar{Width: 4}
	U64  = Scalar{Width: 8}
	U128 = Scalar{Width: 16}
	I8   = Scalar{Width: 1, Signed: true}
	I16  = Scalar{Width: 2, Signed: true}
	I32  = Scalar{Width: 4, Signed: true}
	I64  = Scalar{Width: 8, Signed: true}
	I128 = Scalar{Width: 16, Signed: true}
	F32  = Scalar{Width: 4, Signed: true, Float: true}
	F64  = Scalar{Width: 8, Signed: true, Float: true}

	Bool  = U8
	Usize = U32
)

func (Scalar) Kind() Kind      { return KindScalar }
func (s Scalar) Size() uint32  { return s.Width }
func (s Scalar) Align() uint32 { return s.Width }
func (s Scalar) Key() string   { return s.String() }
func (Scalar) layout()         {}

func (s Scalar) String() string {
	prefix := "u"
	switch {
	case s.Float:
		prefix = "f"
	case s.Signed:
		prefix = "i"
	}
	return prefix + strconv.Itoa(int(s.Width)*8)
}

// Pointer is an opaque pointer-sized value with no ownership.
type Pointer struct{}

func (Pointer) Kind() Kind     { return KindPointer }
func (Pointer) Size() uint32   { return PointerSize }
func (Pointer) Align() uint32  { return PointerSize }
func (Pointer) Key() string    { return "ptr" }
func (Pointer) String() string { return "ptr" }
func (Pointer) layout()        {}

// Struct is a sequence of fields laid out in order with natural alignment.
type Struct struct {
	Fields []Layout
}

// NewStruct returns a struct of the given fields.
func NewStruct(fields ...Layout) Struct {
	return Struct{Fields: fields}
}

func (Struct) Kind() Kind { return KindStruct }

func (s Struct) Size() uint32 {
	offset := uint32(0)
	for _, f := range s.Fields {
		offset = AlignTo(offset, f.Align()) + f.Size()
	}
	return AlignTo(offset, s.Align())
}

func (s Struct) Align() uint32 {
	align := uint32(1)
	for _, f := range s.Fields {
		if a := f.Align(); a > align {
			align = a
		}
	}
	return align
}

// Offsets returns the byte offset of every field.
func (s Struct) Offsets() []uint32 {
	offs := make([]uint32, len(s.Fields))
	offset := uint32(0)
	for i, f := range s.Fields {
		offset = AlignTo(offset, f.Align())
		offs[i] = offset
		offset += f.Size()
	}
	return offs
}

func (s Struct) Key() string {
	return "{" + joinLayouts(s.Fields, Layout.Key) + "}"
}

func (s Struct) String() string {
	return "{" + joinLayouts(s.Fields, Layout.String) + "}"
}

func (Struct) layout() {}

// Boxed is a pointer to a heap cell holding Inner.
type Boxed struct {
	Inner Layout
	Mode  Mode
}

// NewBox returns a refcounted box of inner.
func NewBox(inner Layout) Boxed {
	return Boxed{Inner: inner, Mode: Refcounted}
}

func (Boxed) Kind() Kind    { return KindBoxed }
func (Boxed) Size() uint32  { return PointerSize }
func (Boxed) Align() uint32 { return PointerSize }
func (b Boxed) Key() string { return "box<" + b.Mode.String() + "," + b.Inner.Key() + ">" }
func (b Boxed) String() string {
	if b.Mode == Unique {
		return "box!(" + b.Inner.String() + ")"
	}
	return "box(" + b.Inner.String() + ")"
}
func (Boxed) layout() {}

// List is a list value stored as an element: {ptr, len}.
type List struct {
	Elem Layout
	Mode Mode
}

// NewList returns a refcounted list of elem.
func NewList(elem Layout) List {
	return List{Elem: elem, Mode: Refcounted}
}

// NewUniqueList returns a uniquely owned list of elem.
func NewUniqueList(elem Layout) List {
	return List{Elem: elem, Mode: Unique}
}

func (List) Kind() Kind    { return KindList }
func (List) Size() uint32  { return 2 * PointerSize }
func (List) Align() uint32 { return PointerSize }
func (l List) Key() string { return "list<" + l.Mode.String() + "," + l.Elem.Key() + ">" }
func (l List) String() string {
	if l.Mode == Unique {
		return "list!(" + l.Elem.String() + ")"
	}
	return "list(" + l.Elem.String() + ")"
}
func (List) layout() {}

// EmptyList is the layout of a list statically known to be empty. Its
// element layout is unknown and never needed.
type EmptyList struct{}

func (EmptyList) Kind() Kind     { return KindEmptyList }
func (EmptyList) Size() uint32   { return 2 * PointerSize }
func (EmptyList) Align() uint32  { return PointerSize }
func (EmptyList) Key() string    { return "list<empty>" }
func (EmptyList) String() string { return "[]" }
func (EmptyList) layout()        {}

// Union is a tag union. Payload i is selected by tag value i. The tag is
// one byte stored in the last byte of the layout.
type Union struct {
	Payloads []Layout
}

// Result tags, ordered alphabetically by tag name.
const (
	ResultErr uint8 = 0
	ResultOk  uint8 = 1
)

// NewResult returns the union [Err err, Ok ok].
func NewResult(ok, err Layout) Union {
	return Union{Payloads: []Layout{err, ok}}
}

func (Union) Kind() Kind { return KindUnion }

func (u Union) Size() uint32 {
	payload := uint32(0)
	for _, p := range u.Payloads {
		if s := p.Size(); s > payload {
			payload = s
		}
	}
	return AlignTo(payload+1, u.Align())
}

func (u Union) Align() uint32 {
	align := uint32(1)
	for _, p := range u.Payloads {
		if a := p.Align(); a > align {
			align = a
		}
	}
	return align
}

// TagOffset returns the offset of the tag byte.
func (u Union) TagOffset() uint32 {
	return u.Size() - 1
}

func (u Union) Key() string {
	return "[" + joinLayouts(u.Payloads, Layout.Key) + "]"
}

func (u Union) String() string {
	return "[" + joinLayouts(u.Payloads, Layout.String) + "]"
}

func (Union) layout() {}

func joinLayouts(ls []Layout, f func(Layout) string) string {
	parts := make([]string, len(ls))
	for i, l := range ls {
		parts[i] = f(l)
	}
	return strings.Join(parts, ", ")
}

// AlignTo rounds offset up to a multiple of align.
func AlignTo(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}
