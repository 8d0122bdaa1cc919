package layout

import (
	"fmt"

	"github.com/wippyai/listgen/errors"
	"go.bytecodealliance.org/wit"
)

// Converter turns WIT types into layouts. Named type definitions are
// converted once and cached.
type Converter struct {
	cache  map[*wit.TypeDef]Layout
	active map[*wit.TypeDef]bool
}

// NewConverter returns an empty converter.
func NewConverter() *Converter {
	return &Converter{
		cache:  make(map[*wit.TypeDef]Layout),
		active: make(map[*wit.TypeDef]bool),
	}
}

// FromWIT converts t using a fresh converter.
func FromWIT(t wit.Type) (Layout, error) {
	return NewConverter().Convert(t)
}

// Convert returns the layout of t. Strings become lists of bytes, options
// and results become unions with alphabetically ordered tags, and handles
// become opaque pointers.
func (c *Converter) Convert(t wit.Type) (Layout, error) {
	switch typ := t.(type) {
	case nil:
		return NewStruct(), nil
	case wit.Bool, wit.U8:
		return U8, nil
	case wit.S8:
		return I8, nil
	case wit.U16:
		return U16, nil
	case wit.S16:
		return I16, nil
	case wit.U32, wit.Char:
		return U32, nil
	case wit.S32:
		return I32, nil
	case wit.U64:
		return U64, nil
	case wit.S64:
		return I64, nil
	case wit.F32:
		return F32, nil
	case wit.F64:
		return F64, nil
	case wit.String:
		return NewList(U8), nil
	case *wit.TypeDef:
		return c.convertTypeDef(typ)
	}
	return nil, errors.New(errors.PhaseLayout, errors.KindInvalidInput).
		Op("FromWIT").
		Detail("unsupported WIT type %T", t).
		Build()
}

func (c *Converter) convertTypeDef(t *wit.TypeDef) (Layout, error) {
	if cached, ok := c.cache[t]; ok {
		return cached, nil
	}
	if c.active[t] {
		return nil, errors.New(errors.PhaseLayout, errors.KindInvalidInput).
			Op("FromWIT").
			Detail("recursive type %s", typeDefName(t)).
			Build()
	}
	c.active[t] = true
	defer delete(c.active, t)

	var (
		l   Layout
		err error
	)
	switch kind := t.Kind.(type) {
	case *wit.Record:
		fields := make([]wit.Type, len(kind.Fields))
		for i, f := range kind.Fields {
			fields[i] = f.Type
		}
		l, err = c.convertStruct(fields)
	case *wit.Tuple:
		l, err = c.convertStruct(kind.Types)
	case *wit.List:
		var elem Layout
		elem, err = c.Convert(kind.Type)
		l = NewList(elem)
	case *wit.Option:
		// [None, Some]
		l, err = c.convertUnion([]wit.Type{nil, kind.Type})
	case *wit.Result:
		l, err = c.convertUnion([]wit.Type{kind.Err, kind.OK})
	case *wit.Variant:
		cases := make([]wit.Type, len(kind.Cases))
		for i, cs := range kind.Cases {
			cases[i] = cs.Type
		}
		l, err = c.convertUnion(cases)
	case *wit.Enum:
		l = discriminant(len(kind.Cases))
	case *wit.Flags:
		l = flags(len(kind.Flags))
	case *wit.Own, *wit.Borrow:
		l = Pointer{}
	case wit.Type:
		l, err = c.Convert(kind)
	default:
		err = errors.New(errors.PhaseLayout, errors.KindInvalidInput).
			Op("FromWIT").
			Detail("unsupported type definition %s (%T)", typeDefName(t), t.Kind).
			Build()
	}
	if err != nil {
		return nil, err
	}

	c.cache[t] = l
	return l, nil
}

func (c *Converter) convertStruct(types []wit.Type) (Layout, error) {
	fields := make([]Layout, len(types))
	for i, typ := range types {
		f, err := c.Convert(typ)
		if err != nil {
			return nil, err
		}
		fields[i] = f
	}
	return Struct{Fields: fields}, nil
}

func (c *Converter) convertUnion(types []wit.Type) (Layout, error) {
	payloads := make([]Layout, len(types))
	for i, typ := range types {
		p, err := c.Convert(typ)
		if err != nil {
			return nil, err
		}
		payloads[i] = p
	}
	return Union{Payloads: payloads}, nil
}

func discriminant(n int) Layout {
	switch {
	case n <= 1<<8:
		return U8
	case n <= 1<<16:
		return U16
	}
	return U32
}

func flags(n int) Layout {
	switch {
	case n == 0:
		return NewStruct()
	case n <= 8:
		return U8
	case n <= 16:
		return U16
	case n <= 32:
		return U32
	case n <= 64:
		return U64
	}
	words := make([]Layout, (n+31)/32)
	for i := range words {
		words[i] = U32
	}
	return Struct{Fields: words}
}

func typeDefName(t *wit.TypeDef) string {
	if t.Name != nil {
		return *t.Name
	}
	return fmt.Sprintf("%T", t.Kind)
}
