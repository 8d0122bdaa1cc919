package layout

import (
	"testing"

	"go.bytecodealliance.org/wit"
)

func TestFromWITPrimitives(t *testing.T) {
	tests := []struct {
		typ  wit.Type
		want Layout
	}{
		{wit.Bool{}, U8},
		{wit.U8{}, U8},
		{wit.S8{}, I8},
		{wit.U16{}, U16},
		{wit.S16{}, I16},
		{wit.U32{}, U32},
		{wit.S32{}, I32},
		{wit.U64{}, U64},
		{wit.S64{}, I64},
		{wit.F32{}, F32},
		{wit.F64{}, F64},
		{wit.Char{}, U32},
		{wit.String{}, NewList(U8)},
	}

	for _, tc := range tests {
		t.Run(tc.want.String(), func(t *testing.T) {
			got, err := FromWIT(tc.typ)
			if err != nil {
				t.Fatalf("FromWIT: %v", err)
			}
			if !Equal(got, tc.want) {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestFromWITTypeDefs(t *testing.T) {
	tests := []struct {
		name string
		typ  *wit.TypeDef
		want Layout
	}{
		{
			name: "list",
			typ:  &wit.TypeDef{Kind: &wit.List{Type: wit.S64{}}},
			want: NewList(I64),
		},
		{
			name: "record",
			typ: &wit.TypeDef{Kind: &wit.Record{Fields: []wit.Field{
				{Name: "x", Type: wit.U8{}},
				{Name: "y", Type: wit.F64{}},
			}}},
			want: NewStruct(U8, F64),
		},
		{
			name: "tuple",
			typ:  &wit.TypeDef{Kind: &wit.Tuple{Types: []wit.Type{wit.U32{}, wit.String{}}}},
			want: NewStruct(U32, NewList(U8)),
		},
		{
			name: "result",
			typ:  &wit.TypeDef{Kind: &wit.Result{OK: wit.U32{}, Err: wit.U8{}}},
			want: NewResult(U32, U8),
		},
		{
			name: "result without payloads",
			typ:  &wit.TypeDef{Kind: &wit.Result{}},
			want: NewResult(NewStruct(), NewStruct()),
		},
		{
			name: "option",
			typ:  &wit.TypeDef{Kind: &wit.Option{Type: wit.U16{}}},
			want: Union{Payloads: []Layout{NewStruct(), U16}},
		},
		{
			name: "enum",
			typ:  &wit.TypeDef{Kind: &wit.Enum{Cases: []wit.EnumCase{{Name: "a"}, {Name: "b"}}}},
			want: U8,
		},
		{
			name: "own",
			typ:  &wit.TypeDef{Kind: &wit.Own{}},
			want: Pointer{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := FromWIT(tc.typ)
			if err != nil {
				t.Fatalf("FromWIT: %v", err)
			}
			if !Equal(got, tc.want) {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestConverterCache(t *testing.T) {
	c := NewConverter()
	def := &wit.TypeDef{Kind: &wit.List{Type: wit.U8{}}}

	a, err := c.Convert(def)
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Convert(&wit.TypeDef{Kind: &wit.Tuple{Types: []wit.Type{def, def}}})
	if err != nil {
		t.Fatal(err)
	}
	if !Equal(b, NewStruct(a, a)) {
		t.Errorf("got %s", b)
	}
	if len(c.cache) != 2 {
		t.Errorf("cache size: got %d, want 2", len(c.cache))
	}
}
