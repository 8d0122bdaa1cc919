package main

import (
	"fmt"
	"strings"
	"unicode"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/listgen/errors"
	"github.com/wippyai/listgen/layout"
)

var primitives = map[string]wit.Type{
	"bool":   wit.Bool{},
	"u8":     wit.U8{},
	"s8":     wit.S8{},
	"u16":    wit.U16{},
	"s16":    wit.S16{},
	"u32":    wit.U32{},
	"s32":    wit.S32{},
	"u64":    wit.U64{},
	"s64":    wit.S64{},
	"f32":    wit.F32{},
	"f64":    wit.F64{},
	"char":   wit.Char{},
	"string": wit.String{},
}

// parseLayout parses a WIT type expression such as "list<tuple<u8, s64>>"
// and returns its element layout.
func parseLayout(src string) (layout.Layout, error) {
	t, err := parseType(src)
	if err != nil {
		return nil, err
	}
	return layout.FromWIT(t)
}

func parseType(src string) (wit.Type, error) {
	p := &typeParser{toks: tokenize(src)}
	t, err := p.typ()
	if err != nil {
		return nil, errors.ParseFailed("type expression "+src, err)
	}
	if tok := p.peek(); tok != "" {
		return nil, errors.ParseFailed("type expression "+src, fmt.Errorf("unexpected %q", tok))
	}
	return t, nil
}

func tokenize(src string) []string {
	var toks []string
	word := strings.Builder{}
	flush := func() {
		if word.Len() > 0 {
			toks = append(toks, word.String())
			word.Reset()
		}
	}
	for _, r := range src {
		switch {
		case r == '<' || r == '>' || r == ',':
			flush()
			toks = append(toks, string(r))
		case unicode.IsSpace(r):
			flush()
		default:
			word.WriteRune(r)
		}
	}
	flush()
	return toks
}

type typeParser struct {
	toks []string
	pos  int
}

func (p *typeParser) peek() string {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return ""
}

func (p *typeParser) next() string {
	tok := p.peek()
	if tok != "" {
		p.pos++
	}
	return tok
}

func (p *typeParser) expect(tok string) error {
	if got := p.next(); got != tok {
		if got == "" {
			return fmt.Errorf("expected %q, got end of input", tok)
		}
		return fmt.Errorf("expected %q, got %q", tok, got)
	}
	return nil
}

func (p *typeParser) typ() (wit.Type, error) {
	name := p.next()
	if name == "" {
		return nil, fmt.Errorf("expected a type, got end of input")
	}
	if t, ok := primitives[name]; ok {
		return t, nil
	}

	var arity int
	switch name {
	case "list", "option":
		arity = 1
	case "result":
		arity = 2
	case "tuple":
		arity = -1
	default:
		return nil, fmt.Errorf("unknown type %q", name)
	}

	if err := p.expect("<"); err != nil {
		return nil, err
	}
	var args []wit.Type
	for {
		t, err := p.typ()
		if err != nil {
			return nil, err
		}
		args = append(args, t)
		if p.peek() != "," {
			break
		}
		p.next()
	}
	if err := p.expect(">"); err != nil {
		return nil, err
	}
	if arity > 0 && len(args) != arity {
		return nil, fmt.Errorf("%s takes %d type arguments, got %d", name, arity, len(args))
	}

	switch name {
	case "list":
		return &wit.TypeDef{Kind: &wit.List{Type: args[0]}}, nil
	case "option":
		return &wit.TypeDef{Kind: &wit.Option{Type: args[0]}}, nil
	case "result":
		return &wit.TypeDef{Kind: &wit.Result{OK: args[0], Err: args[1]}}, nil
	}
	return &wit.TypeDef{Kind: &wit.Tuple{Types: args}}, nil
}
