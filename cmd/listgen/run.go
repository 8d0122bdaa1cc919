package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/listgen/errors"
	"github.com/wippyai/listgen/internal/hostrt"
	"github.com/wippyai/listgen/layout"
)

// outcome is the result of one call of a generated export.
type outcome struct {
	Value string
	Stats hostrt.Stats
	Live  int
}

func (o outcome) String() string {
	return fmt.Sprintf("%s  (allocs %d, frees %d, live %d)", o.Value, o.Stats.Allocs, o.Stats.Frees, o.Live)
}

// execute instantiates bin against the host runtime and calls the export
// of o with args given in their text form.
func execute(ctx context.Context, bin []byte, o op, elem layout.Layout, args []string, log *zap.Logger) (outcome, error) {
	if err := runnable(elem); err != nil {
		return outcome{}, err
	}
	params := o.params(elem)
	if len(args) != len(params) {
		return outcome{}, errors.InvalidInput(errors.PhaseRuntime,
			fmt.Sprintf("%s takes %d arguments, got %d", o.name, len(params), len(args)))
	}

	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)
	host := hostrt.New(log)
	if err := host.Register(ctx, rt); err != nil {
		return outcome{}, err
	}
	mod, err := rt.Instantiate(ctx, bin)
	if err != nil {
		return outcome{}, errors.Instantiation(err)
	}

	stack := make([]uint64, len(params))
	for i, p := range params {
		v, err := encodeArg(host, mod, p, args[i], []string{"arg" + strconv.Itoa(i)})
		if err != nil {
			return outcome{}, err
		}
		stack[i] = v
	}

	fn := mod.ExportedFunction(o.name)
	if fn == nil {
		return outcome{}, errors.NotFound(errors.PhaseRuntime, "export", o.name)
	}
	log.Debug("calling export", zap.String("op", o.name), zap.Uint64s("args", stack))
	res, err := fn.Call(ctx, stack...)
	if err != nil {
		return outcome{}, errors.Wrap(errors.PhaseRuntime, errors.KindInvalidData, err, "call "+o.name)
	}

	var text string
	if len(res) > 0 {
		text = decodeResult(mod, o.result(elem), res[0])
	}
	return outcome{Value: text, Stats: host.Stats(), Live: host.Live()}, nil
}

func runnable(elem layout.Layout) error {
	if s, ok := elem.(layout.Scalar); ok && !s.Float && s.Width <= 8 {
		return nil
	}
	return errors.TypeMismatch(errors.PhaseRuntime, "run", "an integer element of at most 64 bits", elem.String())
}

// encodeArg converts one argument. Lists are written comma separated,
// lists of lists separate the inner lists with semicolons. path names the
// argument in errors.
func encodeArg(host *hostrt.Runtime, m api.Module, l layout.Layout, text string, path []string) (uint64, error) {
	text = strings.TrimSpace(text)
	switch t := l.(type) {
	case layout.Scalar:
		v, err := parseScalar(t, text)
		if err != nil {
			return 0, badArg(path, err)
		}
		if t.Width < 8 {
			return uint64(uint32(v)), nil
		}
		return v, nil
	case layout.List:
		if inner, ok := t.Elem.(layout.List); ok {
			var elems [][]byte
			for part := range splitNonEmpty(text, ";") {
				v, err := encodeArg(host, m, inner, part, elemPath(path, len(elems)))
				if err != nil {
					return 0, err
				}
				elems = append(elems, hostrt.Elem(v))
			}
			return host.NewList(m, t.Elem.Align(), layout.Stride(t.Elem), elems...), nil
		}
		s := t.Elem.(layout.Scalar)
		var elems [][]byte
		for part := range splitNonEmpty(text, ",") {
			at := elemPath(path, len(elems))
			if part == "" {
				return 0, errors.InvalidData(errors.PhaseRuntime, at, "empty element")
			}
			v, err := parseScalar(s, part)
			if err != nil {
				return 0, badArg(at, err)
			}
			elems = append(elems, binary.LittleEndian.AppendUint64(nil, v)[:s.Width])
		}
		return host.NewList(m, s.Align(), layout.Stride(s), elems...), nil
	}
	return 0, errors.InvalidInput(errors.PhaseRuntime, "cannot pass an argument of "+l.String())
}

func elemPath(path []string, i int) []string {
	return append(path[:len(path):len(path)], strconv.Itoa(i))
}

func badArg(path []string, err error) error {
	return errors.New(errors.PhaseRuntime, errors.KindInvalidData).
		Op("encode").
		Path(path...).
		Detail("bad argument").
		Cause(err).
		Build()
}

func splitNonEmpty(text, sep string) func(func(string) bool) {
	return func(yield func(string) bool) {
		text = strings.Trim(strings.TrimSpace(text), "[]")
		if text == "" {
			return
		}
		for _, part := range strings.Split(text, sep) {
			if !yield(strings.TrimSpace(part)) {
				return
			}
		}
	}
}

// parseScalar parses an integer into its two's complement bit pattern.
func parseScalar(s layout.Scalar, text string) (uint64, error) {
	bits := int(s.Width) * 8
	if s == layout.Bool {
		switch text {
		case "true":
			return 1, nil
		case "false":
			return 0, nil
		}
	}
	if s.Signed {
		v, err := strconv.ParseInt(text, 0, bits)
		if err != nil {
			return 0, errors.ParseFailed(s.String()+" argument", err)
		}
		return uint64(v), nil
	}
	v, err := strconv.ParseUint(text, 0, bits)
	if err != nil {
		return 0, errors.ParseFailed(s.String()+" argument", err)
	}
	return v, nil
}

func decodeResult(m api.Module, l layout.Layout, v uint64) string {
	switch t := l.(type) {
	case layout.Scalar:
		return formatScalar(t, v)
	case layout.List:
		s := t.Elem.(layout.Scalar)
		elems := hostrt.ReadList(m, v, layout.Stride(s))
		parts := make([]string, len(elems))
		for i, e := range elems {
			var buf [8]byte
			copy(buf[:], e)
			parts[i] = formatScalar(s, binary.LittleEndian.Uint64(buf[:]))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return strconv.FormatUint(v, 10)
}

func formatScalar(s layout.Scalar, v uint64) string {
	bits := s.Width * 8
	if bits < 64 {
		v &= 1<<bits - 1
	}
	if !s.Signed {
		return strconv.FormatUint(v, 10)
	}
	shift := 64 - bits
	return strconv.FormatInt(int64(v<<shift)>>shift, 10)
}
