package lower

import (
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/listgen/errors"
	"github.com/wippyai/listgen/internal/wasm"
	"github.com/wippyai/listgen/layout"
	"github.com/wippyai/listgen/rtabi"
)

// Session builds one wasm module. All runtime and allocator imports are
// declared when the session is created, so function indices never shift
// once code starts referring to them.
type Session struct {
	opts Options
	log  *zap.Logger
	mod  *wasm.Module
	rc   Refcounter

	runtime  map[rtabi.Entry]uint32
	alloc    uint32
	dealloc  uint32
	sp       uint32
	heapBase uint32

	funcs    []*Func
	wrappers map[wrapperKey]*Wrapper
	synth    []*Wrapper
}

// NewSession creates a session with the given options. Zero fields take
// their value from DefaultOptions.
func NewSession(opts Options) (*Session, error) {
	opts.normalize()
	if opts.StackTop <= ReservedBytes || opts.StackTop > opts.MemoryPages*pageSize {
		return nil, errors.InvalidInput(errors.PhaseLower,
			"stack top must lie between the reserved area and the end of memory")
	}

	log := opts.Logger
	if log == nil {
		log = Logger()
	}

	s := &Session{
		opts:     opts,
		log:      log,
		mod:      wasm.NewModule(opts.MemoryPages),
		rc:       opts.Refcounter,
		runtime:  make(map[rtabi.Entry]uint32),
		wrappers: make(map[wrapperKey]*Wrapper),
	}

	i32 := api.ValueTypeI32
	s.alloc, _ = s.mod.ImportFunc(opts.AllocatorModule, rtabi.AllocName,
		wasm.FuncType{Params: []api.ValueType{i32, i32}, Results: []api.ValueType{i32}})
	s.dealloc, _ = s.mod.ImportFunc(opts.AllocatorModule, rtabi.DeallocName,
		wasm.FuncType{Params: []api.ValueType{i32, i32}})
	for _, e := range rtabi.Entries() {
		sig := e.Signature()
		idx, _ := s.mod.ImportFunc(opts.RuntimeModule, e.Name(),
			wasm.FuncType{Params: sig.ParamTypes(), Results: sig.ResultTypes()})
		s.runtime[e] = idx
	}

	s.sp = s.mod.AddGlobal(wasm.Global{Type: i32, Mutable: true, Init: int64(opts.StackTop)})
	s.heapBase = s.mod.AddGlobal(wasm.Global{Type: i32, Init: int64(opts.StackTop)})
	s.mod.Export(rtabi.MemoryExport, wasm.KindMemory, 0)
	s.mod.Export(rtabi.StackPointerExport, wasm.KindGlobal, s.sp)
	s.mod.Export(rtabi.HeapBaseExport, wasm.KindGlobal, s.heapBase)

	log.Debug("session created",
		zap.Uint32("pages", opts.MemoryPages),
		zap.Uint32("stack_top", opts.StackTop),
		zap.Int("imports", len(s.mod.Imports)))
	return s, nil
}

// Lower runs build and converts a fatal lowering error raised inside it
// into a returned error. The session should be discarded after an error.
func (s *Session) Lower(build func()) error {
	return errors.Catch(build)
}

// Export exports f under name.
func (s *Session) Export(name string, f *Func) error {
	if s.mod.HasExport(name) {
		return errors.InvalidInput(errors.PhaseLower, "duplicate export "+name)
	}
	s.mod.Export(name, wasm.KindFunc, f.index)
	return nil
}

// Encode returns the binary module. Every function must be finished.
func (s *Session) Encode() ([]byte, error) {
	for _, f := range s.funcs {
		if !f.finished {
			return nil, errors.NotFinished(f.name)
		}
	}
	return s.mod.Encode()
}

// Wrappers returns every synthesized wrapper in creation order.
func (s *Session) Wrappers() []*Wrapper {
	return append([]*Wrapper(nil), s.synth...)
}

// RuntimeImport returns the function index of a runtime entry.
func (s *Session) RuntimeImport(e rtabi.Entry) (uint32, bool) {
	idx, ok := s.runtime[e]
	return idx, ok
}

// Signature describes a function by layouts. A nil Result means the
// function returns nothing.
type Signature struct {
	Params []layout.Layout
	Result layout.Layout
}

// NewFunc starts a top-level function. Top-level list parameters and
// results cross the boundary as a single i64; other values follow the
// direct or indirect representation, with an indirect result written
// through a trailing out pointer.
func (s *Session) NewFunc(name string, sig Signature) *Func {
	return s.newFunc(name, sig.Params, nil, sig.Result, true)
}

// NewLambda starts a function that can be wrapped into a callback. All
// arguments use the value representation. Captures, when not nil, are
// passed after the arguments.
func (s *Session) NewLambda(name string, args []layout.Layout, ret, captures layout.Layout) *Func {
	if ret == nil {
		errors.Fatal(errors.Invariant("lambda", nil, "lambda %s must return a value", name))
	}
	f := s.newFunc(name, args, captures, ret, false)
	f.lambda = &Lambda{
		Index:    f.index,
		Name:     name,
		Args:     append([]layout.Layout(nil), args...),
		Ret:      ret,
		Captures: captures,
	}
	return f
}
