package hostrt

import (
	"context"
	"encoding/binary"
	"slices"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/listgen/errors"
	"github.com/wippyai/listgen/rtabi"
)

const pageSize = 65536

// Stats counts allocator activity.
type Stats struct {
	Allocs   int
	Frees    int
	BadFrees int
}

// Runtime serves one guest module. Allocation is a bump pointer starting
// at the guest's __heap_base; freed memory is tracked but not reused.
type Runtime struct {
	log   *zap.Logger
	next  uint32
	live  map[uint32]uint32
	stats Stats
}

// New creates a runtime. A nil logger disables logging.
func New(log *zap.Logger) *Runtime {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runtime{log: log, live: make(map[uint32]uint32)}
}

type funcDef struct {
	name    string
	handler api.GoModuleFunc
	params  []api.ValueType
	results []api.ValueType
}

// Register instantiates the allocator and runtime host modules in rt.
func (r *Runtime) Register(ctx context.Context, rt wazero.Runtime) error {
	i32 := api.ValueTypeI32
	env := []funcDef{
		{name: rtabi.AllocName, handler: r.rocAlloc, params: []api.ValueType{i32, i32}, results: []api.ValueType{i32}},
		{name: rtabi.DeallocName, handler: r.rocDealloc, params: []api.ValueType{i32, i32}},
	}
	if err := instantiate(ctx, rt, rtabi.AllocatorModule, env); err != nil {
		return err
	}

	handlers := r.handlers()
	var builtins []funcDef
	for _, e := range rtabi.Entries() {
		h, ok := handlers[e]
		if !ok {
			return errors.NotFound(errors.PhaseHost, "runtime entry", e.Name())
		}
		sig := e.Signature()
		builtins = append(builtins, funcDef{name: e.Name(), handler: h, params: sig.ParamTypes(), results: sig.ResultTypes()})
	}
	return instantiate(ctx, rt, rtabi.RuntimeModule, builtins)
}

func instantiate(ctx context.Context, rt wazero.Runtime, name string, defs []funcDef) error {
	b := rt.NewHostModuleBuilder(name)
	for _, d := range defs {
		b.NewFunctionBuilder().
			WithGoModuleFunction(d.handler, d.params, d.results).
			Export(d.name)
	}
	if _, err := b.Instantiate(ctx); err != nil {
		return errors.Registration(errors.PhaseHost, name, "*", err)
	}
	return nil
}

func (r *Runtime) rocAlloc(_ context.Context, m api.Module, stack []uint64) {
	stack[0] = uint64(r.Alloc(m, uint32(stack[0]), uint32(stack[1])))
}

func (r *Runtime) rocDealloc(_ context.Context, _ api.Module, stack []uint64) {
	r.Dealloc(uint32(stack[0]), uint32(stack[1]))
}

// Alloc reserves size bytes aligned to align, growing memory as needed.
func (r *Runtime) Alloc(m api.Module, size, align uint32) uint32 {
	if r.next == 0 {
		g := m.ExportedGlobal(rtabi.HeapBaseExport)
		if g == nil {
			panic(errors.NotFound(errors.PhaseHost, "global", rtabi.HeapBaseExport))
		}
		r.next = uint32(g.Get())
	}
	if align == 0 {
		align = 1
	}
	p := (r.next + align - 1) &^ (align - 1)
	end := p + max(size, 1)

	mem := m.Memory()
	if end > mem.Size() {
		pages := (end - mem.Size() + pageSize - 1) / pageSize
		if _, ok := mem.Grow(pages); !ok {
			panic(errors.AllocationFailed(errors.PhaseHost, size, align))
		}
	}
	r.next = end
	r.live[p] = size
	r.stats.Allocs++
	r.log.Debug("alloc", zap.Uint32("ptr", p), zap.Uint32("size", size), zap.Uint32("align", align))
	return p
}

// Dealloc releases an allocation. Pointers that were never returned by
// Alloc, or were already freed, are counted as bad frees.
func (r *Runtime) Dealloc(ptr, align uint32) {
	if _, ok := r.live[ptr]; !ok {
		r.stats.BadFrees++
		r.log.Warn("dealloc of unknown pointer", zap.Uint32("ptr", ptr), zap.Uint32("align", align))
		return
	}
	delete(r.live, ptr)
	r.stats.Frees++
	r.log.Debug("dealloc", zap.Uint32("ptr", ptr))
}

// Live returns the number of allocations not yet freed.
func (r *Runtime) Live() int { return len(r.live) }

// IsLive reports whether ptr is the start of a live allocation.
func (r *Runtime) IsLive(ptr uint32) bool {
	_, ok := r.live[ptr]
	return ok
}

// Stats returns the allocator counters.
func (r *Runtime) Stats() Stats { return r.stats }

// allocList allocates a list buffer with a count of one and returns the
// data pointer. Empty lists are not allocated.
func (r *Runtime) allocList(m api.Module, align, width, count uint32) uint32 {
	if count == 0 {
		return 0
	}
	extra := max(rtabi.HeaderSize, align)
	raw := r.Alloc(m, extra+width*count, extra)
	data := raw + extra
	writeU32(m, data-rtabi.HeaderSize, rtabi.RefcountOne)
	return data
}

func (r *Runtime) scratch(m api.Module, size uint32) uint32 {
	return r.Alloc(m, size, 16)
}

// call invokes the function in table slot slot.
func (r *Runtime) call(ctx context.Context, m api.Module, slot uint32, args ...uint64) uint64 {
	name := rtabi.FuncPointerName(slot)
	fn := m.ExportedFunction(name)
	if fn == nil {
		panic(errors.NotFound(errors.PhaseHost, "function pointer", name))
	}
	res, err := fn.Call(ctx, args...)
	if err != nil {
		panic(err)
	}
	if len(res) == 0 {
		return 0
	}
	// upper bits of an i32 result are undefined
	if fn.Definition().ResultTypes()[0] == api.ValueTypeI32 {
		return uint64(api.DecodeU32(res[0]))
	}
	return res[0]
}

func read(m api.Module, off, n uint32) []byte {
	if n == 0 {
		return nil
	}
	b, ok := m.Memory().Read(off, n)
	if !ok {
		panic(errors.OutOfBounds(errors.PhaseHost, nil, int(off), int(m.Memory().Size())))
	}
	return slices.Clone(b)
}

func write(m api.Module, off uint32, b []byte) {
	if len(b) == 0 {
		return
	}
	if !m.Memory().Write(off, b) {
		panic(errors.OutOfBounds(errors.PhaseHost, nil, int(off), int(m.Memory().Size())))
	}
}

func readU32(m api.Module, off uint32) uint32 {
	return binary.LittleEndian.Uint32(read(m, off, 4))
}

func writeU32(m api.Module, off, v uint32) {
	write(m, off, binary.LittleEndian.AppendUint32(nil, v))
}

func copyMem(m api.Module, dst, src, n uint32) {
	write(m, dst, read(m, src, n))
}
