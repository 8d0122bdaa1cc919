package hostrt

import (
	"bytes"
	"context"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/listgen/internal/wasm"
	"github.com/wippyai/listgen/rtabi"
)

const heapBase = 4096

// guest instantiates a module that only exports memory and __heap_base.
func guest(t *testing.T, pages uint32) (*Runtime, api.Module) {
	t.Helper()
	return guestWith(t, pages, nil)
}

// guestWith is guest with extra definitions added by build.
func guestWith(t *testing.T, pages uint32, build func(m *wasm.Module)) (*Runtime, api.Module) {
	t.Helper()
	ctx := context.Background()

	m := wasm.NewModule(pages)
	g := m.AddGlobal(wasm.Global{Type: api.ValueTypeI32, Init: heapBase})
	m.Export(rtabi.MemoryExport, wasm.KindMemory, 0)
	m.Export(rtabi.HeapBaseExport, wasm.KindGlobal, g)
	if build != nil {
		build(m)
	}
	bin, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	rt := wazero.NewRuntime(ctx)
	t.Cleanup(func() { rt.Close(ctx) })
	r := New(nil)
	if err := r.Register(ctx, rt); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	mod, err := rt.Instantiate(ctx, bin)
	if err != nil {
		t.Fatalf("Instantiate() error = %v", err)
	}
	return r, mod
}

func TestRegisterExportsEveryEntry(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	if err := New(nil).Register(ctx, rt); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	host := rt.Module(rtabi.RuntimeModule)
	if host == nil {
		t.Fatal("runtime module not instantiated")
	}
	defs := host.ExportedFunctionDefinitions()
	for _, e := range rtabi.Entries() {
		if _, ok := defs[e.Name()]; !ok {
			t.Errorf("missing export %s", e.Name())
		}
	}
	if _, ok := defs[rtabi.ListWalkBackwardsUntil.Name()]; ok {
		t.Error("unavailable entry should not be exported")
	}
	if rt.Module(rtabi.AllocatorModule) == nil {
		t.Error("allocator module not instantiated")
	}
}

func TestAlloc(t *testing.T) {
	r, m := guest(t, 1)

	a := r.Alloc(m, 3, 1)
	if a != heapBase {
		t.Errorf("first allocation at %d, want heap base %d", a, heapBase)
	}
	b := r.Alloc(m, 8, 8)
	if b%8 != 0 || b < a+3 {
		t.Errorf("aligned allocation at %d", b)
	}
	c := r.Alloc(m, 0, 4)
	d := r.Alloc(m, 0, 4)
	if c == d {
		t.Error("zero-sized allocations share an address")
	}

	r.Dealloc(a, 1)
	r.Dealloc(a, 1)
	r.Dealloc(12345, 1)
	st := r.Stats()
	if st.Allocs != 4 || st.Frees != 1 || st.BadFrees != 2 {
		t.Errorf("stats = %+v", st)
	}
	if r.Live() != 3 || r.IsLive(a) || !r.IsLive(b) {
		t.Errorf("live = %d", r.Live())
	}
}

func TestAllocGrowsMemory(t *testing.T) {
	r, m := guest(t, 1)
	p := r.Alloc(m, 3*pageSize, 8)
	if m.Memory().Size() < p+3*pageSize {
		t.Fatalf("memory size %d does not cover allocation at %d", m.Memory().Size(), p)
	}
	write(m, p+3*pageSize-1, []byte{1})
}

func TestNewList(t *testing.T) {
	r, m := guest(t, 1)

	v := r.I64List(m, 5, -1, 7)
	ptr, n := Unpack(v)
	if n != 3 || ptr == 0 {
		t.Fatalf("list = (%d, %d)", ptr, n)
	}
	if ptr%8 != 0 {
		t.Errorf("data pointer %d not aligned", ptr)
	}
	if got := Refcount(m, ptr); got != 1 {
		t.Errorf("refcount = %d, want 1", got)
	}
	got := ReadI64s(m, v)
	want := []int64{5, -1, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("elements = %v, want %v", got, want)
		}
	}

	if empty := r.NewList(m, 8, 8); empty != 0 {
		t.Errorf("empty list = %#x, want 0", empty)
	}
}

func TestPackUnpack(t *testing.T) {
	v := Pack(0x1234, 7)
	if v != 0x0000000700001234 {
		t.Errorf("Pack = %#x", v)
	}
	p, n := Unpack(v)
	if p != 0x1234 || n != 7 {
		t.Errorf("Unpack = (%#x, %d)", p, n)
	}
	if !bytes.Equal(Elem(v), []byte{0x34, 0x12, 0, 0, 7, 0, 0, 0}) {
		t.Errorf("Elem = % x", Elem(v))
	}
}

func TestNewBox(t *testing.T) {
	r, m := guest(t, 1)
	b := r.NewBox(m, 8, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	if b%8 != 0 {
		t.Errorf("box pointer %d not aligned", b)
	}
	if Refcount(m, b) != 1 {
		t.Errorf("refcount = %d", Refcount(m, b))
	}
	SetRefcount(m, b, 3)
	if Refcount(m, b) != 3 {
		t.Errorf("refcount = %d after set", Refcount(m, b))
	}
	if !r.IsLive(b - 8) {
		t.Error("box allocation should start one header before the data")
	}
}

func TestIntCodec(t *testing.T) {
	tests := []struct {
		name   string
		v      uint64
		size   uint32
		signed bool
		want   []byte
	}{
		{"u8", 200, 1, false, []byte{200}},
		{"i16 negative", uint64(0xfffffffffffffffe), 2, true, []byte{0xfe, 0xff}},
		{"i128 negative", uint64(0xffffffffffffffff), 16, true, bytes.Repeat([]byte{0xff}, 16)},
		{"u128", 1, 16, false, append([]byte{1}, make([]byte, 15)...)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := encodeInt(tc.v, tc.size, tc.signed); !bytes.Equal(got, tc.want) {
				t.Errorf("encodeInt = % x, want % x", got, tc.want)
			}
		})
	}

	_, m := guest(t, 1)
	write(m, 100, []byte{0xfe})
	if got := readInt(m, 100, 1, true); int64(got) != -2 {
		t.Errorf("readInt signed = %d, want -2", int64(got))
	}
	if got := readInt(m, 100, 1, false); got != 0xfe {
		t.Errorf("readInt unsigned = %d, want 254", got)
	}
}

func TestCallDecodesI32Results(t *testing.T) {
	r, mod := guestWith(t, 1, func(m *wasm.Module) {
		i32 := []api.ValueType{api.ValueTypeI32}
		i64 := []api.ValueType{api.ValueTypeI64}

		neg := m.AddFunc("neg32", wasm.FuncType{Results: i32})
		m.SetBody(neg, nil, []byte{wasm.OpI32Const, 0x7F, wasm.OpEnd})
		m.Export(rtabi.FuncPointerName(1), wasm.KindFunc, neg)

		wide := m.AddFunc("neg64", wasm.FuncType{Results: i64})
		m.SetBody(wide, nil, []byte{wasm.OpI64Const, 0x7F, wasm.OpEnd})
		m.Export(rtabi.FuncPointerName(2), wasm.KindFunc, wide)
	})
	ctx := context.Background()

	if got := r.call(ctx, mod, 1); got != 0xFFFF_FFFF {
		t.Errorf("i32 result = %#x, want 0xffffffff", got)
	}
	if got := r.call(ctx, mod, 2); got != 0xFFFF_FFFF_FFFF_FFFF {
		t.Errorf("i64 result = %#x, want all ones", got)
	}
}
