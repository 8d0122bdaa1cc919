package rtabi

import (
	"strconv"

	"github.com/tetratelabs/wazero/api"
)

// Import module names.
const (
	RuntimeModule   = "roc_builtins"
	AllocatorModule = "env"

	AllocName   = "roc_alloc"
	DeallocName = "roc_dealloc"
)

// Export names shared by generated modules and host runtimes.
const (
	MemoryExport       = "memory"
	StackPointerExport = "__stack_pointer"
	HeapBaseExport     = "__heap_base"
	FuncPointerPrefix  = "__fnptr_"
)

// FuncPointerName returns the export name of a function table slot.
func FuncPointerName(slot uint32) string {
	return FuncPointerPrefix + strconv.FormatUint(uint64(slot), 10)
}

// HeaderSize is the size of the refcount word stored before list data.
const HeaderSize = 4

// RefcountOne is the header value of a freshly allocated buffer.
const RefcountOne = 1

// ParamKind classifies a runtime parameter.
type ParamKind uint8

const (
	None ParamKind = iota
	List
	Ptr
	Usize
	FnPtr
	Bool
)

var paramKindNames = [...]string{
	None:  "none",
	List:  "list",
	Ptr:   "ptr",
	Usize: "usize",
	FnPtr: "fnptr",
	Bool:  "bool",
}

func (k ParamKind) String() string {
	if int(k) < len(paramKindNames) {
		return paramKindNames[k]
	}
	return "unknown"
}

// ValueType returns the wasm type a parameter of kind k travels as.
func (k ParamKind) ValueType() api.ValueType {
	if k == List {
		return api.ValueTypeI64
	}
	return api.ValueTypeI32
}

// Param is one named runtime parameter.
type Param struct {
	Name string
	Kind ParamKind
}

// Signature is the parameter list and result of a runtime entry.
type Signature struct {
	Params []Param
	Result ParamKind
}

// ParamTypes returns the wasm parameter types.
func (s Signature) ParamTypes() []api.ValueType {
	types := make([]api.ValueType, len(s.Params))
	for i, p := range s.Params {
		types[i] = p.Kind.ValueType()
	}
	return types
}

// ResultTypes returns the wasm result types, empty for entries that
// write their result through an out pointer.
func (s Signature) ResultTypes() []api.ValueType {
	if s.Result == None {
		return nil
	}
	return []api.ValueType{s.Result.ValueType()}
}

// Index returns the position of the named parameter, or -1.
func (s Signature) Index(name string) int {
	for i, p := range s.Params {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// IntWidth identifies the integer type of a range. The numbering is part
// of the runtime ABI.
type IntWidth uint32

const (
	U8 IntWidth = iota
	U16
	U32
	U64
	U128
	I8
	I16
	I32
	I64
	I128
	UsizeWidth
)

// Bytes returns the storage width of w on wasm32.
func (w IntWidth) Bytes() uint32 {
	switch w {
	case U8, I8:
		return 1
	case U16, I16:
		return 2
	case U32, I32, UsizeWidth:
		return 4
	case U64, I64:
		return 8
	case U128, I128:
		return 16
	}
	return 0
}

// Signed reports whether w is a signed integer type.
func (w IntWidth) Signed() bool {
	return w >= I8 && w <= I128
}

// IntWidthFor returns the width code of an integer of the given size.
func IntWidthFor(bytes uint32, signed bool) (IntWidth, bool) {
	for w := U8; w <= I128; w++ {
		if w.Bytes() == bytes && w.Signed() == signed {
			return w, true
		}
	}
	return 0, false
}

// Ordering is the result of a compare callback. Tags are numbered in
// alphabetical order of their names.
type Ordering uint32

const (
	EQ Ordering = iota
	GT
	LT
)

func (o Ordering) String() string {
	switch o {
	case EQ:
		return "EQ"
	case GT:
		return "GT"
	case LT:
		return "LT"
	}
	return "Ordering(?)"
}

// Step tags of a walk-until callback result.
const (
	Continue uint8 = 0
	Stop     uint8 = 1
)
