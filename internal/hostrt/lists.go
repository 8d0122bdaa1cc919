package hostrt

import (
	"encoding/binary"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/listgen/rtabi"
)

// Pack returns the boundary form of a list: ptr in the low 32 bits and
// the length in the high 32 bits.
func Pack(ptr, n uint32) uint64 {
	return uint64(ptr) | uint64(n)<<32
}

// Unpack splits a boundary list into pointer and length.
func Unpack(v uint64) (ptr, n uint32) {
	return uint32(v), uint32(v >> 32)
}

// Elem returns the in-memory bytes of a list stored as an element.
func Elem(v uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, v)
}

// NewList allocates a list with a count of one holding elems, each
// width bytes long.
func (r *Runtime) NewList(m api.Module, align, width uint32, elems ...[]byte) uint64 {
	n := uint32(len(elems))
	out := r.allocList(m, align, width, n)
	for i, e := range elems {
		write(m, out+uint32(i)*width, e)
	}
	return Pack(out, n)
}

// NewBox allocates a box with a count of one holding content.
func (r *Runtime) NewBox(m api.Module, align uint32, content []byte) uint32 {
	extra := max(rtabi.HeaderSize, align)
	raw := r.Alloc(m, extra+uint32(len(content)), extra)
	writeU32(m, raw+extra-rtabi.HeaderSize, rtabi.RefcountOne)
	write(m, raw+extra, content)
	return raw + extra
}

// ReadList returns copies of the elements of a list.
func ReadList(m api.Module, v uint64, width uint32) [][]byte {
	ptr, n := Unpack(v)
	out := make([][]byte, n)
	for i := range n {
		out[i] = read(m, ptr+i*width, width)
	}
	return out
}

// Refcount returns the header word of the buffer whose data starts at
// ptr.
func Refcount(m api.Module, ptr uint32) int32 {
	return int32(readU32(m, ptr-rtabi.HeaderSize))
}

// SetRefcount overwrites the header word of a buffer.
func SetRefcount(m api.Module, ptr uint32, count int32) {
	writeU32(m, ptr-rtabi.HeaderSize, uint32(count))
}

// Bytes returns a copy of n bytes of guest memory at off.
func Bytes(m api.Module, off, n uint32) []byte {
	return read(m, off, n)
}

// I64 encodes values as 8-byte little-endian elements.
func I64(vs ...int64) [][]byte {
	out := make([][]byte, len(vs))
	for i, v := range vs {
		out[i] = binary.LittleEndian.AppendUint64(nil, uint64(v))
	}
	return out
}

// Int64s decodes 8-byte little-endian elements.
func Int64s(elems [][]byte) []int64 {
	out := make([]int64, len(elems))
	for i, e := range elems {
		out[i] = int64(binary.LittleEndian.Uint64(e))
	}
	return out
}

// I64List allocates a list of i64 values.
func (r *Runtime) I64List(m api.Module, vs ...int64) uint64 {
	return r.NewList(m, 8, 8, I64(vs...)...)
}

// ReadI64s reads a list of i64 values.
func ReadI64s(m api.Module, v uint64) []int64 {
	return Int64s(ReadList(m, v, 8))
}
