package hostrt

import (
	"context"
	"encoding/binary"
	"slices"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/listgen/rtabi"
)

const listSize = 8

func (r *Runtime) handlers() map[rtabi.Entry]api.GoModuleFunc {
	return map[rtabi.Entry]api.GoModuleFunc{
		rtabi.ListSingle:        r.single,
		rtabi.ListRepeat:        r.repeat,
		rtabi.ListJoin:          r.join,
		rtabi.ListReverse:       r.reverse,
		rtabi.ListAppend:        r.append,
		rtabi.ListDrop:          r.drop,
		rtabi.ListSet:           r.set,
		rtabi.ListContains:      r.contains,
		rtabi.ListKeepIf:        r.keepIf,
		rtabi.ListKeepOks:       r.keepResult(rtabi.ListKeepOks),
		rtabi.ListKeepErrs:      r.keepResult(rtabi.ListKeepErrs),
		rtabi.ListSortWith:      r.sortWith,
		rtabi.ListMapWithIndex:  r.mapWithIndex,
		rtabi.ListMap:           r.mapOne,
		rtabi.ListMap2:          r.map2,
		rtabi.ListMap3:          r.map3,
		rtabi.ListConcat:        r.concat,
		rtabi.ListWalk:          r.walk(false),
		rtabi.ListWalkBackwards: r.walk(true),
		rtabi.ListWalkUntil:     r.walkUntil,
		rtabi.ListRange:         r.listRange,
	}
}

func u32(v uint64) uint32 { return uint32(v) }

// callback arguments start at index i: caller, data, inc_n_data, owned.
func callback(stack []uint64, i int) (caller, data uint32) {
	return u32(stack[i]), u32(stack[i+1])
}

func (r *Runtime) single(_ context.Context, m api.Module, stack []uint64) {
	align, elem, width := u32(stack[0]), u32(stack[1]), u32(stack[2])
	out := r.allocList(m, align, width, 1)
	copyMem(m, out, elem, width)
	stack[0] = Pack(out, 1)
}

func (r *Runtime) repeat(ctx context.Context, m api.Module, stack []uint64) {
	count, align, elem, width, incN := u32(stack[0]), u32(stack[1]), u32(stack[2]), u32(stack[3]), u32(stack[4])
	out := r.allocList(m, align, width, count)
	b := read(m, elem, width)
	for i := range count {
		write(m, out+i*width, b)
	}
	if count > 0 {
		r.call(ctx, m, incN, uint64(elem), uint64(count))
	}
	stack[0] = Pack(out, count)
}

func (r *Runtime) join(_ context.Context, m api.Module, stack []uint64) {
	ptr, n := Unpack(stack[0])
	align, width := u32(stack[1]), u32(stack[2])

	inner := make([]uint64, n)
	total := uint32(0)
	for i := range n {
		inner[i] = binary.LittleEndian.Uint64(read(m, ptr+i*listSize, listSize))
		_, l := Unpack(inner[i])
		total += l
	}
	out := r.allocList(m, align, width, total)
	off := out
	for _, v := range inner {
		p, l := Unpack(v)
		copyMem(m, off, p, l*width)
		off += l * width
	}
	stack[0] = Pack(out, total)
}

func (r *Runtime) reverse(_ context.Context, m api.Module, stack []uint64) {
	ptr, n := Unpack(stack[0])
	align, width := u32(stack[1]), u32(stack[2])
	out := r.allocList(m, align, width, n)
	for i := range n {
		copyMem(m, out+(n-1-i)*width, ptr+i*width, width)
	}
	stack[0] = Pack(out, n)
}

func (r *Runtime) append(_ context.Context, m api.Module, stack []uint64) {
	ptr, n := Unpack(stack[0])
	align, elem, width := u32(stack[1]), u32(stack[2]), u32(stack[3])
	out := r.allocList(m, align, width, n+1)
	copyMem(m, out, ptr, n*width)
	copyMem(m, out+n*width, elem, width)
	stack[0] = Pack(out, n+1)
}

func (r *Runtime) drop(ctx context.Context, m api.Module, stack []uint64) {
	ptr, n := Unpack(stack[0])
	align, width, count, dec := u32(stack[1]), u32(stack[2]), u32(stack[3]), u32(stack[4])
	k := min(count, n)
	for i := range k {
		r.call(ctx, m, dec, uint64(ptr+i*width))
	}
	out := r.allocList(m, align, width, n-k)
	copyMem(m, out, ptr+k*width, (n-k)*width)
	stack[0] = Pack(out, n-k)
}

func (r *Runtime) set(ctx context.Context, m api.Module, stack []uint64) {
	bytes, length, align, index := u32(stack[0]), u32(stack[1]), u32(stack[2]), u32(stack[3])
	elem, width, dec := u32(stack[4]), u32(stack[5]), u32(stack[6])
	if index >= length {
		// elem was borrowed for the store that never happens
		r.call(ctx, m, dec, uint64(elem))
		stack[0] = uint64(bytes)
		return
	}
	target := bytes
	if Refcount(m, bytes) == rtabi.RefcountOne {
		r.call(ctx, m, dec, uint64(bytes+index*width))
	} else {
		target = r.allocList(m, align, width, length)
		copyMem(m, target, bytes, length*width)
	}
	copyMem(m, target+index*width, elem, width)
	stack[0] = uint64(target)
}

func (r *Runtime) contains(ctx context.Context, m api.Module, stack []uint64) {
	ptr, n := Unpack(stack[0])
	elem, width, eq := u32(stack[1]), u32(stack[2]), u32(stack[3])
	stack[0] = 0
	for i := range n {
		if r.call(ctx, m, eq, uint64(elem), uint64(ptr+i*width)) != 0 {
			stack[0] = 1
			return
		}
	}
}

func (r *Runtime) keepIf(ctx context.Context, m api.Module, stack []uint64) {
	ptr, n := Unpack(stack[0])
	caller, data := callback(stack, 1)
	align, width, inc := u32(stack[5]), u32(stack[6]), u32(stack[7])

	flag := r.scratch(m, 4)
	defer r.Dealloc(flag, 16)
	var kept []uint32
	for i := range n {
		e := ptr + i*width
		r.call(ctx, m, caller, uint64(data), uint64(e), uint64(flag))
		if read(m, flag, 1)[0] != 0 {
			kept = append(kept, e)
		}
	}
	out := r.allocList(m, align, width, uint32(len(kept)))
	for j, e := range kept {
		copyMem(m, out+uint32(j)*width, e, width)
		r.call(ctx, m, inc, uint64(e))
	}
	stack[0] = Pack(out, uint32(len(kept)))
}

func (r *Runtime) keepResult(e rtabi.Entry) api.GoModuleFunc {
	keep := byte(1)
	if e == rtabi.ListKeepErrs {
		keep = 0
	}
	return func(ctx context.Context, m api.Module, stack []uint64) {
		ptr, n := Unpack(stack[0])
		caller, data := callback(stack, 1)
		align, before, result, after, dec := u32(stack[5]), u32(stack[6]), u32(stack[7]), u32(stack[8]), u32(stack[9])

		res := r.scratch(m, result)
		defer r.Dealloc(res, 16)
		var kept [][]byte
		for i := range n {
			r.call(ctx, m, caller, uint64(data), uint64(ptr+i*before), uint64(res))
			b := read(m, res, result)
			if b[result-1] == keep {
				kept = append(kept, b[:after])
				continue
			}
			r.call(ctx, m, dec, uint64(res))
		}
		out := r.allocList(m, align, after, uint32(len(kept)))
		for j, b := range kept {
			write(m, out+uint32(j)*after, b)
		}
		stack[0] = Pack(out, uint32(len(kept)))
	}
}

func (r *Runtime) sortWith(ctx context.Context, m api.Module, stack []uint64) {
	ptr, n := Unpack(stack[0])
	compare, data := u32(stack[1]), u32(stack[2])
	align, width := u32(stack[5]), u32(stack[6])

	order := make([]uint32, n)
	for i := range order {
		order[i] = uint32(i)
	}
	slices.SortStableFunc(order, func(a, b uint32) int {
		switch rtabi.Ordering(r.call(ctx, m, compare, uint64(data), uint64(ptr+a*width), uint64(ptr+b*width))) {
		case rtabi.LT:
			return -1
		case rtabi.GT:
			return 1
		}
		return 0
	})
	out := r.allocList(m, align, width, n)
	for j, i := range order {
		copyMem(m, out+uint32(j)*width, ptr+i*width, width)
	}
	stack[0] = Pack(out, n)
}

func (r *Runtime) mapOne(ctx context.Context, m api.Module, stack []uint64) {
	ptr, n := Unpack(stack[0])
	caller, data := callback(stack, 1)
	align, oldWidth, newWidth := u32(stack[5]), u32(stack[6]), u32(stack[7])
	out := r.allocList(m, align, newWidth, n)
	for i := range n {
		r.call(ctx, m, caller, uint64(data), uint64(ptr+i*oldWidth), uint64(out+i*newWidth))
	}
	stack[0] = Pack(out, n)
}

func (r *Runtime) mapWithIndex(ctx context.Context, m api.Module, stack []uint64) {
	ptr, n := Unpack(stack[0])
	caller, data := callback(stack, 1)
	align, oldWidth, newWidth := u32(stack[5]), u32(stack[6]), u32(stack[7])
	idx := r.scratch(m, 4)
	defer r.Dealloc(idx, 16)
	out := r.allocList(m, align, newWidth, n)
	for i := range n {
		writeU32(m, idx, i)
		r.call(ctx, m, caller, uint64(data), uint64(idx), uint64(ptr+i*oldWidth), uint64(out+i*newWidth))
	}
	stack[0] = Pack(out, n)
}

func (r *Runtime) map2(ctx context.Context, m api.Module, stack []uint64) {
	p1, n1 := Unpack(stack[0])
	p2, n2 := Unpack(stack[1])
	caller, data := callback(stack, 2)
	align, w1, w2, wr := u32(stack[6]), u32(stack[7]), u32(stack[8]), u32(stack[9])
	n := min(n1, n2)
	out := r.allocList(m, align, wr, n)
	for i := range n {
		r.call(ctx, m, caller, uint64(data), uint64(p1+i*w1), uint64(p2+i*w2), uint64(out+i*wr))
	}
	stack[0] = Pack(out, n)
}

func (r *Runtime) map3(ctx context.Context, m api.Module, stack []uint64) {
	p1, n1 := Unpack(stack[0])
	p2, n2 := Unpack(stack[1])
	p3, n3 := Unpack(stack[2])
	caller, data := callback(stack, 3)
	align, w1, w2, w3, wr := u32(stack[7]), u32(stack[8]), u32(stack[9]), u32(stack[10]), u32(stack[11])
	n := min(n1, n2, n3)
	out := r.allocList(m, align, wr, n)
	for i := range n {
		r.call(ctx, m, caller, uint64(data), uint64(p1+i*w1), uint64(p2+i*w2), uint64(p3+i*w3), uint64(out+i*wr))
	}
	stack[0] = Pack(out, n)
}

func (r *Runtime) concat(_ context.Context, m api.Module, stack []uint64) {
	p1, n1 := Unpack(stack[0])
	p2, n2 := Unpack(stack[1])
	align, width := u32(stack[2]), u32(stack[3])
	out := r.allocList(m, align, width, n1+n2)
	copyMem(m, out, p1, n1*width)
	copyMem(m, out+n1*width, p2, n2*width)
	stack[0] = Pack(out, n1+n2)
}

func (r *Runtime) walk(backwards bool) api.GoModuleFunc {
	return func(ctx context.Context, m api.Module, stack []uint64) {
		ptr, n := Unpack(stack[0])
		caller, data := callback(stack, 1)
		def, elemWidth, accWidth, result := u32(stack[5]), u32(stack[7]), u32(stack[8]), u32(stack[9])

		a, b := r.scratch(m, accWidth), r.scratch(m, accWidth)
		defer r.Dealloc(a, 16)
		defer r.Dealloc(b, 16)
		copyMem(m, a, def, accWidth)
		for j := range n {
			i := j
			if backwards {
				i = n - 1 - j
			}
			r.call(ctx, m, caller, uint64(data), uint64(ptr+i*elemWidth), uint64(a), uint64(b))
			copyMem(m, a, b, accWidth)
		}
		copyMem(m, result, a, accWidth)
	}
}

func (r *Runtime) walkUntil(ctx context.Context, m api.Module, stack []uint64) {
	ptr, n := Unpack(stack[0])
	caller, data := callback(stack, 1)
	def, elemWidth, accWidth, result := u32(stack[5]), u32(stack[7]), u32(stack[8]), u32(stack[10])

	acc, step := r.scratch(m, accWidth), r.scratch(m, accWidth+16)
	defer r.Dealloc(acc, 16)
	defer r.Dealloc(step, 16)
	copyMem(m, acc, def, accWidth)
	for i := range n {
		r.call(ctx, m, caller, uint64(data), uint64(ptr+i*elemWidth), uint64(acc), uint64(step))
		copyMem(m, acc, step, accWidth)
		if read(m, step+accWidth, 1)[0] == rtabi.Stop {
			break
		}
	}
	copyMem(m, result, acc, accWidth)
}

func (r *Runtime) listRange(_ context.Context, m api.Module, stack []uint64) {
	w := rtabi.IntWidth(u32(stack[0]))
	size, signed := w.Bytes(), w.Signed()
	lo := readInt(m, u32(stack[1]), size, signed)
	hi := readInt(m, u32(stack[2]), size, signed)

	var count uint64
	if signed && int64(hi) > int64(lo) {
		count = uint64(int64(hi) - int64(lo))
	} else if !signed && hi > lo {
		count = hi - lo
	}
	out := r.allocList(m, size, size, uint32(count))
	for i := range uint32(count) {
		write(m, out+i*size, encodeInt(lo+uint64(i), size, signed))
	}
	stack[0] = Pack(out, uint32(count))
}

// readInt reads an integer of size bytes. Only the low 64 bits of 128-bit
// integers are used.
func readInt(m api.Module, off, size uint32, signed bool) uint64 {
	b := read(m, off, min(size, 8))
	var buf [8]byte
	copy(buf[:], b)
	v := binary.LittleEndian.Uint64(buf[:])
	if signed && size < 8 {
		shift := 64 - 8*size
		v = uint64(int64(v<<shift) >> shift)
	}
	return v
}

func encodeInt(v uint64, size uint32, signed bool) []byte {
	out := make([]byte, size)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	copy(out, buf[:])
	if size == 16 && signed && int64(v) < 0 {
		for i := 8; i < 16; i++ {
			out[i] = 0xff
		}
	}
	return out
}
