package layout

// Stride returns the distance in bytes between consecutive elements.
func Stride(l Layout) uint32 {
	return AlignTo(l.Size(), l.Align())
}

// Equal reports whether two layouts describe the same shape.
func Equal(a, b Layout) bool {
	return a.Key() == b.Key()
}

// SafeToMemcpy reports whether a raw byte copy of a value duplicates it
// correctly. Values that own heap memory are not safe to copy.
func SafeToMemcpy(l Layout) bool {
	switch t := l.(type) {
	case Scalar, Pointer, EmptyList:
		return true
	case List, Boxed:
		return false
	case Struct:
		for _, f := range t.Fields {
			if !SafeToMemcpy(f) {
				return false
			}
		}
		return true
	case Union:
		for _, p := range t.Payloads {
			if !SafeToMemcpy(p) {
				return false
			}
		}
		return true
	}
	return false
}

// IsRefcounted reports whether a value of l carries reference counts that
// must be incremented when the value is duplicated.
func IsRefcounted(l Layout) bool {
	switch t := l.(type) {
	case List:
		return t.Mode == Refcounted
	case Boxed:
		return t.Mode == Refcounted
	case Struct:
		for _, f := range t.Fields {
			if IsRefcounted(f) {
				return true
			}
		}
	case Union:
		for _, p := range t.Payloads {
			if IsRefcounted(p) {
				return true
			}
		}
	}
	return false
}

// OwnsHeap reports whether dropping a value of l must release memory.
// Unique lists and boxes own memory without being refcounted.
func OwnsHeap(l Layout) bool {
	switch t := l.(type) {
	case List, Boxed:
		return true
	case Struct:
		for _, f := range t.Fields {
			if OwnsHeap(f) {
				return true
			}
		}
	case Union:
		for _, p := range t.Payloads {
			if OwnsHeap(p) {
				return true
			}
		}
	}
	return false
}

// ElemOf returns the element layout of a list layout.
func ElemOf(l Layout) (Layout, bool) {
	if t, ok := l.(List); ok {
		return t.Elem, true
	}
	return nil, false
}

// IsListOfLists reports whether l is a list whose elements are lists,
// including lists of statically empty lists.
func IsListOfLists(l Layout) bool {
	t, ok := l.(List)
	if !ok {
		return false
	}
	switch t.Elem.(type) {
	case List, EmptyList:
		return true
	}
	return false
}

// IsListLike reports whether l is a List or an EmptyList.
func IsListLike(l Layout) bool {
	switch l.(type) {
	case List, EmptyList:
		return true
	}
	return false
}
