// Package layout describes the memory shape of list elements.
//
// A Layout is a closed variant: Scalar, Pointer, Struct, Boxed, List,
// EmptyList and Union. Everything the lowering core needs to know about an
// element is derived from it: size, alignment, stride, whether a raw byte
// copy is safe, whether the value owns refcounted heap memory, and how a
// list-of-lists should be recognized.
//
// Layouts are immutable. Two layouts describe the same shape when their
// keys are equal:
//
//	a := layout.NewList(layout.U8)
//	b := layout.NewList(layout.U8)
//	a.Key() == b.Key() // true
//
// FromWIT converts WIT types into layouts, so element shapes can be
// written as WIT type expressions by tools and tests.
package layout
