// Package errors provides structured error types for the list lowering library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// Lowering errors carry the operation being lowered and the offending layout.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseLower, errors.KindInvariant).
//		Op("List.contains").
//		Layout(elem).
//		Detail("element layout has no equality").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Invariant("List.map", l, "expected a list, got %s", got)
//	err := errors.Unimplemented("List.walkBackwardsUntil", nil, "no runtime entry")
//
// Lowering has no recoverable failures. Fatal panics with an *Error and
// Recover, deferred at the compilation-unit boundary, turns it back into
// an error value. All errors implement the standard error interface and
// support errors.Is/As.
package errors
