package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseLayout  Phase = "layout"  // layout queries and conversion
	PhaseLower   Phase = "lower"   // list builtin lowering
	PhaseSynth   Phase = "synth"   // wrapper synthesis
	PhaseEncode  Phase = "encode"  // module encoding
	PhaseRuntime Phase = "runtime" // executing lowered code
	PhaseHost    Phase = "host"    // host runtime registration
	PhaseParse   Phase = "parse"   // CLI type expressions
)

// Kind categorizes the error
type Kind string

const (
	// KindInvariant marks a shape that an earlier compiler phase should
	// have made impossible. It always indicates a compiler defect.
	KindInvariant Kind = "invariant_violation"
	// KindUnimplemented marks a recognized combination that is not
	// supported yet. It is a known gap, not a defect.
	KindUnimplemented Kind = "unimplemented"

	KindTypeMismatch  Kind = "type_mismatch"
	KindOutOfBounds   Kind = "out_of_bounds"
	KindInvalidData   Kind = "invalid_data"
	KindAllocation    Kind = "allocation"
	KindNotFound      Kind = "not_found"
	KindNotFinished   Kind = "not_finished"
	KindInvalidInput  Kind = "invalid_input"
	KindRegistration  Kind = "registration"
	KindInstantiation Kind = "instantiation"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Op     string
	Layout string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Layout != "" {
		b.WriteString(": layout ")
		b.WriteString(e.Layout)
	}

	if e.Detail != "" {
		if e.Layout != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Internal reports whether the error is an internal compiler error, as
// opposed to a problem with user input.
func (e *Error) Internal() bool {
	return e.Kind == KindInvariant || e.Kind == KindUnimplemented
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Op sets the operation being lowered
func (b *Builder) Op(op string) *Builder {
	b.err.Op = op
	return b
}

// Layout sets the offending layout description
func (b *Builder) Layout(l fmt.Stringer) *Builder {
	if l != nil {
		b.err.Layout = l.String()
	}
	return b
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Invariant creates an internal invariant violation error
func Invariant(op string, l fmt.Stringer, detail string, args ...any) *Error {
	return New(PhaseLower, KindInvariant).Op(op).Layout(l).Detail(detail, args...).Build()
}

// Unimplemented creates an unimplemented-path error
func Unimplemented(op string, l fmt.Stringer, detail string, args ...any) *Error {
	return New(PhaseLower, KindUnimplemented).Op(op).Layout(l).Detail(detail, args...).Build()
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, op string, want, got string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Op:     op,
		Detail: fmt.Sprintf("want %s, got %s", want, got),
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// NotFinished reports a function whose body was never completed
func NotFinished(name string) *Error {
	return &Error{
		Phase:  PhaseEncode,
		Kind:   KindNotFinished,
		Detail: fmt.Sprintf("function %q has no finished body", name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Registration creates a registration error
func Registration(phase Phase, namespace, name string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s#%s", namespace, name),
		Cause:  cause,
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindInstantiation,
		Detail: "instantiate module",
		Cause:  cause,
	}
}

// ParseFailed creates a parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}
