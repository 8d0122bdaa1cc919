package errors

import "go.uber.org/zap"

// Fatal aborts lowering of the current compilation unit.
func Fatal(err *Error) {
	Logger().Debug("fatal error",
		zap.String("phase", string(err.Phase)),
		zap.String("kind", string(err.Kind)),
		zap.String("op", err.Op),
		zap.String("layout", err.Layout))
	panic(err)
}

// Recover converts a panic raised by Fatal into an error. Any other panic
// is re-raised. Use it deferred at the compilation-unit boundary:
//
//	func compile() (err error) {
//		defer errors.Recover(&err)
//		...
//	}
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if e, ok := r.(*Error); ok {
		*errp = e
		return
	}
	panic(r)
}

// Catch runs fn and returns the fatal error it raised, if any.
func Catch(fn func()) (err error) {
	defer Recover(&err)
	fn()
	return nil
}
