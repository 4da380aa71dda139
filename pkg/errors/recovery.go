package errors

import (
	"fmt"
	"runtime/debug"
)

// PanicError is produced when Recover intercepts a panic inside a fit or
// transform call. It keeps the panic value and the goroutine stack.
type PanicError struct {
	PanicValue interface{}
	StackTrace string
	Operation  string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
}

// NewPanicError captures the current stack for the given operation.
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
		Operation:  operation,
	}
}

// Recover converts a panic into an error assigned to *err. Use it with defer
// in functions that have a named error result:
//
//	func (r *Regressor) Fit(X, y mat.Matrix) (err error) {
//	    defer errors.Recover(&err, "Regressor.Fit")
//	    ...
//	}
//
// When *err is already set the panic is reported alongside it.
func Recover(err *error, operation string) {
	r := recover()
	if r == nil {
		return
	}
	if *err != nil {
		*err = fmt.Errorf("panic in %s: %v (original error: %w)", operation, r, *err)
		return
	}
	*err = NewPanicError(operation, r)
}
