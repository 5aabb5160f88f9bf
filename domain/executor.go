package domain

import "runtime/debug"

// Execute runs fn and converts a panic into a *PanicError carrying the stack
// trace. Errors returned by fn are passed through unchanged.
func Execute(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}
