// Package validate marks errors the caller can fix by changing the request.
// Services return them for bad input; HTTP handlers map them to 400 while
// anything unrecognized becomes a generic 500.
package validate

import "fmt"

// Error carries a message that is safe to show to the API caller.
type Error struct {
	msg string
}

func (e *Error) Error() string { return e.msg }

// Errorf builds a validation error.
func Errorf(format string, args ...interface{}) error {
	return &Error{msg: fmt.Sprintf(format, args...)}
}
