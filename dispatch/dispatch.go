// Package dispatch routes XML-RPC calls to registered service methods.
package dispatch

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Dispatcher turns the body of an XML-RPC request into the body of its response.
//
// The returned payload may itself be an XML-RPC fault document. An error means
// no response document could be produced at all; such errors are *InternalError
// values.
type Dispatcher interface {
	Dispatch(ctx context.Context, path string, body []byte) ([]byte, error)
}

// InternalError describes a dispatch which failed without producing a response
// document
type InternalError struct {
	// Err is the cause
	Err error

	// Stack is a human readable stack trace of where the failure happened
	Stack string
}

// stackTracer is implemented by errors created with github.com/pkg/errors
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// NewInternalError wraps err, recording a stack trace if err does not carry one
func NewInternalError(err error) *InternalError {
	return &InternalError{
		Err:   err,
		Stack: Traceback(err),
	}
}

// Error implements error
func (e *InternalError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the cause
func (e *InternalError) Unwrap() error {
	return e.Err
}

// Traceback formats the stack trace carried by err. Errors without one get the
// stack of the caller.
func Traceback(err error) string {
	var internal *InternalError
	if errors.As(err, &internal) {
		return internal.Stack
	}

	if _, ok := err.(stackTracer); !ok {
		err = errors.WithStack(err)
	}
	return fmt.Sprintf("%+v", err)
}
