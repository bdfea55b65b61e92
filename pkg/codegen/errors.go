package codegen

import (
	"errors"
	"fmt"
)

// ErrParamsRedefined is returned when a constructor's parameter list is
// declared again after it was fixed.
var ErrParamsRedefined = errors.New("codegen: constructor parameters cannot be redefined")

// WrongContextError reports an operation invoked while the current
// context is of the wrong kind. It signals a sequencing error in the
// caller and is never recovered from internally.
type WrongContextError struct {
	Op  string
	Got string
}

func (e *WrongContextError) Error() string {
	return fmt.Sprintf("codegen: %s called while the current context is a %s context", e.Op, e.Got)
}

// NotAnArgumentError reports a parameter-only accessor used with a local
// that is not a declared parameter.
type NotAnArgumentError struct {
	Name string
}

func (e *NotAnArgumentError) Error() string {
	return fmt.Sprintf("codegen: local %q is not an argument of the current method", e.Name)
}
