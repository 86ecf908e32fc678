package runtime

import (
	"fmt"

	"github.com/remexlang/remex/pkg/ast"
)

// Error is a runtime defect: an operator type mismatch, a path
// failure, or a function execution failure. Uncaught, it terminates
// the remainder of the program.
type Error struct {
	Message string
	Span    *ast.Span
}

func (e *Error) Error() string {
	return e.Message
}

func errorf(span ast.Span, format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Span: &span}
}

// Abort is intentional early termination requested by the program,
// optionally carrying a caller message. It shares the unwinding
// mechanism with Error but is not a defect and is not caught by
// fallible assignment.
type Abort struct {
	Message string
	Span    *ast.Span
}

func (a *Abort) Error() string {
	if a.Message == "" {
		return "aborted"
	}
	return "aborted: " + a.Message
}

// IsTerminate reports whether err is a termination signal from an
// evaluation, either an Abort or a runtime Error.
func IsTerminate(err error) bool {
	switch err.(type) {
	case *Error, *Abort:
		return true
	}
	return false
}
