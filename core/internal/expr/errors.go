package expr

import (
	"fmt"
)

// SyntaxError is a malformed expression
type SyntaxError struct {
	Pos int
	Msg string
}

func newSyntaxError(pos int, format string, args ...interface{}) *SyntaxError {
	return &SyntaxError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at position %d: %s", e.Pos, e.Msg)
}

// CompileError is a well formed expression that cannot be lowered to SQL,
// for example a reference to an unknown column
type CompileError struct {
	Expr string
	Msg  string
	Err  error
}

func (e *CompileError) Error() string {
	msg := e.Msg
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Expr != "" {
		return fmt.Sprintf("cannot compile expression %q: %s", e.Expr, msg)
	}
	return "cannot compile expression: " + msg
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// SecurityError is returned when an expression calls a function outside the
// allow-list. It must reach the caller unchanged.
type SecurityError struct {
	Function string
}

func (e *SecurityError) Error() string {
	return "function not allowed in calculated field expression: " + e.Function
}
