package core

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/expr"
	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/qcode"
	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/sdata"
)

type (
	SecurityError = expr.SecurityError
	SyntaxError   = expr.SyntaxError
	CompileError  = expr.CompileError
	NotFoundError = sdata.NotFoundError
)

var (
	ErrDuplicateAlias = qcode.ErrDuplicateAlias
	ErrJoinNotFound   = qcode.ErrJoinNotFound
	ErrNotFound       = sdata.ErrNotFound
	ErrNoColumns      = errors.New("no columns to select")
)

// ConfigError is an invalid calculated field definition
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "invalid calculated field: " + e.Msg
	}
	return fmt.Sprintf("invalid calculated field %s: %s", e.Field, e.Msg)
}

// RequestError is a malformed query request, for example a range condition
// whose value is not a list
type RequestError struct {
	Field string
	Msg   string
}

func (e *RequestError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Msg
	}
	return fmt.Sprintf("invalid request field %s: %s", e.Field, e.Msg)
}

// IsSecurityError reports whether err is a rejected function call in a
// calculated field
func IsSecurityError(err error) bool {
	var se *SecurityError
	return errors.As(err, &se)
}

// wrapf adds context to err. Security errors are returned as they are.
func wrapf(err error, format string, args ...interface{}) error {
	if err == nil || IsSecurityError(err) {
		return err
	}
	return errors.Wrapf(err, format, args...)
}
