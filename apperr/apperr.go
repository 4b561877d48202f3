// Package apperr defines the error kinds surfaced by templates, model clients and chains.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorCode string

const (
	CodeConfiguration   ErrorCode = "configuration"
	CodeMissingVariable ErrorCode = "missing_variable"
	CodeGeneration      ErrorCode = "generation"
)

// AppError carries a code so callers can branch with errors.Is against the
// sentinels below regardless of message or detail.
type AppError struct {
	Code    ErrorCode
	Message string
	Detail  string
	Err     error
}

func (e *AppError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Detail != "" {
		fmt.Fprintf(&b, " (%s)", e.Detail)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetail returns a copy with detail set.
func (e *AppError) WithDetail(detail string) *AppError {
	c := *e
	c.Detail = detail
	return &c
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// Configuration builds a configuration error with a formatted message.
func Configuration(format string, args ...any) *AppError {
	return New(CodeConfiguration, fmt.Sprintf(format, args...))
}

// Generation wraps a failed or unusable model call.
func Generation(err error, format string, args ...any) *AppError {
	return Wrap(err, CodeGeneration, fmt.Sprintf(format, args...))
}

var (
	ErrConfiguration   = New(CodeConfiguration, "invalid configuration")
	ErrMissingVariable = New(CodeMissingVariable, "missing template variable")
	ErrGeneration      = New(CodeGeneration, "generation failed")
)

// MissingVariableError lists every declared variable that had no value at render time.
type MissingVariableError struct {
	Variables []string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("[%s] missing value for template variable(s): %s",
		CodeMissingVariable, strings.Join(e.Variables, ", "))
}

func (e *MissingVariableError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == CodeMissingVariable
}

// CodeOf returns the code of the first AppError in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	var missing *MissingVariableError
	if errors.As(err, &missing) {
		return CodeMissingVariable
	}
	return ""
}
