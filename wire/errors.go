package wire

import (
	"errors"
	"fmt"
	"strings"
)

// Error categories. Every error returned by this module matches exactly one
// of them under errors.Is.
var (
	// ErrSyntax reports malformed wire input. It aborts a decode.
	ErrSyntax = errors.New("wire: malformed input")
	// ErrRange reports a value that does not fit its declared type. It aborts an encode.
	ErrRange = errors.New("wire: value out of range")
	// ErrMissingRequired reports a legacy required field left unset after decode.
	ErrMissingRequired = errors.New("wire: required field not set")
	// ErrSinkInactive reports a write through a Sink that is not the innermost
	// active one, e.g. an outer sink used while a submessage is being written.
	ErrSinkInactive = errors.New("wire: sink is not active")
)

// Structural errors.
var (
	ErrTruncated         = newError(ErrSyntax, "unexpected end of buffer")
	ErrTooLarge          = newError(ErrSyntax, "input exceeds 2 GiB limit")
	ErrFieldNumberZero   = newError(ErrSyntax, "field number zero is invalid")
	ErrGroupMismatch     = newError(ErrSyntax, "non-matching EGROUP")
	ErrUnterminatedGroup = newError(ErrSyntax, "unterminated SGROUP")
	ErrUnexpectedGroup   = newError(ErrSyntax, "unexpected SGROUP")
	ErrVarintOverflow    = newError(ErrSyntax, "varint too large")
	ErrVarintNonMinimal  = newError(ErrSyntax, "redundant leading zero in varint")
	ErrPackedOverflow    = newError(ErrSyntax, "overflow detected in packed field")
	ErrWireType          = newError(ErrSyntax, "unexpected wire type")
	ErrInvalidUTF8       = newError(ErrSyntax, "invalid UTF-8 encoding")
	ErrTooDeep           = newError(ErrSyntax, "exceeded maximum nesting depth")
)

// Encode-side value errors.
var (
	ErrInvalidString = newError(ErrRange, "string is not well-formed UTF-8")
	ErrInvalidNumber = newError(ErrRange, "invalid field number")
)

// Error is a specific failure that belongs to one of the category sentinels.
type Error struct {
	kind error
	msg  string
}

func newError(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string {
	return "wire: " + e.msg
}

// Unwrap returns the error category.
func (e *Error) Unwrap() error {
	return e.kind
}

// Errorf builds an error in the given category with a formatted message.
// A %w verb in format is honoured, so the result matches both kind and the
// wrapped error under errors.Is.
func Errorf(kind error, format string, args ...any) error {
	return &categorized{kind: kind, err: fmt.Errorf(format, args...)}
}

type categorized struct {
	kind error
	err  error
}

func (e *categorized) Error() string {
	return "wire: " + e.err.Error()
}

func (e *categorized) Unwrap() []error {
	return []error{e.kind, e.err}
}

// FieldError represents an encoding/decoding error with a field path.
type FieldError struct {
	FieldPath []string // e.g., ["outer", "inner", "leaf"]
	Err       error    // underlying error
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if len(e.FieldPath) == 0 {
		return e.Err.Error()
	}

	return fmt.Sprintf("error at proto path %s: %v", strings.Join(e.FieldPath, "."), e.Err)
}

// Unwrap returns the underlying error.
func (e *FieldError) Unwrap() error {
	return e.Err
}

// WrapField prefixes err's field path with fieldName. Nested wraps collapse
// into a single FieldError so the message names the path once.
func WrapField(err error, fieldName string) error {
	if err == nil {
		return nil
	}

	if fe, ok := err.(*FieldError); ok {
		return &FieldError{
			FieldPath: append([]string{fieldName}, fe.FieldPath...),
			Err:       fe.Err,
		}
	}

	return &FieldError{
		FieldPath: []string{fieldName},
		Err:       err,
	}
}
