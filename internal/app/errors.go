package service

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to callers. Anything else is internal.
var (
	ErrBadRequest = errors.New("bad request")
	ErrForbidden  = errors.New("forbidden")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

// InternalMessage is the only text callers see for internal failures.
const InternalMessage = "Internal server error"

// Error carries a caller-facing message with its kind and the failing operation.
type Error struct {
	Op      string
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	var out []error
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewKind builds a caller-facing error of kind.
func NewKind(op string, kind error, msg string) error {
	return &Error{Op: op, Kind: kind, Message: msg}
}

// WrapKind builds a caller-facing error of kind that keeps err as its cause.
func WrapKind(op string, kind error, msg string, err error) error {
	return &Error{Op: op, Kind: kind, Message: msg, Err: err}
}

// Wrap marks err as an internal failure of op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// Message returns the text a caller may see for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != nil && e.Message != "" {
		return e.Message
	}
	return InternalMessage
}

// IsInternal reports whether err has no caller-facing kind.
func IsInternal(err error) bool {
	for _, k := range []error{ErrBadRequest, ErrForbidden, ErrNotFound, ErrConflict} {
		if errors.Is(err, k) {
			return false
		}
	}
	return true
}
