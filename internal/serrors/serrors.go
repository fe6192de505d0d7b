// Package serrors carries semantic error kinds through provider and engine
// code so failures can be classified without string matching.
package serrors

import (
	"errors"
	"fmt"
)

// Kind is a sentinel naming a category of failure.
type Kind interface {
	error
	isKind()
}

type kind struct{ s string }

func (k kind) Error() string { return k.s }
func (k kind) isKind()       {}

// NewKind creates a new semantic error kind.
func NewKind(name string) Kind { return kind{s: name} }

var (
	// ErrConfig means a provider is missing credentials or settings. It is
	// reported per request and never fatal.
	ErrConfig = NewKind("CONFIG")
	// ErrTimeout means the call hit its deadline.
	ErrTimeout = NewKind("TIMEOUT")
	// ErrUnavailable covers network failures and provider 5xx responses.
	ErrUnavailable = NewKind("UNAVAILABLE")
	// ErrRateLimited means the provider asked us to slow down.
	ErrRateLimited = NewKind("RATE_LIMITED")
	// ErrMalformed means the provider answered with a payload we could not decode.
	ErrMalformed = NewKind("MALFORMED")
	// ErrBadRequest means the provider rejected the request itself.
	ErrBadRequest = NewKind("BAD_REQUEST")
	// ErrNotFound means the provider has no data for the key.
	ErrNotFound = NewKind("NOT_FOUND")
	// ErrInternal is a defect on our side.
	ErrInternal = NewKind("INTERNAL")
)

// Error is a semantic error: a kind, an optional cause and a message.
//
// errors.Is matches both the kind and anything in the cause chain.
type Error struct {
	kind Kind
	err  error
	msg  string
}

// With builds an error of kind k with a formatted message.
func With(k Kind, msgFmt string, args ...any) *Error {
	return &Error{kind: k, msg: fmt.Sprintf(msgFmt, args...)}
}

// Wrap builds an error of kind k wrapping err.
func Wrap(k Kind, err error, msgFmt string, args ...any) *Error {
	return &Error{kind: k, err: err, msg: fmt.Sprintf(msgFmt, args...)}
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.msg != "" && e.err != nil:
		return e.msg + ": " + e.err.Error()
	case e.msg != "":
		return e.msg
	case e.err != nil:
		return e.err.Error()
	case e.kind != nil:
		return e.kind.Error()
	default:
		return "unknown error"
	}
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return e == nil && target == nil
	}
	if e.kind != nil && errors.Is(e.kind, target) {
		return true
	}
	return e.err != nil && errors.Is(e.err, target)
}

// Kind returns the semantic kind, or nil.
func (e *Error) Kind() Kind { return e.kind }

// KindOf returns the first semantic kind found in err's chain, or nil.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) && se.kind != nil {
		return se.kind
	}
	var k kind
	if errors.As(err, &k) {
		return k
	}
	return nil
}
