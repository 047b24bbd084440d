package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure the way the lifecycle controllers report it:
// terminal lookup misses, transport failures the user may retry, violated
// preconditions with actionable messages, and compiler-side failures.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindConnectivity
	KindPrecondition
	KindConflict
	KindCompilation
)

type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Connectivity(message string, cause error) *Error {
	return &Error{Kind: KindConnectivity, Message: message, Cause: cause}
}

func Precondition(message string) *Error {
	return &Error{Kind: KindPrecondition, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func Compilation(message string, cause error) *Error {
	return &Error{Kind: KindCompilation, Message: message, Cause: cause}
}

// KindOf extracts the classification from err, walking the wrap chain.
// Errors that never passed through this package report KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}
