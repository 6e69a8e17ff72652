// Package codecerr defines the closed set of error kinds codec engines
// surface to callers, mirroring the WebCodecs error taxonomy without
// depending on any particular host runtime.
package codecerr

import (
	"errors"
	"fmt"
)

// Kind identifies which spec-defined error category an Error belongs to.
type Kind string

const (
	KindTypeError           Kind = "TypeError"
	KindRangeError          Kind = "RangeError"
	KindInvalidStateError   Kind = "InvalidStateError"
	KindDataError           Kind = "DataError"
	KindNotSupportedError   Kind = "NotSupportedError"
	KindEncodingError       Kind = "EncodingError"
	KindAbortError          Kind = "AbortError"
	KindQuotaExceededError  Kind = "QuotaExceededError"
)

// Sentinel base errors, wrapped with context via New/Wrap. Callers can
// errors.Is against these regardless of message text.
var (
	ErrClosed         = errors.New("codec is closed")
	ErrNotConfigured  = errors.New("codec is not configured")
	ErrKeyChunkNeeded = errors.New("key chunk required")
	ErrAborted        = errors.New("operation aborted")
	ErrQuotaExceeded  = errors.New("codec reclaimed: quota exceeded")
)

// Error is the concrete error type returned/delivered by this module.
// It always carries a Kind so callers can branch on category the way a
// WebCodecs host branches on DOMException name.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error of the given kind with a message and no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given kind around an existing error, so
// errors.Is(err, ErrClosed) keeps working after this function wraps it.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind of err if it (or something it wraps) is an
// *Error, and ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
