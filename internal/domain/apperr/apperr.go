// Package apperr classifies domain failures into the kinds callers can act on.
package apperr

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Kind enumerates the caller-recoverable failure classes.
type Kind int

const (
	// KindUnknown marks an unclassified fault (storage failure, broken invariant).
	KindUnknown Kind = iota
	// KindNotFound means the referenced entity does not exist or is not visible to the caller.
	KindNotFound
	// KindBadRequest means a business rule rejected the request.
	KindBadRequest
	// KindUnauthorized means the caller's role or ownership does not permit the operation.
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// Error is a classified domain error carrying a message safe to show to the caller.
type Error struct {
	Kind    Kind
	Message string
	// Cause is an optional underlying sentinel, reachable via errors.Is.
	Cause error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NotFound returns a KindNotFound error.
func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// BadRequest returns a KindBadRequest error.
func BadRequest(format string, args ...any) error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized returns a KindUnauthorized error.
func Unauthorized(format string, args ...any) error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

// WithCause attaches a sentinel cause to a classified error.
func WithCause(kind Kind, cause error, msg string) error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// KindOf reports the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Message returns the caller-facing message of a classified error, or "" for unknown faults.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}
