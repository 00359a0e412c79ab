// Package fault defines the error taxonomy shared by every chorebank
// component. Errors crossing a package boundary carry a machine-checkable
// Kind plus a display-ready message; nothing panics across the boundary.
package fault

import (
	"errors"
	"fmt"
)

type Kind string

const (
	// Validation covers bad input caught before any remote call: blank
	// titles, missing selections, negative amounts.
	Validation Kind = "validation"

	// NotFound means a user, task, or reward is absent. Surfaced as a
	// message, never fatal.
	NotFound Kind = "not_found"

	// Unauthorized means the wrong actor attempted an operation (role
	// mismatch, not the assignee, not the owner). No retry.
	Unauthorized Kind = "unauthorized"

	// InvalidTransition means a task state change was requested from a
	// state that does not permit it.
	InvalidTransition Kind = "invalid_transition"

	// InsufficientPoints means a redemption failed its admission check.
	// Retrying without a state change cannot succeed.
	InsufficientPoints Kind = "insufficient_points"

	// NoGuardianLinked means a dependent attempted to redeem without a
	// guardian assigned.
	NoGuardianLinked Kind = "no_guardian_linked"

	// Remote wraps a store or network failure. Status writes are safe to
	// retry; redemptions must re-run the full admission check instead.
	Remote Kind = "remote"
)

// Error is a tagged failure. Message is safe to show to the requester.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a tagged error with a display message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a tagged error with a formatted display message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags an underlying error, keeping it reachable through errors.Unwrap.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from an error chain. Untagged errors report Remote,
// since anything uncategorized reaching a caller came from a collaborator.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Remote
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf returns the display-ready message for an error chain. Untagged
// errors fall back to their plain Error string.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
