// Package bverrors defines the error kind taxonomy the bridge transport maps
// to JSON error frames. Handlers return a *bverrors.Error (or a
// plain error, which the dispatcher reduces to KindInternal) rather than
// ad-hoc strings, so the transport layer never has to parse messages to
// decide what happened.
package bverrors

import (
	"errors"
	"fmt"
)

// Kind is a stable, coarse classification of a command failure.
type Kind string

const (
	KindInvalidRequest     Kind = "InvalidRequest"
	KindUnauthorized       Kind = "Unauthorized"
	KindBlocked            Kind = "Blocked"
	KindNotFound           Kind = "NotFound"
	KindInvalidArgument    Kind = "InvalidArgument"
	KindPreconditionFailed Kind = "PreconditionFailed"
	KindDaemonUnavailable  Kind = "DaemonUnavailable"
	KindIoError            Kind = "IoError"
	KindTimeout            Kind = "Timeout"
	KindCancelled          Kind = "Cancelled"
	KindInternal           Kind = "Internal"
)

// Error is a typed error carrying a stable Kind alongside a human-readable
// message and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error around an existing error.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// MissingParam is the canonical "Missing <param>" InvalidArgument error
// for a missing required argument.
func MissingParam(name string) *Error {
	return New(KindInvalidArgument, fmt.Sprintf("Missing %s", name))
}

// ParseParam is the canonical "Failed to parse <param>: ..." InvalidArgument
// for an argument that failed to parse.
func ParseParam(name string, cause error) *Error {
	return Wrap(KindInvalidArgument, fmt.Sprintf("Failed to parse %s", name), cause)
}

// AsKind extracts the Kind from err, falling back to KindInternal for any
// error the caller did not construct as a *Error. Handlers are expected to
// reduce errors they understand to a precise kind before returning;
// everything else surfaces as Internal per propagation rule.
func AsKind(err error) Kind {
	if err == nil {
		return ""
	}
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindInternal
}

// MessageOf extracts the human-readable Message from err without the
// "Kind: " prefix Error() adds, the same string the transport layer writes
// into a failure frame's error field. Errors not built through this package
// fall back to err.Error().
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var be *Error
	if errors.As(err, &be) {
		return be.Message
	}
	return err.Error()
}
