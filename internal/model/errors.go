package model

import "errors"

// Kind classifies an error for the purpose of API-boundary status mapping
// (see spec §7). Only invalid_input, not_found and conflict ever cross the
// HTTP boundary as an error response; deadline_exceeded and
// upstream_unavailable are always recovered locally by the turn
// orchestrator before a response is written, and cancelled turns emit no
// response at all.
type Kind string

const (
	KindInvalidInput        Kind = "invalid_input"
	KindNotFound            Kind = "not_found"
	KindConflict            Kind = "conflict"
	KindDeadlineExceeded    Kind = "deadline_exceeded"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindCancelled           Kind = "cancelled"
	KindFatal               Kind = "fatal"
)

// Error wraps a Kind with a message and optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds an *Error of the given kind.
func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from err, defaulting to "" if err is not (or
// does not wrap) a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

var (
	ErrSessionNotFound  = NewError(KindNotFound, "session not found", nil)
	ErrScenarioNotFound = NewError(KindNotFound, "scenario not found", nil)
	ErrNodeNotFound     = NewError(KindNotFound, "node not found", nil)
	ErrSessionConflict  = NewError(KindConflict, "session already active for candidate", nil)
	ErrCancelled        = NewError(KindCancelled, "turn superseded", nil)
)
