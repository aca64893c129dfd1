package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed operation so transport layers can map it
// to a response code and callers can branch without string matching.
type ErrorKind string

const (
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindConflict          ErrorKind = "CONFLICT"
	KindForbidden         ErrorKind = "FORBIDDEN"
	KindInvalid           ErrorKind = "INVALID"
	KindGeofenceViolation ErrorKind = "GEOFENCE_VIOLATION"
)

// Error is the tagged error returned by every lifecycle and ledger
// operation. The message is user-visible; Conflict and GeofenceViolation
// messages must state the specific reason, not a generic failure.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func NotFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Forbiddenf(format string, args ...any) error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func Invalidf(format string, args ...any) error {
	return &Error{Kind: KindInvalid, Message: fmt.Sprintf(format, args...)}
}

func GeofenceViolationf(format string, args ...any) error {
	return &Error{Kind: KindGeofenceViolation, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a tagged error, or "" for untagged errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }
func IsConflict(err error) bool { return KindOf(err) == KindConflict }
