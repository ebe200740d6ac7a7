// Package apperr defines the typed error kinds the scheduling core and
// its HTTP transport share, per the error handling policy table.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport-layer status mapping. The core
// packages never import net/http; they return a Kind and let the HTTP
// layer do the mapping in one place.
type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindNotFound   Kind = "not_found"
	KindForbidden  Kind = "forbidden"
	KindAuth       Kind = "auth"
	KindStore      Kind = "store"
)

// Error is the typed error value propagated from the core to the
// transport layer. Conflict errors carry the conflicting session's
// local-time window per spec.
type Error struct {
	Kind    Kind
	Message string
	// Window is set only for KindConflict errors, describing the
	// conflicting session's local-time window (e.g. "14:00-15:30").
	Window string
	err    error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.err }

func new(kind Kind, msg string, wrapped error) *Error {
	return &Error{Kind: kind, Message: msg, err: wrapped}
}

func Validation(msg string) *Error          { return new(KindValidation, msg, nil) }
func Validationf(format string, a ...any) *Error {
	return new(KindValidation, fmt.Sprintf(format, a...), nil)
}

func NotFound(msg string) *Error { return new(KindNotFound, msg, nil) }

func Forbidden(msg string) *Error { return new(KindForbidden, msg, nil) }

func Auth(msg string) *Error { return new(KindAuth, msg, nil) }

func Store(msg string, wrapped error) *Error { return new(KindStore, msg, wrapped) }

// Conflict builds a 409 error carrying the conflicting session's
// human-readable local-time window.
func Conflict(msg, window string) *Error {
	e := new(KindConflict, msg, nil)
	e.Window = window
	return e
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
