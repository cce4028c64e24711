// Package apperr defines the error taxonomy shared by the ingestion and export paths.
// Errors carry a Kind; errors.Is matches on Kind so callers can compare against the
// package sentinels without caring about the message.
package apperr

import (
	"errors"
	"net/http"
	"strings"
)

// Kind classifies an error for callers and for the HTTP status mapping.
type Kind string

const (
	KindProtocolVersion  Kind = "protocol_version"
	KindAuthentication   Kind = "authentication"
	KindValidation       Kind = "validation"
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindStoreUnavailable Kind = "store_unavailable"
	KindInconsistent     Kind = "inconsistent"
	KindForbidden        Kind = "forbidden"
)

// Error is the domain error type.
type Error struct {
	Kind    Kind
	Message string
	// Fields names the offending fields for validation errors (e.g. "records[2].client_time").
	Fields []string
	Cause  error
}

// Sentinels for errors.Is comparisons.
var (
	ErrProtocolVersion  = &Error{Kind: KindProtocolVersion, Message: "unsupported protocol version"}
	ErrAuthentication   = &Error{Kind: KindAuthentication, Message: "authentication failed"}
	ErrValidation       = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrNotFound         = &Error{Kind: KindNotFound, Message: "not found"}
	ErrConflict         = &Error{Kind: KindConflict, Message: "conflict"}
	ErrStoreUnavailable = &Error{Kind: KindStoreUnavailable, Message: "store unavailable"}
	ErrInconsistent     = &Error{Kind: KindInconsistent, Message: "inconsistent stored data"}
	ErrForbidden        = &Error{Kind: KindForbidden, Message: "forbidden"}
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if len(e.Fields) > 0 {
		msg += ": " + strings.Join(e.Fields, ", ")
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// New returns an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap returns an error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Validation returns a validation error naming the missing or malformed fields.
func Validation(message string, fields ...string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// HTTPStatus maps err to the response status code. Unclassified errors are 500.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindProtocolVersion, KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
