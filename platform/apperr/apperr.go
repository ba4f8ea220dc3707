// Package apperr carries an HTTP-facing classification alongside domain
// errors. Services wrap domain sentinels with a Kind; httpkit turns the Kind
// into a status code. The wrapped cause stays visible to errors.Is.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for transport mapping.
type Kind string

const (
	KindUnknown   Kind = ""
	KindNotFound  Kind = "not_found"
	KindInvalid   Kind = "invalid"
	KindConflict  Kind = "conflict"
	KindForbidden Kind = "forbidden"
	// KindUnprocessable is a well-formed request the business rules refuse.
	KindUnprocessable Kind = "unprocessable"
	KindInternal      Kind = "internal"
)

var statusByKind = map[Kind]int{
	KindNotFound:      http.StatusNotFound,
	KindInvalid:       http.StatusBadRequest,
	KindConflict:      http.StatusConflict,
	KindForbidden:     http.StatusForbidden,
	KindUnprocessable: http.StatusUnprocessableEntity,
	KindInternal:      http.StatusInternalServerError,
}

// Error is a classified error. Message is safe to show to API clients; Err
// is not.
type Error struct {
	Kind    Kind
	Message string
	Err     error
	Details any
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the Kind; unclassified errors are a 500.
func (e *Error) HTTPStatus() int {
	if status, ok := statusByKind[e.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap classifies cause under kind with a client-facing message.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func NotFound(message string) *Error { return New(KindNotFound, message) }

func Conflict(message string) *Error { return New(KindConflict, message) }

func Internal(message string) *Error { return New(KindInternal, message) }

// As returns the outermost *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// GetKind returns the Kind of the outermost *Error in err's chain, or
// KindUnknown.
func GetKind(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}
