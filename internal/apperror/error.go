package apperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the transport layer.
type Kind string

const (
	KindValidation   Kind = "validation"   // 400
	KindUnauthorized Kind = "unauthorized" // 401
	KindForbidden    Kind = "forbidden"    // 403
	KindNotFound     Kind = "not_found"    // 404
	KindConflict     Kind = "conflict"     // 409
	KindExternal     Kind = "external"     // 502
	KindTimeout      Kind = "timeout"      // 504
	KindInternal     Kind = "internal"     // 500
)

const internalMessage = "Internal server error"

// Error is an application error carrying a kind and a user-facing message.
type Error struct {
	Kind    Kind
	Message string
	Op      string
	Err     error

	// Fields holds per-field validation messages.
	Fields map[string]string
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		var inner *Error
		if errors.As(e.Err, &inner) && inner.Message == e.Message {
			return msg
		}
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind. Used for package-level sentinels.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Detail returns an error with a more specific message that still matches
// the sentinel through errors.Is.
func Detail(sentinel *Error, format string, args ...any) error {
	return &Error{
		Kind:    sentinel.Kind,
		Message: fmt.Sprintf(format, args...),
		Err:     sentinel,
	}
}

// Wrap attaches an operation and a kind to err. Nil stays nil and errors
// that already carry a kind keep it.
func Wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return &Error{Kind: e.Kind, Message: e.Message, Op: op, Err: err, Fields: e.Fields}
	}
	return &Error{Kind: KindOf(err), Message: internalMessage, Op: op, Err: err}
}

// Validation builds a field-level validation error.
func Validation(message string, fields map[string]string) error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// External marks a failure of a third-party dependency.
func External(op, message string, err error) error {
	kind := KindExternal
	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	return &Error{Kind: kind, Message: message, Op: op, Err: err}
}

// KindOf extracts the kind of err, defaulting to internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindInternal
}

// FieldsOf returns the validation fields attached to err, if any.
func FieldsOf(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

// Message returns the message safe to show to a client. Internal errors are
// hidden unless verbose is set.
func Message(err error, verbose bool) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	if verbose {
		return internalMessage + ": " + err.Error()
	}
	return internalMessage
}

// HTTPStatus maps an error to its response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindExternal:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
