// Package apperr defines the typed error taxonomy shared by the workflow core.
// The route layer maps kinds to HTTP statuses; the core never inspects codes.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the route-boundary mapping.
type Kind int

const (
	KindUnexpected Kind = iota
	KindDuplicateField
	KindNotFound
	KindPermissionDenied
	KindNotApproved
	KindValidation
)

// Error is a typed workflow error carrying a registry code and message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// DuplicateField reports an email/username/phone collision on create.
func DuplicateField(code, message string) *Error {
	return &Error{Kind: KindDuplicateField, Code: code, Message: message}
}

// NotFound reports a missing or soft-deleted entity or request.
func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

// PermissionDenied reports an actor lacking the required role tier.
func PermissionDenied(code, message string) *Error {
	return &Error{Kind: KindPermissionDenied, Code: code, Message: message}
}

// NotApproved reports an action that requires a prior approval.
func NotApproved(code, message string) *Error {
	return &Error{Kind: KindNotApproved, Code: code, Message: message}
}

// Validation reports malformed or missing input fields.
func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

// Unexpected wraps a store-level failure. It always triggers a full rollback.
func Unexpected(err error) *Error {
	return &Error{Kind: KindUnexpected, Code: "UNEXPECTED_ERROR", Message: "unexpected error", Err: err}
}

// KindOf returns the Kind of err, or KindUnexpected for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// CodeOf returns the registry code of err, or "UNEXPECTED_ERROR" for untyped errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "UNEXPECTED_ERROR"
}

// MessageOf returns the human-readable message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "unexpected error"
}
