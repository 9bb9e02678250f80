package accounts

import (
	"errors"
	"fmt"
)

// Error codes shared by all services. HTTP and gRPC adapters map these to
// their transport's status space.
const (
	// ErrCodeValidation - malformed input (bad email shape, secret too short, missing field)
	ErrCodeValidation = "validation_error"

	// ErrCodeConflict - a username/email uniqueness invariant would be violated
	ErrCodeConflict = "conflict"

	// ErrCodeNotFound - no account with the given identifier
	ErrCodeNotFound = "not_found"

	// ErrCodeAuthFailed - bad credentials; deliberately covers both unknown
	// username and wrong secret so callers cannot probe account existence
	ErrCodeAuthFailed = "auth_failed"

	// ErrCodeExternalService - an identity provider was unreachable, returned
	// a non-2xx status, or sent a payload we could not parse
	ErrCodeExternalService = "external_service"

	// ErrCodeInvalidToken - the provider itself reported the supplied token
	// as invalid or expired
	ErrCodeInvalidToken = "invalid_token"
)

// Error is a typed error with a stable code and an optional field hint
// for client-side form handling.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError creates a typed error with the given code, message and field
func NewError(code, message, field string) *Error {
	return &Error{Code: code, Message: message, Field: field}
}

// WrapError creates a typed error that carries an underlying cause
func WrapError(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or anything it wraps) is an *Error with the
// given code.
func HasCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

func IsValidation(err error) bool   { return HasCode(err, ErrCodeValidation) }
func IsConflict(err error) bool     { return HasCode(err, ErrCodeConflict) }
func IsNotFound(err error) bool     { return HasCode(err, ErrCodeNotFound) }
func IsAuthFailed(err error) bool   { return HasCode(err, ErrCodeAuthFailed) }
func IsExternal(err error) bool     { return HasCode(err, ErrCodeExternalService) }
func IsInvalidToken(err error) bool { return HasCode(err, ErrCodeInvalidToken) }
