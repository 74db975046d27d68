// Package memerr defines the coded error taxonomy shared by the store,
// index, composer and HTTP surface.
package memerr

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers that need to distinguish
// "retry later" from "this request is invalid".
type Code string

const (
	CodeNotFound              Code = "NOT_FOUND"
	CodeValidationFailed      Code = "VALIDATION_FAILED"
	CodeInvalidTransition     Code = "INVALID_TRANSITION"
	CodeDependencyUnavailable Code = "DEPENDENCY_UNAVAILABLE"
	CodePolicyRejected        Code = "POLICY_REJECTED"
	CodeQuotaExceeded         Code = "QUOTA_EXCEEDED"
)

// Error is a coded error with an optional wrapped cause.
type Error struct {
	Code    Code
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

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a coded error wrapping a cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// NotFound reports an unknown id or an owner mismatch. Owner mismatches are
// indistinguishable from missing records so ids never leak across tenants.
func NotFound(what, id string) *Error {
	return Newf(CodeNotFound, "%s not found: %s", what, id)
}

// Validation reports a malformed record or request.
func Validation(message string) *Error {
	return New(CodeValidationFailed, message)
}

// InvalidTransition reports an illegal tier change.
func InvalidTransition(from, to string) *Error {
	return Newf(CodeInvalidTransition, "illegal tier transition %s -> %s", from, to)
}

// Unavailable reports a downstream dependency failure.
func Unavailable(dep string, err error) *Error {
	return Wrap(CodeDependencyUnavailable, dep+" unavailable", err)
}

// PolicyRejected reports content the external validator marked invalid.
func PolicyRejected(id string) *Error {
	return Newf(CodePolicyRejected, "memory %s failed policy validation", id)
}

// QuotaExceeded reports an owner over their storage quota.
func QuotaExceeded(message string) *Error {
	return New(CodeQuotaExceeded, message)
}

// CodeOf returns the code of err if it is (or wraps) a coded error,
// or an empty Code otherwise.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is predicates for the common branches.

func IsNotFound(err error) bool          { return CodeOf(err) == CodeNotFound }
func IsValidation(err error) bool        { return CodeOf(err) == CodeValidationFailed }
func IsInvalidTransition(err error) bool { return CodeOf(err) == CodeInvalidTransition }
func IsUnavailable(err error) bool       { return CodeOf(err) == CodeDependencyUnavailable }
func IsPolicyRejected(err error) bool    { return CodeOf(err) == CodePolicyRejected }
func IsQuotaExceeded(err error) bool     { return CodeOf(err) == CodeQuotaExceeded }
