/**
 * @description
 * Tagged error type for caller-facing failures. Every rejected operation
 * carries a Kind that determines the transport-level status and a
 * human-readable message that is surfaced to the caller verbatim. Failure
 * paths are explicit values rather than panics or leaked storage errors.
 */

package domain

import "errors"

// Kind classifies a caller-facing failure.
type Kind int

const (
	// KindUnknown marks errors that did not originate from domain rules.
	KindUnknown Kind = iota
	// KindValidationFailed is malformed or missing input (400-equivalent).
	KindValidationFailed
	// KindNotFound is a referenced entity that does not exist (404-equivalent).
	KindNotFound
	// KindBusinessRuleViolation is valid input rejected by domain policy (409-equivalent).
	KindBusinessRuleViolation
	// KindConflict is a data conflict such as a uniqueness or concurrency clash (409-equivalent).
	KindConflict
)

// Error is the tagged failure value returned by the core operations.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// ValidationFailed builds a KindValidationFailed error.
func ValidationFailed(message string) *Error {
	return &Error{Kind: KindValidationFailed, Message: message}
}

// NotFound builds a KindNotFound error.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// BusinessRuleViolation builds a KindBusinessRuleViolation error.
func BusinessRuleViolation(message string) *Error {
	return &Error{Kind: KindBusinessRuleViolation, Message: message}
}

// Conflict builds a KindConflict error.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// KindOf extracts the Kind from err, unwrapping as needed. Errors that are not
// domain errors report KindUnknown.
func KindOf(err error) Kind {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return KindUnknown
}
