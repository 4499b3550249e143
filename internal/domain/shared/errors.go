package shared

import "errors"

// ErrorKind classifies a domain error for callers that need to react to the
// category of failure rather than the specific code.
type ErrorKind string

const (
	KindMissingReference   ErrorKind = "MISSING_REFERENCE"
	KindInvariantViolation ErrorKind = "INVARIANT_VIOLATION"
	KindStateConflict      ErrorKind = "STATE_CONFLICT"
	KindInvalidInput       ErrorKind = "INVALID_INPUT"
	KindInventoryShortfall ErrorKind = "INVENTORY_SHORTFALL"
	KindInternal           ErrorKind = "INTERNAL"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Kind    ErrorKind `json:"kind"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code, so a copy carrying a more specific
// message still satisfies errors.Is against the sentinel.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// WithMessage returns a copy of the error with a new message and the same code.
func (e *DomainError) WithMessage(message string) *DomainError {
	return &DomainError{Code: e.Code, Message: message, Kind: e.Kind}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Kind:    KindInternal,
	}
}

// NewKindedError creates a domain error tagged with an error kind
func NewKindedError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Kind:    kind,
	}
}

// KindOf returns the kind of the first DomainError in the chain, or
// KindInternal when err is not a domain error.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) && de.Kind != "" {
		return de.Kind
	}
	return KindInternal
}

// Common domain errors
var (
	ErrNotFound            = NewKindedError(KindMissingReference, "NOT_FOUND", "Resource not found")
	ErrInvalidInput        = NewKindedError(KindInvalidInput, "INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewKindedError(KindStateConflict, "CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewKindedError(KindStateConflict, "INVALID_STATE", "Operation not allowed in current state")
)
