package shared

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a DomainError so callers can branch with errors.Is
// without depending on individual codes.
type ErrorKind string

const (
	KindValidation        ErrorKind = "VALIDATION"
	KindInvalidState      ErrorKind = "INVALID_STATE"
	KindInvalidTransition ErrorKind = "INVALID_TRANSITION"
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindConflict          ErrorKind = "CONFLICT"
	KindDuplicate         ErrorKind = "DUPLICATE"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Kind    ErrorKind         `json:"kind"`
	Details map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches on Kind, so every validation error satisfies errors.Is(err, ErrValidation).
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Kind == e.Kind
}

// WithDetail returns a copy of the error with an extra detail attached.
func (e *DomainError) WithDetail(key, value string) *DomainError {
	details := make(map[string]string, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{Code: e.Code, Message: e.Message, Kind: e.Kind, Details: details}
}

// NewDomainError creates a new domain error of kind INVALID_STATE, the most
// common failure of aggregate methods.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Kind:    KindInvalidState,
	}
}

// NewValidationError reports malformed or out-of-range input.
func NewValidationError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: KindValidation}
}

// NewInvalidStateError reports an operation attempted in a status that forbids it.
func NewInvalidStateError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: KindInvalidState}
}

// NewInvalidTransitionError reports a status change absent from a transition table.
func NewInvalidTransitionError(entity string, from, to fmt.Stringer) *DomainError {
	return &DomainError{
		Code:    "INVALID_TRANSITION",
		Message: fmt.Sprintf("Cannot transition %s from %s to %s", entity, from, to),
		Kind:    KindInvalidTransition,
		Details: map[string]string{"from": from.String(), "to": to.String()},
	}
}

// Sentinel errors, usable with errors.Is
var (
	ErrValidation          = &DomainError{Code: string(KindValidation), Message: "Validation failed", Kind: KindValidation}
	ErrInvalidState        = &DomainError{Code: string(KindInvalidState), Message: "Operation not allowed in current state", Kind: KindInvalidState}
	ErrInvalidTransition   = &DomainError{Code: string(KindInvalidTransition), Message: "Status transition not allowed", Kind: KindInvalidTransition}
	ErrNotFound            = &DomainError{Code: string(KindNotFound), Message: "Resource not found", Kind: KindNotFound}
	ErrConcurrencyConflict = &DomainError{Code: "CONCURRENCY_CONFLICT", Message: "Resource was modified by another process", Kind: KindConflict}
	ErrDuplicate           = &DomainError{Code: string(KindDuplicate), Message: "Resource already exists", Kind: KindDuplicate}
)

// IsKind reports whether err is a DomainError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}
