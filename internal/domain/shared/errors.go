package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes used across the reconciliation engine. Every rejected operation
// carries the specific invariant that failed so the caller can surface it
// without guessing (amount vs. balance, terminal state, currency).
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeCurrencyMismatch  = "CURRENCY_MISMATCH"
	CodeExceedsBalance    = "EXCEEDS_BALANCE"
	CodeInvalidState      = "INVALID_STATE"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeStaleBalance      = "STALE_BALANCE"
	CodeNotFound          = "NOT_FOUND"
	CodeAlreadyExists     = "ALREADY_EXISTS"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput        = NewDomainError(CodeValidation, "Invalid input provided")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrInvalidTransition   = NewDomainError(CodeInvalidTransition, "Transition not defined for current state")
	ErrStaleBalance        = NewDomainError(CodeStaleBalance, "Balance changed since it was last read, re-fetch and retry")
	ErrConcurrencyConflict = NewDomainError(CodeStaleBalance, "Resource was modified by another process")
)

// NewValidationError creates a validation error with a specific message
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidation, message)
}

// NewCurrencyMismatchError creates a currency mismatch validation error
func NewCurrencyMismatchError(message string) *DomainError {
	return NewDomainError(CodeCurrencyMismatch, message)
}

// IsCode reports whether err is (or wraps) a DomainError carrying the given code
func IsCode(err error, code string) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Code == code
}
