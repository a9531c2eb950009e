package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches domain errors by code and message so wrapped copies compare
// equal to the package sentinels.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeUnavailable   = "UNAVAILABLE"
	ErrCodeCanceled      = "CANCELED"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrEmptyUtterance = NewDomainError(ErrCodeValidation, "utterance cannot be empty")
	ErrEmptyQuery     = NewDomainError(ErrCodeValidation, "query cannot be empty")
	ErrEmptyDocument  = NewDomainError(ErrCodeValidation, "document has no extractable text")
	ErrUnsupportedDoc = NewDomainError(ErrCodeValidation, "unsupported document format")
)

// Not found errors
var (
	ErrSessionNotFound = NewDomainError(ErrCodeNotFound, "session not found")
	ErrIndexNotFound   = NewDomainError(ErrCodeNotFound, "index not found")
)

// Conflict errors
var (
	ErrEmbeddingMismatch = NewDomainError(ErrCodeConflict, "embedding function does not match index")
	ErrSessionClosed     = NewDomainError(ErrCodeConflict, "session is closed")
)

// Availability errors
var (
	ErrNotConfigured = NewDomainError(ErrCodeUnavailable, "component not configured")
	ErrTurnAbandoned = NewDomainError(ErrCodeCanceled, "turn abandoned before injection")
)
