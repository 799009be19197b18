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
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeUnsupported   = "UNSUPPORTED"
)

// Validation errors
var (
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidChunkConfig   = NewDomainError(ErrCodeValidation, "invalid chunk configuration")
)

// Pipeline stage errors
var (
	ErrDocumentLoad   = NewDomainError(ErrCodeInternalError, "failed to load document")
	ErrEmbedding      = NewDomainError(ErrCodeInternalError, "failed to generate embedding")
	ErrPersistence    = NewDomainError(ErrCodeInternalError, "failed to persist knowledge chunk")
	ErrDocumentAbsent = NewDomainError(ErrCodeNotFound, "document not found")
)

// Store errors
var (
	ErrTableNotFound    = NewDomainError(ErrCodeNotFound, "knowledge table does not exist")
	ErrPermissionDenied = NewDomainError(ErrCodeUnauthorized, "permission denied for knowledge table")
	ErrSearchNotSupport = NewDomainError(ErrCodeUnsupported, "similarity search requires the postgres store")
)
