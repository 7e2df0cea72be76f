package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/kbplatform/kb-orchestrator/services/store"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeValidation        ErrorType = "validation"
	ErrorTypePrecondition      ErrorType = "precondition"
	ErrorTypeAuthentication    ErrorType = "authentication"
	ErrorTypeNotFound          ErrorType = "not_found"
	ErrorTypeRemoteStore       ErrorType = "remote_store"
	ErrorTypeUnsupportedFormat ErrorType = "unsupported_format"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables

var (
	// Validation Errors
	ErrBlankIndexName = NewDomainError(ErrorTypeValidation, "index name cannot be blank", nil)
	ErrBlankFileName  = NewDomainError(ErrorTypeValidation, "file name cannot be blank", nil)
	ErrEmptyFileSet   = NewDomainError(ErrorTypeValidation, "at least one file id is required", nil)
	ErrEmptyQuery     = NewDomainError(ErrorTypeValidation, "query text cannot be empty", nil)
	ErrInvalidInput   = NewDomainError(ErrorTypeValidation, "invalid input", nil)

	// Precondition Errors
	ErrNotConfigured     = NewDomainError(ErrorTypePrecondition, "credentials not configured", nil)
	ErrAlreadyConfigured = NewDomainError(ErrorTypePrecondition, "credentials already configured for this session", nil)
	ErrNoIndexSelected   = NewDomainError(ErrorTypePrecondition, "no index selected", nil)

	// Authentication Errors
	ErrInvalidAPIKey = NewDomainError(ErrorTypeAuthentication, "API key rejected by remote store", nil)

	// Not Found Errors
	ErrIndexNotFound = NewDomainError(ErrorTypeNotFound, "index not found", nil)
	ErrFileNotFound  = NewDomainError(ErrorTypeNotFound, "file not found", nil)
	ErrBatchNotFound = NewDomainError(ErrorTypeNotFound, "batch not found", nil)

	// Remote Store Errors
	ErrRemoteStore = NewDomainError(ErrorTypeRemoteStore, "remote store operation failed", nil)

	// Format Errors
	ErrUnsupportedFormat = NewDomainError(ErrorTypeUnsupportedFormat, "file format not supported", nil)
)

// Error type checking helper functions

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeValidation
	}
	return false
}

// IsPreconditionError checks if an error is a precondition error
func IsPreconditionError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypePrecondition
	}
	return false
}

// IsAuthenticationError checks if an error is an authentication error
func IsAuthenticationError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeAuthentication
	}
	return false
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeNotFound
	}
	return false
}

// IsRemoteStoreError checks if an error is a remote store error
func IsRemoteStoreError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeRemoteStore
	}
	return false
}

// IsUnsupportedFormatError checks if an error is an unsupported format error
func IsUnsupportedFormatError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeUnsupportedFormat
	}
	return false
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapRemote wraps an error as a remote store error
func WrapRemote(message string, err error) error {
	return NewDomainError(ErrorTypeRemoteStore, message, err)
}

// FromStore translates a remote store client error into the domain taxonomy.
// HTTP 404 becomes a not-found error, 401/403 an authentication error, and
// everything else a remote store error. Non-store errors (network faults,
// context cancellation) are remote store errors too.
func FromStore(message string, err error) error {
	var storeErr *store.StoreError
	if errors.As(err, &storeErr) {
		switch storeErr.StatusCode {
		case http.StatusNotFound:
			return NewDomainError(ErrorTypeNotFound, message, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return NewDomainError(ErrorTypeAuthentication, message, err)
		}
	}
	return NewDomainError(ErrorTypeRemoteStore, message, err)
}
