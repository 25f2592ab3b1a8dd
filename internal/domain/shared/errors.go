package shared

import "errors"

// DomainError represents a business-rule rejection that is safe to surface
// to the caller. Infrastructure failures are wrapped and passed through as
// plain errors instead.
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

// IsDomainError reports whether err is (or wraps) a DomainError and returns it.
func IsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Common domain errors
var (
	ErrNotFound              = NewDomainError("NOT_FOUND", "Resource not found")
	ErrDuplicateBatch        = NewDomainError("DUPLICATE_BATCH", "Batch number already exists")
	ErrDuplicateRequest      = NewDomainError("DUPLICATE_REQUEST", "Request with this idempotency key was already processed")
	ErrInsufficientInventory = NewDomainError("INSUFFICIENT_INVENTORY", "Insufficient inventory")
	ErrInsufficientBatchQty  = NewDomainError("INSUFFICIENT_BATCH_QUANTITY", "Insufficient batch quantity")
	ErrInsufficientAvailable = NewDomainError("INSUFFICIENT_AVAILABLE_QUANTITY", "Insufficient available quantity")
	ErrInvalidState          = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrValidationFailed      = NewDomainError("VALIDATION_FAILED", "Invalid input provided")
)
