package custom_error

import "fmt"

// ValidationError reports malformed or missing caller input. It is never
// retried and maps to HTTP 400.
type ValidationError struct {
	message string
}

func (e *ValidationError) Error() string {
	return e.message
}

func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{message: fmt.Sprintf(format, args...)}
}

// InvalidStateError reports an operation attempted against an issuance
// that is not in the required status.
type InvalidStateError struct {
	message string
}

func (e *InvalidStateError) Error() string {
	return e.message
}

func NewInvalidStateError(format string, args ...interface{}) *InvalidStateError {
	return &InvalidStateError{message: fmt.Sprintf(format, args...)}
}

// CapacityUnavailableError reports that a tool or kit had no availability
// left when an approval tried to reserve it. ResourceType is "tool" or
// "kit", ResourceID the offending row.
type CapacityUnavailableError struct {
	ResourceType string
	ResourceID   int
}

func (e *CapacityUnavailableError) Error() string {
	return fmt.Sprintf("%s %d is not available", e.ResourceType, e.ResourceID)
}

func NewCapacityUnavailableError(resourceType string, resourceID int) *CapacityUnavailableError {
	return &CapacityUnavailableError{ResourceType: resourceType, ResourceID: resourceID}
}

// NotFoundError reports that a referenced issuance, tool or kit id does
// not resolve.
type NotFoundError struct {
	ResourceType string
	ResourceID   int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: id=%d", e.ResourceType, e.ResourceID)
}

func NewNotFoundError(resourceType string, resourceID int) *NotFoundError {
	return &NotFoundError{ResourceType: resourceType, ResourceID: resourceID}
}
