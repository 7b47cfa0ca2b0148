package connector

import (
	"errors"
	"fmt"
)

// ErrorCategory categorizes errors for handling and reporting.
type ErrorCategory string

const (
	// ErrCategoryConnectivity indicates a token exchange or reachability failure.
	ErrCategoryConnectivity ErrorCategory = "connectivity"
	// ErrCategoryValidation indicates invalid input, configuration, or a missing precondition.
	ErrCategoryValidation ErrorCategory = "validation"
	// ErrCategoryUnsupported indicates an operation the connector does not implement.
	ErrCategoryUnsupported ErrorCategory = "unsupported"
	// ErrCategoryRemote indicates a non-success response from the remote provider.
	ErrCategoryRemote ErrorCategory = "remote"
	// ErrCategoryPagination indicates a listing that did not reach its declared total.
	ErrCategoryPagination ErrorCategory = "pagination"
	// ErrCategoryNotFound indicates a resource was not found.
	ErrCategoryNotFound ErrorCategory = "not_found"
	// ErrCategoryInternal indicates an internal error.
	ErrCategoryInternal ErrorCategory = "internal"
)

// ConnectorError is a structured error with category and context.
type ConnectorError struct {
	// Category classifies the error type.
	Category ErrorCategory

	// Message is a human-readable error message.
	Message string

	// Connector is the connector where the error occurred.
	Connector string

	// Operation is the operation that failed.
	Operation string

	// ResourceType is the type of resource involved.
	ResourceType string

	// ResourceID is the ID of the resource involved.
	ResourceID string

	// Cause is the underlying error.
	Cause error

	// Details contains additional error context.
	Details map[string]interface{}
}

// Error implements the error interface.
func (e *ConnectorError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Category, e.Message)
	if e.Connector != "" {
		msg = fmt.Sprintf("[%s:%s] %s", e.Connector, e.Category, e.Message)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ConnectorError) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error's category.
func (e *ConnectorError) Is(target error) bool {
	var cErr *ConnectorError
	if errors.As(target, &cErr) {
		return e.Category == cErr.Category
	}
	return false
}

// NewError creates a new ConnectorError.
func NewError(category ErrorCategory, message string) *ConnectorError {
	return &ConnectorError{
		Category: category,
		Message:  message,
		Details:  make(map[string]interface{}),
	}
}

// WithConnector sets the connector name.
func (e *ConnectorError) WithConnector(name string) *ConnectorError {
	e.Connector = name
	return e
}

// WithOperation sets the operation.
func (e *ConnectorError) WithOperation(op string) *ConnectorError {
	e.Operation = op
	return e
}

// WithResource sets the resource type and ID.
func (e *ConnectorError) WithResource(resourceType, resourceID string) *ConnectorError {
	e.ResourceType = resourceType
	e.ResourceID = resourceID
	return e
}

// WithCause sets the underlying error.
func (e *ConnectorError) WithCause(err error) *ConnectorError {
	e.Cause = err
	return e
}

// WithDetail adds a detail to the error.
func (e *ConnectorError) WithDetail(key string, value interface{}) *ConnectorError {
	e.Details[key] = value
	return e
}

// ErrConnectivity creates a connectivity error.
func ErrConnectivity(message string) *ConnectorError {
	return NewError(ErrCategoryConnectivity, message)
}

// ErrValidation creates a validation error.
func ErrValidation(message string) *ConnectorError {
	return NewError(ErrCategoryValidation, message)
}

// ErrUnsupported creates an unsupported-operation error.
func ErrUnsupported(message string) *ConnectorError {
	return NewError(ErrCategoryUnsupported, message)
}

// ErrRemote creates a remote rejection error.
func ErrRemote(message string) *ConnectorError {
	return NewError(ErrCategoryRemote, message)
}

// ErrPagination creates a pagination error.
func ErrPagination(message string) *ConnectorError {
	return NewError(ErrCategoryPagination, message)
}

// ErrNotFound creates a not found error.
func ErrNotFound(resourceType, resourceID string) *ConnectorError {
	return NewError(ErrCategoryNotFound, fmt.Sprintf("%s not found: %s", resourceType, resourceID)).
		WithResource(resourceType, resourceID)
}

// ErrInternal creates an internal error.
func ErrInternal(message string) *ConnectorError {
	return NewError(ErrCategoryInternal, message)
}

// IsCategory checks if an error is of a specific category.
func IsCategory(err error, category ErrorCategory) bool {
	var cErr *ConnectorError
	if errors.As(err, &cErr) {
		return cErr.Category == category
	}
	return false
}

// CategoryOf returns the category of the outermost ConnectorError in err's chain,
// or ErrCategoryInternal when there is none.
func CategoryOf(err error) ErrorCategory {
	var cErr *ConnectorError
	if errors.As(err, &cErr) {
		return cErr.Category
	}
	return ErrCategoryInternal
}
