// Package services provides the request pipelines behind the HTTP API.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/oneapi/pkg/graph"
	"github.com/dukex/oneapi/pkg/persistence"
)

// Client errors (4xx responses).
var (
	// ErrRequestMalformed marks missing or invalid top-level request fields.
	ErrRequestMalformed = errors.New("invalid request")

	// ErrFormatUnsupported marks a well-formed graph the operation cannot accept,
	// such as an interactive graph where a linear one is required.
	ErrFormatUnsupported = errors.New("unsupported workflow format")

	// ErrWorkflowDownload marks a remote workflow URL that could not be fetched.
	ErrWorkflowDownload = errors.New("failed to download workflow")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Detail returns the human-readable message of err, falling back to err.Error().
func Detail(err error) string {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) && serviceErr.Message != "" {
		return serviceErr.Message
	}

	return err.Error()
}

// IsRequestMalformed checks if an error is a request validation failure.
func IsRequestMalformed(err error) bool {
	return errors.Is(err, ErrRequestMalformed) || persistence.IsInvalidName(err)
}

// IsFormatUnsupported checks if an error rejects a graph for its format.
func IsFormatUnsupported(err error) bool {
	return errors.Is(err, ErrFormatUnsupported)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return IsRequestMalformed(err) || graph.IsFormatInvalid(err) || IsFormatUnsupported(err)
}

// IsConflictError checks if an error is a conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return persistence.IsWorkflowAlreadyExists(err)
}
