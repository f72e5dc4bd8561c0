package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrWorkflowNotFound indicates no saved graph exists under the given name.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrWorkflowAlreadyExists indicates a saved graph with the same name already exists
	// and overwrite was not requested.
	ErrWorkflowAlreadyExists = errors.New("workflow already exists")

	// ErrInvalidName indicates a graph name or owner that cannot be used as a storage key.
	ErrInvalidName = errors.New("invalid workflow name")
)

// WorkflowError wraps saved-graph errors with the operation and key involved.
type WorkflowError struct {
	Op    string // Operation being performed (e.g., "Save", "Load")
	Owner string
	Name  string
	Err   error
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("%s operation failed for workflow %s/%s: %v", e.Op, e.Owner, e.Name, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// NewWorkflowError creates a new workflow error with context.
func NewWorkflowError(op, owner, name string, err error) *WorkflowError {
	return &WorkflowError{
		Op:    op,
		Owner: owner,
		Name:  name,
		Err:   err,
	}
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsWorkflowAlreadyExists checks if an error indicates a name collision without overwrite.
func IsWorkflowAlreadyExists(err error) bool {
	return errors.Is(err, ErrWorkflowAlreadyExists)
}

// IsInvalidName checks if an error indicates an unusable graph name or owner.
func IsInvalidName(err error) bool {
	return errors.Is(err, ErrInvalidName)
}
