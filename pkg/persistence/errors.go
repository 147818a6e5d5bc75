// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates no workflow record exists for the company.
	ErrWorkflowNotFound = errors.New("workflow record not found")

	// ErrVersionConflict indicates a compare-and-swap write lost to a
	// concurrent transition for the same company.
	ErrVersionConflict = errors.New("workflow version conflict")

	// ErrWebhookNotFound indicates a webhook registration was not found.
	ErrWebhookNotFound = errors.New("webhook registration not found")

	// ErrApprovalNotFound indicates an approval request was not found.
	ErrApprovalNotFound = errors.New("approval request not found")

	// ErrOutboxEventNotFound indicates an outbox event was not found.
	ErrOutboxEventNotFound = errors.New("outbox event not found")
)

// TransitionError wraps a failed primary transition with its tenant context.
type TransitionError struct {
	Op        string
	CompanyID string
	Err       error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s failed for company %s: %v", e.Op, e.CompanyID, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

func (e *TransitionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewTransitionError creates a transition error with context.
func NewTransitionError(op, companyID string, err error) *TransitionError {
	return &TransitionError{Op: op, CompanyID: companyID, Err: err}
}

// IsWorkflowNotFound checks if an error indicates a missing workflow record.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsVersionConflict checks if an error indicates a lost compare-and-swap write.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// IsWebhookNotFound checks if an error indicates a missing webhook registration.
func IsWebhookNotFound(err error) bool {
	return errors.Is(err, ErrWebhookNotFound)
}

// IsApprovalNotFound checks if an error indicates a missing approval request.
func IsApprovalNotFound(err error) bool {
	return errors.Is(err, ErrApprovalNotFound)
}
