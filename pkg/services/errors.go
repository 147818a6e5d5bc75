// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"

	"github.com/easeworks/propgen/pkg/models"
	"github.com/easeworks/propgen/pkg/persistence"
	"github.com/easeworks/propgen/pkg/schemas"
	"github.com/easeworks/propgen/pkg/workflow"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest    = errors.New("invalid request")
	ErrCompanyIDRequired = errors.New("company ID cannot be empty")
	ErrInvalidDecision   = errors.New("decision must be approved or rejected")

	// Business Logic Conflicts (409 Conflict).
	ErrApprovalAlreadyDecided = errors.New("approval request already decided")
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

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a caller error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrCompanyIDRequired) ||
		errors.Is(err, ErrInvalidDecision) ||
		errors.Is(err, models.ErrUnknownTrigger) ||
		errors.Is(err, schemas.ErrPayloadInvalid)
}

// IsUnknownTrigger checks if an error indicates an unrecognized trigger type.
func IsUnknownTrigger(err error) bool {
	return errors.Is(err, models.ErrUnknownTrigger)
}

// IsConflictError checks if an error is a concurrency or state conflict that
// should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, workflow.ErrStaleTrigger) ||
		errors.Is(err, persistence.ErrVersionConflict) ||
		errors.Is(err, ErrApprovalAlreadyDecided)
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
