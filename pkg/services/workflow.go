package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/easeworks/propgen/pkg/models"
	"github.com/easeworks/propgen/pkg/persistence"
	"github.com/easeworks/propgen/pkg/workflow"
)

// Workflow exposes read access to workflow records and their step
// projections.
type Workflow struct {
	persistence persistence.Persistence
	logger      *slog.Logger
}

func NewWorkflow(p persistence.Persistence, logger *slog.Logger) *Workflow {
	return &Workflow{
		persistence: p,
		logger:      logger.With("module", "workflow_service"),
	}
}

// Get returns the workflow record for a company.
func (s *Workflow) Get(ctx context.Context, companyID string) (*models.WorkflowRecord, error) {
	if companyID == "" {
		return nil, NewValidationError("Get", "COMPANY_ID_REQUIRED", "company ID is required", ErrCompanyIDRequired)
	}

	record, err := s.persistence.WorkflowRepository().GetByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow record: %w", err)
	}

	if record == nil {
		return nil, persistence.ErrWorkflowNotFound
	}

	return record, nil
}

// List returns every workflow record.
func (s *Workflow) List(ctx context.Context) ([]*models.WorkflowRecord, error) {
	records, err := s.persistence.WorkflowRepository().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow records: %w", err)
	}

	return records, nil
}

// Steps projects the company's workflow record onto the fixed proposal
// pipeline. A company with no record yet gets the all-pending projection.
func (s *Workflow) Steps(ctx context.Context, companyID string) ([]workflow.Step, error) {
	if companyID == "" {
		return nil, NewValidationError("Steps", "COMPANY_ID_REQUIRED", "company ID is required", ErrCompanyIDRequired)
	}

	record, err := s.persistence.WorkflowRepository().GetByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow record: %w", err)
	}

	return workflow.ProjectSteps(record), nil
}
