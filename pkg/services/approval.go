package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/easeworks/propgen/pkg/eventbus"
	"github.com/easeworks/propgen/pkg/events"
	"github.com/easeworks/propgen/pkg/models"
	"github.com/easeworks/propgen/pkg/persistence"
	"github.com/google/uuid"
)

// Approval manages proposal approval requests and reviewer decisions.
type Approval struct {
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	logger      *slog.Logger
}

func NewApproval(p persistence.Persistence, eventBus eventbus.EventBus, logger *slog.Logger) *Approval {
	return &Approval{
		persistence: p,
		eventBus:    eventBus,
		logger:      logger.With("module", "approval_service"),
	}
}

// Get returns one approval request by ID.
func (s *Approval) Get(ctx context.Context, id string) (*models.ApprovalRequest, error) {
	return s.persistence.ApprovalRepository().GetByID(ctx, id)
}

// ListByStatus returns approval requests in the given review state.
func (s *Approval) ListByStatus(ctx context.Context, status models.ApprovalStatus) ([]*models.ApprovalRequest, error) {
	switch status {
	case models.ApprovalStatusPending, models.ApprovalStatusApproved, models.ApprovalStatusRejected:
	default:
		return nil, NewValidationError("ListByStatus", "INVALID_STATUS",
			fmt.Sprintf("unknown approval status %q", status), ErrInvalidRequest)
	}

	return s.persistence.ApprovalRepository().ListByStatus(ctx, status)
}

// Decide resolves a pending approval request. Approving also advances the
// company's workflow record to proposal_approved under its version guard; the
// approval update and the record advance are not atomic across backends, so
// the approval is written first and the advance failure surfaces to the
// caller for retry.
func (s *Approval) Decide(ctx context.Context, id string, approve bool, decidedBy string) (*models.ApprovalRequest, error) {
	approval, err := s.persistence.ApprovalRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if approval.Status != models.ApprovalStatusPending {
		return nil, fmt.Errorf("approval %s already %s: %w", id, approval.Status, ErrApprovalAlreadyDecided)
	}

	now := time.Now().UTC()
	approval.Status = models.ApprovalStatusApproved
	if !approve {
		approval.Status = models.ApprovalStatusRejected
	}
	approval.DecidedBy = decidedBy
	approval.DecidedAt = &now
	approval.UpdatedAt = now

	err = s.persistence.ApprovalRepository().Update(ctx, approval)
	if err != nil {
		return nil, fmt.Errorf("failed to update approval request: %w", err)
	}

	if approve {
		err = s.advanceWorkflow(ctx, approval.CompanyID)
		if err != nil {
			return nil, err
		}
	}

	s.appendAudit(ctx, approval)
	s.publishDecision(ctx, approval)

	return approval, nil
}

// advanceWorkflow moves the company's record to proposal_approved after a
// positive decision. Records already at or past that point are left alone.
func (s *Approval) advanceWorkflow(ctx context.Context, companyID string) error {
	record, err := s.persistence.WorkflowRepository().GetByCompany(ctx, companyID)
	if err != nil {
		return fmt.Errorf("failed to load workflow record: %w", err)
	}

	if record == nil {
		record = models.NewWorkflowRecord(companyID)
	}

	if record.Status.Rank() >= models.WorkflowStatusProposalApproved.Rank() {
		return nil
	}

	expectedVersion := record.Version
	record.Status = models.WorkflowStatusProposalApproved
	record.ProposalStatus = "approved"

	return s.persistence.WorkflowRepository().ApplyTransition(ctx, &persistence.TransitionSet{
		Record:          record,
		ExpectedVersion: expectedVersion,
	})
}

func (s *Approval) appendAudit(ctx context.Context, approval *models.ApprovalRequest) {
	entry := &models.AuditLogEntry{
		CompanyID:   approval.CompanyID,
		TriggerType: "approval_decision",
		ActionType:  "approval_decided",
		ActionResult: map[string]any{
			"approvalId": approval.ID,
			"status":     string(approval.Status),
		},
		PerformedBy: approval.DecidedBy,
	}

	err := s.persistence.AuditRepository().Append(ctx, entry)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to append audit entry",
			"company_id", approval.CompanyID, "approval_id", approval.ID, "error", err)
	}
}

func (s *Approval) publishDecision(ctx context.Context, approval *models.ApprovalRequest) {
	if s.eventBus == nil {
		return
	}

	decided := events.ApprovalDecided{
		BaseEvent: events.BaseEvent{
			ID:        uuid.New().String(),
			Type:      events.ApprovalDecidedEvent,
			Timestamp: time.Now().UTC(),
			CompanyID: approval.CompanyID,
		},
		ApprovalID: approval.ID,
		Status:     approval.Status,
		DecidedBy:  approval.DecidedBy,
	}

	err := s.eventBus.Publish(ctx, approval.CompanyID, decided)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to publish approval decided event", "error", err)
	}
}
