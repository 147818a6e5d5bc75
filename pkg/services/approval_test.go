package services_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/easeworks/propgen/pkg/models"
	"github.com/easeworks/propgen/pkg/persistence"
	"github.com/easeworks/propgen/pkg/persistence/file"
	"github.com/easeworks/propgen/pkg/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupApprovalService(t *testing.T) (*services.Approval, *services.Trigger, *file.Persistence) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())
	approvalService := services.NewApproval(p, nil, slog.Default())
	triggerService := services.NewTrigger(p, nil, nil, nil, slog.Default())

	return approvalService, triggerService, p
}

func submitProposal(t *testing.T, triggerService *services.Trigger, companyID string) string {
	t.Helper()

	response, err := triggerService.ProcessTrigger(context.Background(), services.ProcessTriggerRequest{
		TriggerType: "proposal_generated",
		CompanyID:   companyID,
		PerformedBy: "submitter",
		Payload:     map[string]any{"riskScore": 40.0},
	})
	require.NoError(t, err)

	approvalID, ok := response.Result["approvalId"].(string)
	require.True(t, ok)

	return approvalID
}

func TestApproval_Decide_Approve(t *testing.T) {
	t.Parallel()

	approvalService, triggerService, p := setupApprovalService(t)
	ctx := context.Background()

	approvalID := submitProposal(t, triggerService, "company-1")

	decided, err := approvalService.Decide(ctx, approvalID, true, "reviewer-1")
	require.NoError(t, err)

	assert.Equal(t, models.ApprovalStatusApproved, decided.Status)
	assert.Equal(t, "reviewer-1", decided.DecidedBy)
	require.NotNil(t, decided.DecidedAt)

	// Approving advances the company's workflow record.
	record, err := p.WorkflowRepository().GetByCompany(ctx, "company-1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, models.WorkflowStatusProposalApproved, record.Status)
	assert.Equal(t, "approved", record.ProposalStatus)

	entries, err := p.AuditRepository().ListByCompany(ctx, "company-1", 10)
	require.NoError(t, err)

	actions := make([]string, 0, len(entries))
	for _, entry := range entries {
		actions = append(actions, entry.ActionType)
	}

	assert.Contains(t, actions, "approval_decided")
}

func TestApproval_Decide_Reject(t *testing.T) {
	t.Parallel()

	approvalService, triggerService, p := setupApprovalService(t)
	ctx := context.Background()

	approvalID := submitProposal(t, triggerService, "company-1")

	decided, err := approvalService.Decide(ctx, approvalID, false, "reviewer-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusRejected, decided.Status)

	// Rejection leaves the workflow record alone.
	record, err := p.WorkflowRepository().GetByCompany(ctx, "company-1")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestApproval_Decide_Twice(t *testing.T) {
	t.Parallel()

	approvalService, triggerService, _ := setupApprovalService(t)
	ctx := context.Background()

	approvalID := submitProposal(t, triggerService, "company-1")

	_, err := approvalService.Decide(ctx, approvalID, true, "reviewer-1")
	require.NoError(t, err)

	_, err = approvalService.Decide(ctx, approvalID, false, "reviewer-2")
	require.ErrorIs(t, err, services.ErrApprovalAlreadyDecided)
	assert.True(t, services.IsConflictError(err))
}

func TestApproval_Decide_NotFound(t *testing.T) {
	t.Parallel()

	approvalService, _, _ := setupApprovalService(t)

	_, err := approvalService.Decide(context.Background(), "missing", true, "reviewer-1")
	require.ErrorIs(t, err, persistence.ErrApprovalNotFound)
}

func TestApproval_ListByStatus(t *testing.T) {
	t.Parallel()

	approvalService, triggerService, _ := setupApprovalService(t)
	ctx := context.Background()

	firstID := submitProposal(t, triggerService, "company-1")
	secondID := submitProposal(t, triggerService, "company-2")

	_, err := approvalService.Decide(ctx, firstID, true, "reviewer-1")
	require.NoError(t, err)

	pending, err := approvalService.ListByStatus(ctx, models.ApprovalStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, secondID, pending[0].ID)

	approved, err := approvalService.ListByStatus(ctx, models.ApprovalStatusApproved)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, firstID, approved[0].ID)
}

func TestApproval_ListByStatus_Invalid(t *testing.T) {
	t.Parallel()

	approvalService, _, _ := setupApprovalService(t)

	_, err := approvalService.ListByStatus(context.Background(), models.ApprovalStatus("maybe"))
	require.Error(t, err)
	assert.True(t, services.IsValidationError(err))
}
