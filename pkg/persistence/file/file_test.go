package file_test

import (
	"context"
	"testing"
	"time"

	"github.com/easeworks/propgen/pkg/models"
	"github.com/easeworks/propgen/pkg/persistence"
	"github.com/easeworks/propgen/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyTransition_VersionConflict(t *testing.T) {
	t.Parallel()

	p := file.NewPersistence(t.TempDir())
	ctx := context.Background()

	record := models.NewWorkflowRecord("company-1")
	record.Status = models.WorkflowStatusRiskAssessmentCompleted

	require.NoError(t, p.WorkflowRepository().ApplyTransition(ctx, &persistence.TransitionSet{
		Record:          record,
		ExpectedVersion: 0,
	}))
	assert.Equal(t, int64(1), record.Version)

	// A writer that loaded version 0 must lose the compare-and-swap.
	stale := models.NewWorkflowRecord("company-1")
	stale.Status = models.WorkflowStatusInvestmentAnalysisCompleted

	err := p.WorkflowRepository().ApplyTransition(ctx, &persistence.TransitionSet{
		Record:          stale,
		ExpectedVersion: 0,
	})
	require.ErrorIs(t, err, persistence.ErrVersionConflict)
	assert.True(t, persistence.IsVersionConflict(err))

	current, err := p.WorkflowRepository().GetByCompany(ctx, "company-1")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusRiskAssessmentCompleted, current.Status)
	assert.Equal(t, int64(1), current.Version)
}

func TestApplyTransition_CommitsApprovalAndOutbox(t *testing.T) {
	t.Parallel()

	p := file.NewPersistence(t.TempDir())
	ctx := context.Background()

	approval := &models.ApprovalRequest{
		ID:        "appr-1",
		CompanyID: "company-1",
		Status:    models.ApprovalStatusPending,
	}

	require.NoError(t, p.WorkflowRepository().ApplyTransition(ctx, &persistence.TransitionSet{
		Approval: approval,
		Outbox: []*models.OutboxEvent{
			{CompanyID: "company-1", Kind: models.EffectApprovalNotification},
		},
	}))

	stored, err := p.ApprovalRepository().GetByID(ctx, "appr-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusPending, stored.Status)

	claimed, err := p.OutboxRepository().ClaimDue(ctx, time.Now().UTC(), 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, models.EffectApprovalNotification, claimed[0].Kind)
	assert.Equal(t, 1, claimed[0].Attempts)
}

func TestOutbox_Lifecycle(t *testing.T) {
	t.Parallel()

	p := file.NewPersistence(t.TempDir())
	ctx := context.Background()

	require.NoError(t, p.WorkflowRepository().ApplyTransition(ctx, &persistence.TransitionSet{
		Outbox: []*models.OutboxEvent{
			{CompanyID: "company-1", Kind: models.EffectWebhookDelivery},
			{CompanyID: "company-2", Kind: models.EffectSpinGeneration},
		},
	}))

	// Events are stamped due at enqueue time, so claim with a later timestamp.
	now := time.Now().UTC()

	claimed, err := p.OutboxRepository().ClaimDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 2)

	require.NoError(t, p.OutboxRepository().MarkDelivered(ctx, claimed[0].ID, now))
	require.NoError(t, p.OutboxRepository().Reschedule(ctx, claimed[1].ID, now.Add(time.Hour), "endpoint timeout"))

	remaining, err := p.OutboxRepository().ClaimDue(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	// The rescheduled event becomes due once its backoff elapses.
	due, err := p.OutboxRepository().ClaimDue(ctx, now.Add(2*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, claimed[1].ID, due[0].ID)
	assert.Equal(t, 2, due[0].Attempts)
	assert.Equal(t, "endpoint timeout", due[0].LastError)

	require.NoError(t, p.OutboxRepository().MarkFailed(ctx, due[0].ID, "gave up"))

	none, err := p.OutboxRepository().ClaimDue(ctx, now.Add(3*time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestWebhookRepository_Lifecycle(t *testing.T) {
	t.Parallel()

	p := file.NewPersistence(t.TempDir())
	ctx := context.Background()

	registration := &models.WebhookRegistration{
		Name:          "crm sync",
		URL:           "https://crm.example.com/hook",
		Active:        true,
		TriggerEvents: []string{"proposal_sent"},
	}
	require.NoError(t, p.WebhookRepository().Save(ctx, registration))
	require.NotEmpty(t, registration.ID)

	matches, err := p.WebhookRepository().FindActiveByEvent(ctx, models.TriggerProposalSent)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	none, err := p.WebhookRepository().FindActiveByEvent(ctx, models.TriggerRiskAssessmentCompleted)
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, p.WebhookRepository().Delete(ctx, registration.ID))

	_, err = p.WebhookRepository().GetByID(ctx, registration.ID)
	require.ErrorIs(t, err, persistence.ErrWebhookNotFound)

	err = p.WebhookRepository().Delete(ctx, registration.ID)
	require.ErrorIs(t, err, persistence.ErrWebhookNotFound)
}

func TestAuditRepository_NewestFirstAndLimit(t *testing.T) {
	t.Parallel()

	p := file.NewPersistence(t.TempDir())
	ctx := context.Background()

	for i, action := range []string{"first", "second", "third"} {
		entry := &models.AuditLogEntry{
			CompanyID:  "company-1",
			ActionType: action,
			CreatedAt:  time.Now().UTC().Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, p.AuditRepository().Append(ctx, entry))
	}

	require.NoError(t, p.AuditRepository().Append(ctx, &models.AuditLogEntry{
		CompanyID:  "company-2",
		ActionType: "other_company",
	}))

	entries, err := p.AuditRepository().ListByCompany(ctx, "company-1", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "third", entries[0].ActionType)
	assert.Equal(t, "second", entries[1].ActionType)
}
