package services_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/easeworks/propgen/pkg/dedup"
	"github.com/easeworks/propgen/pkg/models"
	"github.com/easeworks/propgen/pkg/persistence/file"
	"github.com/easeworks/propgen/pkg/schemas"
	"github.com/easeworks/propgen/pkg/services"
	"github.com/easeworks/propgen/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTriggerService(t *testing.T) (*services.Trigger, *file.Persistence) {
	t.Helper()

	persistence := file.NewPersistence(t.TempDir())
	service := services.NewTrigger(persistence, dedup.NewMemoryStore(time.Minute), nil, nil, slog.Default())

	return service, persistence
}

func TestProcessTrigger_RiskAssessmentCompleted(t *testing.T) {
	t.Parallel()

	service, persistence := setupTriggerService(t)
	ctx := context.Background()

	response, err := service.ProcessTrigger(ctx, services.ProcessTriggerRequest{
		TriggerType: "risk_assessment_completed",
		CompanyID:   "company-1",
		Payload:     map[string]any{"riskScore": 42.0},
		PerformedBy: "user-1",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"riskAssessmentProcessed": true,
		"spinContentRequested":    true,
	}, response.Result)
	assert.Equal(t, 0, response.WebhooksQueued)
	assert.Equal(t, 1, response.EffectsQueued)
	assert.False(t, response.Deduplicated)

	record, err := persistence.WorkflowRepository().GetByCompany(ctx, "company-1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, models.WorkflowStatusRiskAssessmentCompleted, record.Status)
	assert.Equal(t, int64(1), record.Version)
	require.NotNil(t, record.RiskScore)
	assert.InEpsilon(t, 42.0, *record.RiskScore, 0.001)

	// The transition enqueued the SPIN generation effect.
	claimed, err := persistence.OutboxRepository().ClaimDue(ctx, time.Now().UTC(), 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, models.EffectSpinGeneration, claimed[0].Kind)
	assert.Equal(t, "company-1", claimed[0].CompanyID)

	entries, err := persistence.AuditRepository().ListByCompany(ctx, "company-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "risk_assessment_processed", entries[0].ActionType)
	assert.Equal(t, "user-1", entries[0].PerformedBy)
}

func TestProcessTrigger_QueuesMatchingWebhooks(t *testing.T) {
	t.Parallel()

	service, persistence := setupTriggerService(t)
	ctx := context.Background()

	require.NoError(t, persistence.WebhookRepository().Save(ctx, &models.WebhookRegistration{
		Name:          "crm sync",
		URL:           "https://crm.example.com/hook",
		Active:        true,
		TriggerEvents: []string{"risk_assessment_completed"},
	}))
	require.NoError(t, persistence.WebhookRepository().Save(ctx, &models.WebhookRegistration{
		Name:          "inactive listener",
		URL:           "https://other.example.com/hook",
		Active:        false,
		TriggerEvents: []string{"risk_assessment_completed"},
	}))
	require.NoError(t, persistence.WebhookRepository().Save(ctx, &models.WebhookRegistration{
		Name:          "other event listener",
		URL:           "https://elsewhere.example.com/hook",
		Active:        true,
		TriggerEvents: []string{"proposal_sent"},
	}))

	response, err := service.ProcessTrigger(ctx, services.ProcessTriggerRequest{
		TriggerType: "risk_assessment_completed",
		CompanyID:   "company-1",
		Payload:     map[string]any{"riskScore": 42.0},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, response.WebhooksQueued)
	assert.Equal(t, 2, response.EffectsQueued)

	claimed, err := persistence.OutboxRepository().ClaimDue(ctx, time.Now().UTC(), 10)
	require.NoError(t, err)
	require.Len(t, claimed, 2)

	kinds := map[models.EffectKind]int{}
	for _, event := range claimed {
		kinds[event.Kind]++
	}

	assert.Equal(t, 1, kinds[models.EffectSpinGeneration])
	assert.Equal(t, 1, kinds[models.EffectWebhookDelivery])
}

func TestProcessTrigger_UnknownTrigger(t *testing.T) {
	t.Parallel()

	service, persistence := setupTriggerService(t)
	ctx := context.Background()

	_, err := service.ProcessTrigger(ctx, services.ProcessTriggerRequest{
		TriggerType: "bogus_trigger",
		CompanyID:   "company-1",
	})
	require.ErrorIs(t, err, models.ErrUnknownTrigger)

	record, err := persistence.WorkflowRepository().GetByCompany(ctx, "company-1")
	require.NoError(t, err)
	assert.Nil(t, record)

	entries, err := persistence.AuditRepository().ListByCompany(ctx, "company-1", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProcessTrigger_InvalidPayload(t *testing.T) {
	t.Parallel()

	service, _ := setupTriggerService(t)

	_, err := service.ProcessTrigger(context.Background(), services.ProcessTriggerRequest{
		TriggerType: "risk_assessment_completed",
		CompanyID:   "company-1",
		Payload:     map[string]any{"riskScore": "very high"},
	})
	require.ErrorIs(t, err, schemas.ErrPayloadInvalid)
}

func TestProcessTrigger_CompanyIDRequired(t *testing.T) {
	t.Parallel()

	service, _ := setupTriggerService(t)

	_, err := service.ProcessTrigger(context.Background(), services.ProcessTriggerRequest{
		TriggerType: "proposal_sent",
	})
	require.ErrorIs(t, err, services.ErrCompanyIDRequired)
	assert.True(t, services.IsValidationError(err))
}

func TestProcessTrigger_DeduplicatesByEventID(t *testing.T) {
	t.Parallel()

	service, persistence := setupTriggerService(t)
	ctx := context.Background()

	first, err := service.ProcessTrigger(ctx, services.ProcessTriggerRequest{
		TriggerType: "risk_assessment_completed",
		CompanyID:   "company-1",
		Payload:     map[string]any{"riskScore": 42.0},
		EventID:     "evt-1",
	})
	require.NoError(t, err)
	assert.False(t, first.Deduplicated)

	second, err := service.ProcessTrigger(ctx, services.ProcessTriggerRequest{
		TriggerType: "risk_assessment_completed",
		CompanyID:   "company-1",
		Payload:     map[string]any{"riskScore": 42.0},
		EventID:     "evt-1",
	})
	require.NoError(t, err)
	assert.True(t, second.Deduplicated)
	assert.Equal(t, 0, second.EffectsQueued)

	// Only the first delivery touched the record.
	record, err := persistence.WorkflowRepository().GetByCompany(ctx, "company-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), record.Version)
}

func TestProcessTrigger_RedeliveryWithoutEventIDIsIdempotent(t *testing.T) {
	t.Parallel()

	service, persistence := setupTriggerService(t)
	ctx := context.Background()

	payload := map[string]any{"spinContent": map[string]any{"situation": "text"}}

	for range 2 {
		_, err := service.ProcessTrigger(ctx, services.ProcessTriggerRequest{
			TriggerType: "spin_content_generated",
			CompanyID:   "company-1",
			Payload:     payload,
		})
		require.NoError(t, err)
	}

	record, err := persistence.WorkflowRepository().GetByCompany(ctx, "company-1")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusSpinContentGenerated, record.Status)
	assert.Equal(t, "draft_generated", record.SpinContentStatus)
	assert.Equal(t, int64(2), record.Version)

	// Both deliveries are audited even though the state converged.
	entries, err := persistence.AuditRepository().ListByCompany(ctx, "company-1", 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestProcessTrigger_FailedTriggerDoesNotConsumeEventID(t *testing.T) {
	t.Parallel()

	service, _ := setupTriggerService(t)
	ctx := context.Background()

	_, err := service.ProcessTrigger(ctx, services.ProcessTriggerRequest{
		TriggerType: "proposal_sent",
		CompanyID:   "company-1",
	})
	require.NoError(t, err)

	stale := services.ProcessTriggerRequest{
		TriggerType: "risk_assessment_completed",
		CompanyID:   "company-1",
		Payload:     map[string]any{"riskScore": 42.0},
		EventID:     "evt-9",
	}

	// A rejected delivery must not record its event ID, or the client's
	// retry would come back as a duplicate success with no mutation.
	_, err = service.ProcessTrigger(ctx, stale)
	require.ErrorIs(t, err, workflow.ErrStaleTrigger)

	_, err = service.ProcessTrigger(ctx, stale)
	require.ErrorIs(t, err, workflow.ErrStaleTrigger)

	// Only a committed transition burns the ID.
	fresh := stale
	fresh.CompanyID = "company-2"

	response, err := service.ProcessTrigger(ctx, fresh)
	require.NoError(t, err)
	assert.False(t, response.Deduplicated)

	response, err = service.ProcessTrigger(ctx, fresh)
	require.NoError(t, err)
	assert.True(t, response.Deduplicated)
}

func TestProcessTrigger_RejectsBackwardTransition(t *testing.T) {
	t.Parallel()

	service, _ := setupTriggerService(t)
	ctx := context.Background()

	_, err := service.ProcessTrigger(ctx, services.ProcessTriggerRequest{
		TriggerType: "proposal_sent",
		CompanyID:   "company-1",
	})
	require.NoError(t, err)

	_, err = service.ProcessTrigger(ctx, services.ProcessTriggerRequest{
		TriggerType: "risk_assessment_completed",
		CompanyID:   "company-1",
		Payload:     map[string]any{"riskScore": 42.0},
	})
	require.ErrorIs(t, err, workflow.ErrStaleTrigger)
	assert.True(t, services.IsConflictError(err))
}

func TestProcessTrigger_ProposalGeneratedCreatesApproval(t *testing.T) {
	t.Parallel()

	service, persistence := setupTriggerService(t)
	ctx := context.Background()

	response, err := service.ProcessTrigger(ctx, services.ProcessTriggerRequest{
		TriggerType: "proposal_generated",
		CompanyID:   "company-1",
		PerformedBy: "user-7",
		Payload:     map[string]any{"riskScore": 33.0},
	})
	require.NoError(t, err)

	approvalID, ok := response.Result["approvalId"].(string)
	require.True(t, ok)
	require.NotEmpty(t, approvalID)

	approval, err := persistence.ApprovalRepository().GetByID(ctx, approvalID)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusPending, approval.Status)
	assert.Equal(t, "user-7", approval.SubmittedBy)

	// The workflow row stays untouched until a reviewer decides.
	record, err := persistence.WorkflowRepository().GetByCompany(ctx, "company-1")
	require.NoError(t, err)
	assert.Nil(t, record)

	claimed, err := persistence.OutboxRepository().ClaimDue(ctx, time.Now().UTC(), 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, models.EffectApprovalNotification, claimed[0].Kind)
}
