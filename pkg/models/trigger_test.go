package models_test

import (
	"testing"

	"github.com/easeworks/propgen/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTriggerType(t *testing.T) {
	t.Parallel()

	for _, trigger := range models.TriggerTypes() {
		parsed, err := models.ParseTriggerType(string(trigger))
		require.NoError(t, err)
		assert.Equal(t, trigger, parsed)
	}

	_, err := models.ParseTriggerType("made_up_event")
	require.ErrorIs(t, err, models.ErrUnknownTrigger)

	_, err = models.ParseTriggerType("")
	require.ErrorIs(t, err, models.ErrUnknownTrigger)
}

func TestWorkflowStatus_Rank(t *testing.T) {
	t.Parallel()

	// Ranks are strictly increasing along the pipeline.
	ordered := []models.WorkflowStatus{
		models.WorkflowStatusNotStarted,
		models.WorkflowStatusRiskAssessmentCompleted,
		models.WorkflowStatusInvestmentAnalysisCompleted,
		models.WorkflowStatusBenefitsComparisonCompleted,
		models.WorkflowStatusAdditionalFeesConfigured,
		models.WorkflowStatusSpinContentGenerated,
		models.WorkflowStatusProposalPendingApproval,
		models.WorkflowStatusProposalApproved,
		models.WorkflowStatusProposalGenerated,
		models.WorkflowStatusProposalSent,
	}

	for i := 1; i < len(ordered); i++ {
		assert.Greater(t, ordered[i].Rank(), ordered[i-1].Rank())
		assert.True(t, ordered[i].Known())
	}

	assert.False(t, models.WorkflowStatus("mystery").Known())
	assert.Equal(t, 0, models.WorkflowStatus("mystery").Rank())
}

func TestWebhookRegistration_SubscribedTo(t *testing.T) {
	t.Parallel()

	registration := &models.WebhookRegistration{
		TriggerEvents: []string{"proposal_sent", "risk_assessment_completed"},
	}

	assert.True(t, registration.SubscribedTo(models.TriggerProposalSent))
	assert.False(t, registration.SubscribedTo(models.TriggerSpinContentGenerated))
}
