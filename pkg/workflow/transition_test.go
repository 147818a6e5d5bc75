package workflow_test

import (
	"testing"

	"github.com/easeworks/propgen/pkg/models"
	"github.com/easeworks/propgen/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_RiskAssessmentCompleted(t *testing.T) {
	t.Parallel()

	record := models.NewWorkflowRecord("company-1")
	event := &models.TriggerEvent{
		Type:      models.TriggerRiskAssessmentCompleted,
		CompanyID: "company-1",
		Payload: map[string]any{
			"riskScore":      72.5,
			"assessmentDate": "2025-03-10T14:00:00Z",
		},
	}

	mutation, err := workflow.Apply(record, event)
	require.NoError(t, err)
	require.NotNil(t, mutation.Record)

	assert.Equal(t, models.WorkflowStatusRiskAssessmentCompleted, mutation.Record.Status)
	require.NotNil(t, mutation.Record.RiskScore)
	assert.InEpsilon(t, 72.5, *mutation.Record.RiskScore, 0.001)
	require.NotNil(t, mutation.Record.AssessmentDate)

	assert.Equal(t, map[string]any{
		"riskAssessmentProcessed": true,
		"spinContentRequested":    true,
	}, mutation.Result)
	assert.Equal(t, "risk_assessment_processed", mutation.ActionType)

	require.Len(t, mutation.Effects, 1)
	assert.Equal(t, models.EffectSpinGeneration, mutation.Effects[0].Kind)
	assert.Equal(t, "company-1", mutation.Effects[0].Payload["company_id"])

	// The input record is never mutated in place.
	assert.Equal(t, models.WorkflowStatusNotStarted, record.Status)
}

func TestApply_SpinContentGenerated(t *testing.T) {
	t.Parallel()

	record := models.NewWorkflowRecord("company-1")
	record.Status = models.WorkflowStatusRiskAssessmentCompleted

	content := map[string]any{"situation": "text"}
	event := &models.TriggerEvent{
		Type:      models.TriggerSpinContentGenerated,
		CompanyID: "company-1",
		Payload:   map[string]any{"spinContent": content},
	}

	mutation, err := workflow.Apply(record, event)
	require.NoError(t, err)

	assert.Equal(t, models.WorkflowStatusSpinContentGenerated, mutation.Record.Status)
	assert.Equal(t, "draft_generated", mutation.Record.SpinContentStatus)
	assert.Equal(t, content, mutation.Record.SpinContent)
	assert.Equal(t, map[string]any{"spinContentStored": true}, mutation.Result)
	assert.Empty(t, mutation.Effects)
	assert.Nil(t, mutation.Approval)
}

func TestApply_SpinContentGenerated_WholePayloadFallback(t *testing.T) {
	t.Parallel()

	record := models.NewWorkflowRecord("company-1")
	payload := map[string]any{"problem": "text", "implication": "text"}

	mutation, err := workflow.Apply(record, &models.TriggerEvent{
		Type:      models.TriggerSpinContentGenerated,
		CompanyID: "company-1",
		Payload:   payload,
	})
	require.NoError(t, err)

	assert.Equal(t, payload, mutation.Record.SpinContent)
}

func TestApply_InvestmentAnalysisSaved(t *testing.T) {
	t.Parallel()

	record := models.NewWorkflowRecord("company-1")
	payload := map[string]any{"currentCost": 1000.0, "proposedCost": 800.0}

	mutation, err := workflow.Apply(record, &models.TriggerEvent{
		Type:      models.TriggerInvestmentAnalysisSaved,
		CompanyID: "company-1",
		Payload:   payload,
	})
	require.NoError(t, err)

	assert.Equal(t, models.WorkflowStatusInvestmentAnalysisCompleted, mutation.Record.Status)
	assert.Equal(t, "completed", mutation.Record.InvestmentAnalysisStatus)
	assert.Equal(t, payload, mutation.Record.InvestmentAnalysisData)
	assert.Equal(t, map[string]any{"investmentAnalysisSaved": true}, mutation.Result)
}

func TestApply_ProposalGenerated_CreatesApproval(t *testing.T) {
	t.Parallel()

	record := models.NewWorkflowRecord("company-1")
	record.Status = models.WorkflowStatusSpinContentGenerated

	analysis := map[string]any{"savings": 200.0}
	event := &models.TriggerEvent{
		Type:        models.TriggerProposalGenerated,
		CompanyID:   "company-1",
		PerformedBy: "user-9",
		Payload: map[string]any{
			"riskScore":          55.0,
			"investmentAnalysis": analysis,
		},
	}

	mutation, err := workflow.Apply(record, event)
	require.NoError(t, err)

	// The workflow row is untouched until a reviewer decides.
	assert.Nil(t, mutation.Record)

	require.NotNil(t, mutation.Approval)
	assert.NotEmpty(t, mutation.Approval.ID)
	assert.Equal(t, "company-1", mutation.Approval.CompanyID)
	assert.Equal(t, "user-9", mutation.Approval.SubmittedBy)
	assert.Equal(t, models.ApprovalStatusPending, mutation.Approval.Status)
	require.NotNil(t, mutation.Approval.RiskScore)
	assert.InEpsilon(t, 55.0, *mutation.Approval.RiskScore, 0.001)
	assert.Equal(t, analysis, mutation.Approval.InvestmentAnalysis)

	require.Len(t, mutation.Effects, 1)
	assert.Equal(t, models.EffectApprovalNotification, mutation.Effects[0].Kind)
	assert.Equal(t, mutation.Approval.ID, mutation.Effects[0].Payload["approval_id"])

	assert.Equal(t, true, mutation.Result["proposalGenerated"])
	assert.Equal(t, true, mutation.Result["approvalRequested"])
	assert.Equal(t, mutation.Approval.ID, mutation.Result["approvalId"])
	assert.Equal(t, "pending_approval", mutation.Result["status"])
	assert.Equal(t, "approval_requested", mutation.ActionType)
}

func TestApply_ProposalSent(t *testing.T) {
	t.Parallel()

	record := models.NewWorkflowRecord("company-1")
	record.Status = models.WorkflowStatusProposalApproved

	mutation, err := workflow.Apply(record, &models.TriggerEvent{
		Type:      models.TriggerProposalSent,
		CompanyID: "company-1",
	})
	require.NoError(t, err)

	assert.Equal(t, models.WorkflowStatusProposalSent, mutation.Record.Status)
	assert.Equal(t, "sent", mutation.Record.ProposalStatus)
	assert.Equal(t, map[string]any{"proposalSent": true}, mutation.Result)
}

func TestApply_UnknownTrigger(t *testing.T) {
	t.Parallel()

	record := models.NewWorkflowRecord("company-1")

	mutation, err := workflow.Apply(record, &models.TriggerEvent{
		Type:      models.TriggerType("bogus_trigger"),
		CompanyID: "company-1",
	})
	require.Error(t, err)
	require.ErrorIs(t, err, models.ErrUnknownTrigger)
	assert.Nil(t, mutation)
	assert.Equal(t, models.WorkflowStatusNotStarted, record.Status)
}

func TestApply_RejectsBackwardTransition(t *testing.T) {
	t.Parallel()

	record := models.NewWorkflowRecord("company-1")
	record.Status = models.WorkflowStatusProposalSent

	mutation, err := workflow.Apply(record, &models.TriggerEvent{
		Type:      models.TriggerRiskAssessmentCompleted,
		CompanyID: "company-1",
		Payload:   map[string]any{"riskScore": 10.0},
	})
	require.ErrorIs(t, err, workflow.ErrStaleTrigger)
	assert.Nil(t, mutation)
}

func TestApply_SameRankRedeliveryAllowed(t *testing.T) {
	t.Parallel()

	record := models.NewWorkflowRecord("company-1")
	record.Status = models.WorkflowStatusSpinContentGenerated

	mutation, err := workflow.Apply(record, &models.TriggerEvent{
		Type:      models.TriggerSpinContentGenerated,
		CompanyID: "company-1",
		Payload:   map[string]any{"spinContent": map[string]any{"need": "text"}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusSpinContentGenerated, mutation.Record.Status)
}
