package workflow_test

import (
	"testing"

	"github.com/easeworks/propgen/pkg/models"
	"github.com/easeworks/propgen/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectSteps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		status       models.WorkflowStatus
		currentIndex int
		allCompleted bool
	}{
		{name: "not started", status: models.WorkflowStatusNotStarted, currentIndex: 0},
		{name: "risk assessment completed", status: models.WorkflowStatusRiskAssessmentCompleted, currentIndex: 1},
		{name: "investment analysis completed", status: models.WorkflowStatusInvestmentAnalysisCompleted, currentIndex: 2},
		{name: "benefits comparison completed", status: models.WorkflowStatusBenefitsComparisonCompleted, currentIndex: 3},
		{name: "additional fees configured", status: models.WorkflowStatusAdditionalFeesConfigured, currentIndex: 4},
		{name: "spin content generated", status: models.WorkflowStatusSpinContentGenerated, currentIndex: 5},
		{name: "legacy spin_generated spelling", status: models.WorkflowStatus("spin_generated"), currentIndex: 5},
		{name: "proposal pending approval", status: models.WorkflowStatusProposalPendingApproval, currentIndex: 5},
		{name: "proposal approved", status: models.WorkflowStatusProposalApproved, allCompleted: true},
		{name: "proposal generated", status: models.WorkflowStatusProposalGenerated, allCompleted: true},
		{name: "proposal sent", status: models.WorkflowStatusProposalSent, allCompleted: true},
		{name: "unknown status treated as not started", status: models.WorkflowStatus("mystery"), currentIndex: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			record := models.NewWorkflowRecord("company-1")
			record.Status = tt.status

			steps := workflow.ProjectSteps(record)
			require.Len(t, steps, 6)

			for i, step := range steps {
				assert.Equal(t, i, step.ID)

				switch {
				case tt.allCompleted || i < tt.currentIndex:
					assert.Equal(t, workflow.StepCompleted, step.Status, "step %d", i)
				case i == tt.currentIndex:
					assert.Equal(t, workflow.StepCurrent, step.Status, "step %d", i)
				default:
					assert.Equal(t, workflow.StepPending, step.Status, "step %d", i)
				}
			}
		})
	}
}

func TestProjectSteps_NilRecord(t *testing.T) {
	t.Parallel()

	steps := workflow.ProjectSteps(nil)
	require.Len(t, steps, 6)

	assert.Equal(t, workflow.StepCurrent, steps[0].Status)

	for _, step := range steps[1:] {
		assert.Equal(t, workflow.StepPending, step.Status)
	}
}

func TestProjectSteps_Titles(t *testing.T) {
	t.Parallel()

	steps := workflow.ProjectSteps(nil)

	titles := make([]string, 0, len(steps))
	for _, step := range steps {
		titles = append(titles, step.Title)
	}

	assert.Equal(t, []string{
		"Assessment",
		"Investment Analysis",
		"Benefits Comparison",
		"Additional Fees",
		"SPIN Selling",
		"Proposal",
	}, titles)
}
