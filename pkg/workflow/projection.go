package workflow

import "github.com/easeworks/propgen/pkg/models"

// StepStatus is the UI state of one pipeline step.
type StepStatus string

const (
	StepCompleted StepStatus = "completed"
	StepCurrent   StepStatus = "current"
	StepPending   StepStatus = "pending"
)

// Step is one entry of the 6-step progress model.
type Step struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      StepStatus `json:"status"`
}

// stepDefinitions is the fixed ordered pipeline shown to dashboards.
var stepDefinitions = []Step{
	{ID: 0, Title: "Assessment", Description: "HR risk assessment"},
	{ID: 1, Title: "Investment Analysis", Description: "Current vs proposed investment"},
	{ID: 2, Title: "Benefits Comparison", Description: "Benefits package comparison"},
	{ID: 3, Title: "Additional Fees", Description: "Setup and ancillary fees"},
	{ID: 4, Title: "SPIN Selling", Description: "SPIN sales narrative"},
	{ID: 5, Title: "Proposal", Description: "Proposal generation and delivery"},
}

// statusStepIndex maps a workflow status to the index of the current step.
// An index one past the final step means every step is completed.
// "spin_generated" is a legacy spelling some older rows still carry.
var statusStepIndex = map[models.WorkflowStatus]int{
	models.WorkflowStatusNotStarted:                  0,
	models.WorkflowStatusRiskAssessmentCompleted:     1,
	models.WorkflowStatusInvestmentAnalysisCompleted: 2,
	models.WorkflowStatusBenefitsComparisonCompleted: 3,
	models.WorkflowStatusAdditionalFeesConfigured:    4,
	models.WorkflowStatusSpinContentGenerated:        5,
	models.WorkflowStatus("spin_generated"):          5,
	models.WorkflowStatusProposalPendingApproval:     5,
	models.WorkflowStatusProposalApproved:            6,
	models.WorkflowStatusProposalGenerated:           6,
	models.WorkflowStatusProposalSent:                6,
}

// ProjectSteps derives the 6-step progress model from a workflow record. It is
// a pure function: recomputed on every read, never cached, safe to call
// concurrently. A nil record or unmapped status projects as not started.
func ProjectSteps(record *models.WorkflowRecord) []Step {
	currentIndex := 0

	if record != nil {
		if idx, ok := statusStepIndex[record.Status]; ok {
			currentIndex = idx
		}
	}

	steps := make([]Step, len(stepDefinitions))

	for i, def := range stepDefinitions {
		step := def

		switch {
		case i < currentIndex:
			step.Status = StepCompleted
		case i == currentIndex:
			step.Status = StepCurrent
		default:
			step.Status = StepPending
		}

		steps[i] = step
	}

	return steps
}
