// Package models defines the core domain models for the proposal workflow service.
package models

import "time"

// WorkflowStatus represents how far a company's proposal workflow has advanced.
type WorkflowStatus string

const (
	WorkflowStatusNotStarted                  WorkflowStatus = "not_started"
	WorkflowStatusRiskAssessmentCompleted     WorkflowStatus = "risk_assessment_completed"
	WorkflowStatusInvestmentAnalysisCompleted WorkflowStatus = "investment_analysis_completed"
	WorkflowStatusBenefitsComparisonCompleted WorkflowStatus = "benefits_comparison_completed"
	WorkflowStatusAdditionalFeesConfigured    WorkflowStatus = "additional_fees_configured"
	WorkflowStatusSpinContentGenerated        WorkflowStatus = "spin_content_generated"
	WorkflowStatusProposalPendingApproval     WorkflowStatus = "proposal_pending_approval"
	WorkflowStatusProposalApproved            WorkflowStatus = "proposal_approved"
	WorkflowStatusProposalGenerated           WorkflowStatus = "proposal_generated"
	WorkflowStatusProposalSent                WorkflowStatus = "proposal_sent"
)

// statusRank orders statuses along the pipeline. Transitions may never
// decrease a record's rank; re-applying the same rank is allowed so that
// redelivered triggers stay idempotent.
var statusRank = map[WorkflowStatus]int{
	WorkflowStatusNotStarted:                  0,
	WorkflowStatusRiskAssessmentCompleted:     1,
	WorkflowStatusInvestmentAnalysisCompleted: 2,
	WorkflowStatusBenefitsComparisonCompleted: 3,
	WorkflowStatusAdditionalFeesConfigured:    4,
	WorkflowStatusSpinContentGenerated:        5,
	WorkflowStatusProposalPendingApproval:     6,
	WorkflowStatusProposalApproved:            7,
	WorkflowStatusProposalGenerated:           8,
	WorkflowStatusProposalSent:                9,
}

// Rank returns the pipeline position of a status. Unknown statuses rank 0.
func (s WorkflowStatus) Rank() int {
	return statusRank[s]
}

// Known reports whether the status is one of the ten pipeline statuses.
func (s WorkflowStatus) Known() bool {
	_, ok := statusRank[s]

	return ok
}

// WorkflowRecord is the single per-tenant state machine row. Version increases
// by one on every committed transition and is the compare-and-swap token for
// writes; stale writers are rejected instead of silently overwriting.
type WorkflowRecord struct {
	CompanyID                string         `json:"company_id"                           validate:"required"`
	Status                   WorkflowStatus `json:"status"`
	SpinContentStatus        string         `json:"spin_content_status,omitempty"`
	InvestmentAnalysisStatus string         `json:"investment_analysis_status,omitempty"`
	ProposalStatus           string         `json:"proposal_status,omitempty"`
	SpinContent              map[string]any `json:"spin_content,omitempty"`
	InvestmentAnalysisData   map[string]any `json:"investment_analysis_data,omitempty"`
	RiskScore                *float64       `json:"risk_score,omitempty"`
	AssessmentDate           *time.Time     `json:"assessment_date,omitempty"`
	Version                  int64          `json:"version"`
	CreatedAt                time.Time      `json:"created_at"`
	UpdatedAt                time.Time      `json:"updated_at"`
}

// NewWorkflowRecord returns the initial record for a company that has not
// started the pipeline.
func NewWorkflowRecord(companyID string) *WorkflowRecord {
	return &WorkflowRecord{
		CompanyID: companyID,
		Status:    WorkflowStatusNotStarted,
	}
}
