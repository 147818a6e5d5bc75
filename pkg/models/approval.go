package models

import "time"

// ApprovalStatus is the review state of a proposal approval request.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// ApprovalRequest is created by the proposal_generated trigger and resolved by
// a reviewer decision.
type ApprovalRequest struct {
	ID                 string         `json:"id"`
	CompanyID          string         `json:"company_id"`
	SubmittedBy        string         `json:"submitted_by,omitempty"`
	Status             ApprovalStatus `json:"status"`
	ProposalData       map[string]any `json:"proposal_data,omitempty"`
	RiskScore          *float64       `json:"risk_score,omitempty"`
	InvestmentAnalysis map[string]any `json:"investment_analysis,omitempty"`
	DecidedBy          string         `json:"decided_by,omitempty"`
	DecidedAt          *time.Time     `json:"decided_at,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}
