// Package workflow implements the proposal pipeline state machine: the typed
// transition table that advances a company's workflow record and the pure
// step projection consumed by dashboards.
package workflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/easeworks/propgen/pkg/models"
	"github.com/google/uuid"
)

// ErrStaleTrigger is returned when a trigger would move a record's status
// backward along the pipeline. Re-applying the current status is allowed so
// redelivered triggers stay idempotent.
var ErrStaleTrigger = errors.New("stale trigger: transition would move workflow status backward")

// Effect is one side effect produced by a transition. Effects are enqueued
// with the primary mutation and delivered asynchronously; they never block or
// fail the transition itself.
type Effect struct {
	Kind    models.EffectKind
	Payload map[string]any
}

// Mutation is the full outcome of applying one trigger: the updated record
// (nil when the trigger does not touch the workflow row), an approval request
// to create (proposal_generated only), the side effects to enqueue, and the
// result flags echoed to the caller and recorded in the audit log.
type Mutation struct {
	Record     *models.WorkflowRecord
	Approval   *models.ApprovalRequest
	Effects    []Effect
	Result     map[string]any
	ActionType string
}

// Apply runs the closed dispatch table for one trigger against the current
// record. It never persists anything; callers commit the returned mutation.
// The record argument is not modified.
func Apply(record *models.WorkflowRecord, event *models.TriggerEvent) (*Mutation, error) {
	if _, err := models.ParseTriggerType(string(event.Type)); err != nil {
		return nil, err
	}

	switch event.Type {
	case models.TriggerRiskAssessmentCompleted:
		return applyRiskAssessmentCompleted(record, event)
	case models.TriggerSpinContentGenerated:
		return applySpinContentGenerated(record, event)
	case models.TriggerInvestmentAnalysisSaved:
		return applyInvestmentAnalysisSaved(record, event)
	case models.TriggerProposalGenerated:
		return applyProposalGenerated(record, event)
	case models.TriggerProposalSent:
		return applyProposalSent(record, event)
	}

	return nil, fmt.Errorf("%w: %q", models.ErrUnknownTrigger, event.Type)
}

// advance copies the record with a new status, rejecting backward moves.
func advance(record *models.WorkflowRecord, target models.WorkflowStatus) (*models.WorkflowRecord, error) {
	if record.Status.Rank() > target.Rank() {
		return nil, fmt.Errorf("%w: %s -> %s", ErrStaleTrigger, record.Status, target)
	}

	next := *record
	next.Status = target

	return &next, nil
}

func applyRiskAssessmentCompleted(record *models.WorkflowRecord, event *models.TriggerEvent) (*Mutation, error) {
	next, err := advance(record, models.WorkflowStatusRiskAssessmentCompleted)
	if err != nil {
		return nil, err
	}

	if score, ok := event.Payload["riskScore"].(float64); ok {
		next.RiskScore = &score
	}

	if raw, ok := event.Payload["assessmentDate"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			next.AssessmentDate = &parsed
		}
	}

	return &Mutation{
		Record: next,
		Effects: []Effect{
			{
				Kind: models.EffectSpinGeneration,
				Payload: map[string]any{
					"company_id": event.CompanyID,
					"risk_data":  event.Payload,
				},
			},
		},
		Result: map[string]any{
			"riskAssessmentProcessed": true,
			"spinContentRequested":    true,
		},
		ActionType: "risk_assessment_processed",
	}, nil
}

func applySpinContentGenerated(record *models.WorkflowRecord, event *models.TriggerEvent) (*Mutation, error) {
	next, err := advance(record, models.WorkflowStatusSpinContentGenerated)
	if err != nil {
		return nil, err
	}

	next.SpinContentStatus = "draft_generated"

	if content, ok := event.Payload["spinContent"].(map[string]any); ok {
		next.SpinContent = content
	} else {
		next.SpinContent = event.Payload
	}

	return &Mutation{
		Record: next,
		Result: map[string]any{
			"spinContentStored": true,
		},
		ActionType: "spin_content_stored",
	}, nil
}

func applyInvestmentAnalysisSaved(record *models.WorkflowRecord, event *models.TriggerEvent) (*Mutation, error) {
	next, err := advance(record, models.WorkflowStatusInvestmentAnalysisCompleted)
	if err != nil {
		return nil, err
	}

	next.InvestmentAnalysisStatus = "completed"
	next.InvestmentAnalysisData = event.Payload

	return &Mutation{
		Record: next,
		Result: map[string]any{
			"investmentAnalysisSaved": true,
		},
		ActionType: "investment_analysis_stored",
	}, nil
}

// applyProposalGenerated leaves the workflow row untouched; it only creates a
// pending approval request and queues the reviewer notification.
func applyProposalGenerated(_ *models.WorkflowRecord, event *models.TriggerEvent) (*Mutation, error) {
	approval := &models.ApprovalRequest{
		ID:           uuid.New().String(),
		CompanyID:    event.CompanyID,
		SubmittedBy:  event.PerformedBy,
		Status:       models.ApprovalStatusPending,
		ProposalData: event.Payload,
	}

	if score, ok := event.Payload["riskScore"].(float64); ok {
		approval.RiskScore = &score
	}

	if analysis, ok := event.Payload["investmentAnalysis"].(map[string]any); ok {
		approval.InvestmentAnalysis = analysis
	}

	return &Mutation{
		Approval: approval,
		Effects: []Effect{
			{
				Kind: models.EffectApprovalNotification,
				Payload: map[string]any{
					"company_id":    event.CompanyID,
					"approval_id":   approval.ID,
					"proposal_data": event.Payload,
				},
			},
		},
		Result: map[string]any{
			"proposalGenerated": true,
			"approvalRequested": true,
			"approvalId":        approval.ID,
			"status":            "pending_approval",
		},
		ActionType: "approval_requested",
	}, nil
}

func applyProposalSent(record *models.WorkflowRecord, _ *models.TriggerEvent) (*Mutation, error) {
	next, err := advance(record, models.WorkflowStatusProposalSent)
	if err != nil {
		return nil, err
	}

	next.ProposalStatus = "sent"

	return &Mutation{
		Record: next,
		Result: map[string]any{
			"proposalSent": true,
		},
		ActionType: "proposal_marked_sent",
	}, nil
}
