package models

import (
	"errors"
	"fmt"
)

// TriggerType is a named business event that advances the proposal workflow.
// The set is closed; anything else is rejected before any mutation happens.
type TriggerType string

const (
	TriggerRiskAssessmentCompleted TriggerType = "risk_assessment_completed"
	TriggerSpinContentGenerated    TriggerType = "spin_content_generated"
	TriggerInvestmentAnalysisSaved TriggerType = "investment_analysis_saved"
	TriggerProposalGenerated       TriggerType = "proposal_generated"
	TriggerProposalSent            TriggerType = "proposal_sent"
)

// ErrUnknownTrigger is returned when a trigger type is not one of the five
// known business events.
var ErrUnknownTrigger = errors.New("unknown trigger type")

var knownTriggers = map[TriggerType]struct{}{
	TriggerRiskAssessmentCompleted: {},
	TriggerSpinContentGenerated:    {},
	TriggerInvestmentAnalysisSaved: {},
	TriggerProposalGenerated:       {},
	TriggerProposalSent:            {},
}

// ParseTriggerType converts a wire string into a TriggerType.
func ParseTriggerType(s string) (TriggerType, error) {
	t := TriggerType(s)
	if _, ok := knownTriggers[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTrigger, s)
	}

	return t, nil
}

// TriggerTypes returns all known trigger types.
func TriggerTypes() []TriggerType {
	return []TriggerType{
		TriggerRiskAssessmentCompleted,
		TriggerSpinContentGenerated,
		TriggerInvestmentAnalysisSaved,
		TriggerProposalGenerated,
		TriggerProposalSent,
	}
}

// TriggerEvent is the unit of work consumed exactly once by the trigger
// service. EventID is optional; when present it enables duplicate suppression
// for redelivered events.
type TriggerEvent struct {
	Type        TriggerType    `json:"trigger_type"`
	CompanyID   string         `json:"company_id"`
	Payload     map[string]any `json:"payload,omitempty"`
	PerformedBy string         `json:"performed_by,omitempty"`
	EventID     string         `json:"event_id,omitempty"`
}
