// Package schemas declares and enforces the JSON schemas trigger payloads
// must satisfy before a transition is attempted.
package schemas

import (
	"errors"
	"fmt"
	"strings"

	"github.com/easeworks/propgen/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// ErrPayloadInvalid is returned when a trigger payload fails schema validation.
var ErrPayloadInvalid = errors.New("trigger payload failed schema validation")

var triggerSchemas = map[models.TriggerType]*models.JSONSchema{
	models.TriggerRiskAssessmentCompleted: {
		Type:  "object",
		Title: "risk_assessment_completed payload",
		Properties: map[string]*models.Property{
			"riskScore": {
				Type:        "number",
				Description: "Overall HR risk score",
				Minimum:     floatPtr(0),
				Maximum:     floatPtr(100),
			},
			"assessmentDate": {Type: "string", Format: "date-time"},
		},
		Required: []string{"riskScore"},
	},
	models.TriggerSpinContentGenerated: {
		Type:  "object",
		Title: "spin_content_generated payload",
		Properties: map[string]*models.Property{
			"spinContent": {Type: "object", Description: "SPIN narrative sections"},
		},
	},
	models.TriggerInvestmentAnalysisSaved: {
		Type:  "object",
		Title: "investment_analysis_saved payload",
	},
	models.TriggerProposalGenerated: {
		Type:  "object",
		Title: "proposal_generated payload",
		Properties: map[string]*models.Property{
			"riskScore":          {Type: "number"},
			"investmentAnalysis": {Type: "object"},
		},
	},
	models.TriggerProposalSent: {
		Type:  "object",
		Title: "proposal_sent payload",
	},
}

func floatPtr(v float64) *float64 {
	return &v
}

// Get returns the payload schema for a trigger type, or nil when the trigger
// accepts any object.
func Get(trigger models.TriggerType) *models.JSONSchema {
	return triggerSchemas[trigger]
}

// ValidatePayload checks a trigger payload against its declared schema.
func ValidatePayload(trigger models.TriggerType, payload map[string]any) error {
	schema := triggerSchemas[trigger]
	if schema == nil {
		return nil
	}

	if payload == nil {
		payload = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(payload)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("failed to validate trigger payload: %w", err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, resultErr := range result.Errors() {
			details = append(details, resultErr.String())
		}

		return fmt.Errorf("%w for %s: %s", ErrPayloadInvalid, trigger, strings.Join(details, "; "))
	}

	return nil
}
