// Package web provides HTTP request and response types for the proposal workflow API.
package web

// ProcessTriggerRequest represents the request body for processing a workflow trigger.
type ProcessTriggerRequest struct {
	TriggerType string         `json:"trigger_type" validate:"required"`
	CompanyID   string         `json:"company_id"   validate:"required"`
	TriggerData map[string]any `json:"trigger_data"`
	UserID      string         `json:"user_id,omitempty"`
	EventID     string         `json:"event_id,omitempty"`
}

// CreateWebhookRequest represents the request body for registering a webhook.
type CreateWebhookRequest struct {
	Name          string   `json:"name"           validate:"required,min=3"`
	URL           string   `json:"url"            validate:"required,url"`
	Active        *bool    `json:"active,omitempty"`
	TriggerEvents []string `json:"trigger_events" validate:"required,min=1"`
}

// UpdateWebhookRequest represents the request body for updating a webhook
// registration. All fields are optional to support partial updates.
type UpdateWebhookRequest struct {
	Name          *string  `json:"name,omitempty" validate:"omitempty,min=3"`
	URL           *string  `json:"url,omitempty"  validate:"omitempty,url"`
	Active        *bool    `json:"active,omitempty"`
	TriggerEvents []string `json:"trigger_events,omitempty" validate:"omitempty,min=1"`
}

// ApprovalDecisionRequest represents the request body for deciding an approval.
type ApprovalDecisionRequest struct {
	Decision  string `json:"decision"   validate:"required,oneof=approve reject"`
	DecidedBy string `json:"decided_by" validate:"required"`
}
