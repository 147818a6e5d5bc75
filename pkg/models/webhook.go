package models

import (
	"slices"
	"time"
)

// WebhookRegistration is a tenant- or platform-configured HTTPS endpoint
// subscribed to one or more trigger types.
type WebhookRegistration struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"          validate:"required,min=3"`
	URL           string    `json:"url"           validate:"required,url"`
	Active        bool      `json:"active"`
	TriggerEvents []string  `json:"trigger_events" validate:"required,min=1"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SubscribedTo reports whether the registration listens for the trigger type.
func (w *WebhookRegistration) SubscribedTo(trigger TriggerType) bool {
	return slices.Contains(w.TriggerEvents, string(trigger))
}

// WebhookEnvelope is the JSON body POSTed to registered endpoints.
type WebhookEnvelope struct {
	EventType   string         `json:"event_type"`
	CompanyID   string         `json:"company_id"`
	TriggerData map[string]any `json:"trigger_data,omitempty"`
	Result      map[string]any `json:"result,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// WebhookDeliveryResult records the outcome of one delivery attempt to one
// registration. Deliveries are isolated; a failure here never aborts anything.
type WebhookDeliveryResult struct {
	WebhookID  string `json:"webhook_id"`
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code,omitempty"`
	Error      string `json:"error,omitempty"`
}
