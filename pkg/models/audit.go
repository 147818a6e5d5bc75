package models

import "time"

// AuditLogEntry is an append-only record of one processed trigger. Entries are
// created once and never mutated or deleted by this service.
type AuditLogEntry struct {
	ID             string         `json:"id"`
	CompanyID      string         `json:"company_id"`
	TriggerType    string         `json:"trigger_type"`
	TriggerPayload map[string]any `json:"trigger_payload,omitempty"`
	ActionType     string         `json:"action_type"`
	ActionResult   map[string]any `json:"action_result,omitempty"`
	PerformedBy    string         `json:"performed_by,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
