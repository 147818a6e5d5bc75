// Package events defines event types for proposal workflow lifecycle notifications.
package events

import (
	"time"

	"github.com/easeworks/propgen/pkg/models"
)

type EventType string

// Kafka topic for workflow lifecycle events.
const Topic = "propgen.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	TriggerProcessedEvent         EventType = "workflow.trigger.processed"
	WorkflowTransitionedEvent     EventType = "workflow.transitioned"
	ApprovalRequestedEvent        EventType = "approval.requested"
	ApprovalDecidedEvent          EventType = "approval.decided"
	WebhookDeliverySucceededEvent EventType = "webhook.delivery.succeeded"
	WebhookDeliveryFailedEvent    EventType = "webhook.delivery.failed"
)

// Event is anything publishable on the bus.
type Event interface {
	GetType() EventType
}

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	CompanyID string         `json:"company_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// TriggerProcessed is published after the primary transition commits.
type TriggerProcessed struct {
	BaseEvent

	TriggerType    string         `json:"trigger_type"`
	PerformedBy    string         `json:"performed_by,omitempty"`
	Result         map[string]any `json:"result,omitempty"`
	WebhooksQueued int            `json:"webhooks_queued"`
	EffectsQueued  int            `json:"effects_queued"`
}

func (e TriggerProcessed) GetType() EventType {
	return TriggerProcessedEvent
}

// WorkflowTransitioned records a status change on a workflow record.
type WorkflowTransitioned struct {
	BaseEvent

	FromStatus models.WorkflowStatus `json:"from_status"`
	ToStatus   models.WorkflowStatus `json:"to_status"`
	Version    int64                 `json:"version"`
}

func (e WorkflowTransitioned) GetType() EventType {
	return WorkflowTransitionedEvent
}

// ApprovalRequested is published when a proposal enters review.
type ApprovalRequested struct {
	BaseEvent

	ApprovalID  string   `json:"approval_id"`
	SubmittedBy string   `json:"submitted_by,omitempty"`
	RiskScore   *float64 `json:"risk_score,omitempty"`
}

func (e ApprovalRequested) GetType() EventType {
	return ApprovalRequestedEvent
}

// ApprovalDecided is published when a reviewer approves or rejects.
type ApprovalDecided struct {
	BaseEvent

	ApprovalID string                `json:"approval_id"`
	Status     models.ApprovalStatus `json:"status"`
	DecidedBy  string                `json:"decided_by,omitempty"`
}

func (e ApprovalDecided) GetType() EventType {
	return ApprovalDecidedEvent
}

// WebhookDelivered reports one webhook delivery outcome from the dispatcher.
type WebhookDelivered struct {
	BaseEvent

	WebhookID  string `json:"webhook_id"`
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (e WebhookDelivered) GetType() EventType {
	if e.Success {
		return WebhookDeliverySucceededEvent
	}

	return WebhookDeliveryFailedEvent
}
